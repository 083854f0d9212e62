package quotes

import (
	"fmt"

	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
)

// EstimationError reports that the BOM estimator failed, timed out or
// answered with an unusable estimate.
type EstimationError struct {
	JobType string
	Reason  string
	Err     error
}

func (e *EstimationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("estimate %s: %s", e.JobType, e.Reason)
	}
	return fmt.Sprintf("estimate %s: %s: %v", e.JobType, e.Reason, e.Err)
}

func (e *EstimationError) Unwrap() error {
	return e.Err
}

func (e *EstimationError) APIError() *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeEstimation, e.Err, e.Reason).WithDetails(map[string]any{
		"job_type": e.JobType,
		"reason":   e.Reason,
	})
}
