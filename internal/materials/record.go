// Package materials holds the material cost price list and the resolver that
// turns BOM material names into cost records.
package materials

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-quotes/pkg/db/models"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/shopspring/decimal"
)

// Record is the cost of one material in its canonical unit.
type Record struct {
	Name        string          `json:"name"`
	Unit        enums.Unit      `json:"unit"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Currency    string          `json:"currency"`
	LastUpdated time.Time       `json:"last_updated"`
}

// NormalizeName is the lookup key form of a material name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func recordFromModel(m models.Material) Record {
	return Record{
		Name:        m.Name,
		Unit:        m.Unit,
		UnitCost:    m.UnitCost,
		Currency:    m.Currency,
		LastUpdated: m.LastUpdated,
	}
}

func (r Record) toModel() models.Material {
	return models.Material{
		Name:        NormalizeName(r.Name),
		Unit:        r.Unit,
		UnitCost:    r.UnitCost,
		Currency:    strings.ToUpper(strings.TrimSpace(r.Currency)),
		LastUpdated: r.LastUpdated,
	}
}

// MissingMaterialError lists every requested material the store has no cost for.
type MissingMaterialError struct {
	Names []string
}

func newMissingMaterialError(names []string) *MissingMaterialError {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return &MissingMaterialError{Names: sorted}
}

func (e *MissingMaterialError) Error() string {
	return fmt.Sprintf("no cost record for material(s): %s", strings.Join(e.Names, ", "))
}

func (e *MissingMaterialError) APIError() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeMissingMat, e.Error()).WithDetails(map[string]any{
		"missing": e.Names,
	})
}

// CostStoreError reports that the cost store failed or timed out.
type CostStoreError struct {
	Err error
}

func (e *CostStoreError) Error() string {
	return fmt.Sprintf("material cost store: %v", e.Err)
}

func (e *CostStoreError) Unwrap() error {
	return e.Err
}

func (e *CostStoreError) APIError() *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, e.Err, "material cost store unavailable").WithDetails(map[string]string{
		"dependency": "material_cost_store",
	})
}
