package materials

import (
	"context"
	"fmt"
	"time"
)

// Resolver maps BOM material names to cost records with one batched lookup.
type Resolver struct {
	store   Store
	timeout time.Duration
}

// NewResolver builds a resolver bounded by timeout. A zero timeout leaves the
// caller's deadline in charge.
func NewResolver(store Store, timeout time.Duration) (*Resolver, error) {
	if store == nil {
		return nil, fmt.Errorf("material store required")
	}
	return &Resolver{store: store, timeout: timeout}, nil
}

// Resolve returns a record for every name keyed by NormalizeName. If any
// name is absent it returns a MissingMaterialError naming all of them and no
// records.
func (r *Resolver) Resolve(ctx context.Context, names []string) (map[string]Record, error) {
	distinct := dedupe(names)
	out := make(map[string]Record, len(distinct))
	if len(distinct) == 0 {
		return out, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	records, err := r.store.FindByNames(ctx, distinct)
	if err != nil {
		return nil, &CostStoreError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CostStoreError{Err: err}
	}

	wanted := make(map[string]struct{}, len(distinct))
	for _, n := range distinct {
		wanted[n] = struct{}{}
	}
	for _, rec := range records {
		key := NormalizeName(rec.Name)
		if _, ok := wanted[key]; ok {
			out[key] = rec
		}
	}

	var missing []string
	for _, n := range distinct {
		if _, ok := out[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return nil, newMissingMaterialError(missing)
	}
	return out, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := NormalizeName(n)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
