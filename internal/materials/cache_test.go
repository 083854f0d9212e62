package materials

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	data   map[string]string
	mgetFn func() error
	dels   []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	if f.mgetFn != nil {
		if err := f.mgetFn(); err != nil {
			return nil, err
		}
	}
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := f.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		f.dels = append(f.dels, k)
		delete(f.data, k)
	}
	return nil
}

func (f *fakeCache) MaterialKey(name string) string {
	return "material:" + NormalizeName(name)
}

type fakeCatalog struct {
	fakeStore
	upserts []Record
}

func (f *fakeCatalog) List(context.Context) ([]Record, error) { return f.records, nil }
func (f *fakeCatalog) Get(_ context.Context, name string) (Record, error) {
	for _, r := range f.records {
		if r.Name == NormalizeName(name) {
			return r, nil
		}
	}
	return Record{}, errors.New("not found")
}
func (f *fakeCatalog) Search(context.Context, string) ([]Record, error) { return f.records, nil }
func (f *fakeCatalog) Upsert(_ context.Context, r Record) (Record, error) {
	f.upserts = append(f.upserts, r)
	return r, nil
}
func (f *fakeCatalog) UpdateCost(_ context.Context, name string, cost decimal.Decimal) (Record, error) {
	return Record{Name: name, UnitCost: cost}, nil
}

func TestCachedCatalogReadsThrough(t *testing.T) {
	inner := &fakeCatalog{fakeStore: fakeStore{records: priceList()}}
	cache := newFakeCache()
	cached := NewCachedCatalog(inner, cache, time.Minute, nil)
	ctx := context.Background()

	first, err := cached.FindByNames(ctx, []string{"flour", "eggs"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Len(t, inner.calls, 1)
	require.Contains(t, cache.data, "material:flour")

	second, err := cached.FindByNames(ctx, []string{"flour", "eggs", "sugar"})
	require.NoError(t, err)
	require.Len(t, second, 3)
	require.Len(t, inner.calls, 2)
	require.Equal(t, []string{"sugar"}, inner.calls[1])

	for _, r := range second {
		if r.Name == "eggs" {
			require.Equal(t, enums.UnitEach, r.Unit)
			require.True(t, r.UnitCost.Equal(decimal.RequireFromString("0.18")))
		}
	}
}

func TestCachedCatalogFallsBackWhenCacheFails(t *testing.T) {
	inner := &fakeCatalog{fakeStore: fakeStore{records: priceList()}}
	cache := newFakeCache()
	cache.mgetFn = func() error { return errors.New("redis down") }
	cached := NewCachedCatalog(inner, cache, time.Minute, nil)

	got, err := cached.FindByNames(context.Background(), []string{"flour"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCachedCatalogInvalidatesOnWrite(t *testing.T) {
	inner := &fakeCatalog{fakeStore: fakeStore{records: priceList()}}
	cache := newFakeCache()
	cached := NewCachedCatalog(inner, cache, time.Minute, nil)
	ctx := context.Background()

	_, err := cached.FindByNames(ctx, []string{"flour"})
	require.NoError(t, err)

	_, err = cached.UpdateCost(ctx, "Flour", decimal.RequireFromString("1.10"))
	require.NoError(t, err)
	require.NotContains(t, cache.data, "material:flour")

	_, err = cached.Upsert(ctx, rec("cocoa", enums.UnitKilogram, "6.00"))
	require.NoError(t, err)
	require.Equal(t, []string{"material:flour", "material:cocoa"}, cache.dels)
}
