package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/storage/gcs"
	"github.com/stretchr/testify/require"
)

const quoteID = "Q20260402_103000_1_abcdef"

func TestFileStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Put(ctx, quoteID, []byte("# Quote"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "quote_"+quoteID+".md"), path)

	got, err := store.Get(ctx, quoteID)
	require.NoError(t, err)
	require.Equal(t, "# Quote", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStoreMissingAndMalformed(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "Q20260402_103000_9_ffffff")
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = store.Get(ctx, "../../etc/passwd")
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = store.Put(ctx, "../escape", []byte("x"))
	require.Error(t, err)
}

type fakeObjects struct {
	data map[string][]byte
	err  error
}

func (f *fakeObjects) PutObject(_ context.Context, name, contentType string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	if contentType != ContentType {
		return errors.New("unexpected content type")
	}
	f.data[name] = data
	return nil
}

func (f *fakeObjects) GetObject(_ context.Context, name string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.data[name]
	if !ok {
		return nil, gcs.ErrObjectNotFound
	}
	return v, nil
}

func TestObjectStoreRoundTrip(t *testing.T) {
	objects := &fakeObjects{data: map[string][]byte{}}
	store, err := NewObjectStore(objects, "quotes/")
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Put(ctx, quoteID, []byte("# Quote"))
	require.NoError(t, err)
	require.Equal(t, "quotes/quote_"+quoteID+".md", key)

	got, err := store.Get(ctx, quoteID)
	require.NoError(t, err)
	require.Equal(t, "# Quote", string(got))

	_, err = store.Get(ctx, "Q20260402_103000_2_aaaaaa")
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestObjectStoreWrapsFailures(t *testing.T) {
	objects := &fakeObjects{data: map[string][]byte{}, err: errors.New("503")}
	store, err := NewObjectStore(objects, "")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), quoteID, []byte("x"))
	require.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
