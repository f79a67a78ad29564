package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashide/flashide/internal/infrastructure/storage"
)

func newSQLiteStore(t *testing.T) (*Store, *SQLiteBackend) {
	t.Helper()
	backend, err := NewSQLiteBackend(context.Background(), storage.OpenMemory(t))
	require.NoError(t, err)

	store, err := NewStore(context.Background(), backend, Defaults(), nil)
	require.NoError(t, err)
	return store, backend
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in      string
		want    Field
		wantErr bool
	}{
		{in: "html", want: HTML},
		{in: "CSS", want: CSS},
		{in: " js ", want: JS},
		{in: "python", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseField(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldKey(t *testing.T) {
	assert.Equal(t, "htmlCode", HTML.Key())
	assert.Equal(t, "cssCode", CSS.Key())
	assert.Equal(t, "jsCode", JS.Key())
}

func TestNewStoreUsesDefaults(t *testing.T) {
	store, _ := newSQLiteStore(t)

	assert.Equal(t, Defaults(), store.Document())
	assert.Equal(t, "console.log('Hello, World!');", store.Get(JS))
	assert.Contains(t, store.Get(HTML), "<h1>Hello, World!</h1>")
}

func TestSetPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workspace.db")

	db, err := storage.Open(path)
	require.NoError(t, err)
	backend, err := NewSQLiteBackend(ctx, db)
	require.NoError(t, err)
	store, err := NewStore(ctx, backend, Defaults(), nil)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, CSS, "h1 { color: red; }"))
	require.NoError(t, store.Set(ctx, JS, ""))
	require.NoError(t, db.Close())

	db, err = storage.Open(path)
	require.NoError(t, err)
	defer db.Close()
	backend, err = NewSQLiteBackend(ctx, db)
	require.NoError(t, err)
	reloaded, err := NewStore(ctx, backend, Defaults(), nil)
	require.NoError(t, err)

	assert.Equal(t, "h1 { color: red; }", reloaded.Get(CSS))
	assert.Equal(t, "", reloaded.Get(JS))
	assert.Equal(t, Defaults().HTML, reloaded.Get(HTML))

	value, ok, err := backend.Load(ctx, "cssCode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "h1 { color: red; }", value)
}

func TestSetNotifiesListenersAfterPersisting(t *testing.T) {
	ctx := context.Background()
	store, backend := newSQLiteStore(t)

	var calls []string
	cancel := store.OnChange(func(field Field, value string) {
		stored, ok, err := backend.Load(ctx, field.Key())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, value, stored)
		assert.Equal(t, value, store.Get(field))
		calls = append(calls, field.String()+"="+value)
	})

	require.NoError(t, store.Set(ctx, HTML, "<p>a</p>"))
	require.NoError(t, store.Set(ctx, HTML, "<p>a</p>"))
	assert.Equal(t, []string{"html=<p>a</p>", "html=<p>a</p>"}, calls)

	cancel()
	require.NoError(t, store.Set(ctx, CSS, "x"))
	assert.Len(t, calls, 2)
}

func TestSetRejectsUnknownField(t *testing.T) {
	store, _ := newSQLiteStore(t)

	err := store.Set(context.Background(), Field("HTML"), "x")
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, Defaults(), store.Document())
}

type failingBackend struct{}

func (failingBackend) Load(context.Context, string) (string, bool, error) { return "", false, nil }
func (failingBackend) Save(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestSetFailureLeavesStateUnchanged(t *testing.T) {
	store, err := NewStore(context.Background(), failingBackend{}, Defaults(), nil)
	require.NoError(t, err)

	notified := false
	store.OnChange(func(Field, string) { notified = true })

	err = store.Set(context.Background(), JS, "alert(1)")
	assert.Error(t, err)
	assert.False(t, notified)
	assert.Equal(t, Defaults().JS, store.Get(JS))
}

func TestParseSeed(t *testing.T) {
	doc, err := ParseSeed([]byte("css: \"p { margin: 0; }\"\njs: \"\"\n"))
	require.NoError(t, err)

	assert.Equal(t, Defaults().HTML, doc.HTML)
	assert.Equal(t, "p { margin: 0; }", doc.CSS)
	assert.Equal(t, "", doc.JS)

	_, err = ParseSeed([]byte("html: [unclosed"))
	assert.Error(t, err)
}

func TestLoadSeed(t *testing.T) {
	doc, err := LoadSeed("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), doc)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
