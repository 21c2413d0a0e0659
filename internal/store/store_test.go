package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/ddoc/internal/model"
	"github.com/phobologic/ddoc/internal/registry"
	"github.com/phobologic/ddoc/internal/xref"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".ddoc", "ddoc.db"), 8, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecords() []registry.Record {
	reg := registry.New()
	reg.Register("a.b", "widgets", model.Module)
	reg.Register("a.b.Widget", "widgets", model.Class)
	reg.Register("a.b.Widget.count", "widgets", model.Variable)
	return reg.Records()
}

func TestOpenCreatesDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "ddoc.db")
	s, err := Open(path, 0, nil)
	require.NoError(t, err)
	defer s.Close()
	assert.FileExists(t, path)
	assert.Equal(t, path, s.Path())
}

func TestSaveAndLookup(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()

	b, err := s.Save(ctx, sampleRecords(), 1)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 3, b.Objects)

	e, ok := s.Lookup("a.b.Widget")
	require.True(t, ok)
	assert.Equal(t, model.Entry{Doc: "widgets", Kind: model.Class}, e)

	_, ok = s.Lookup("a.b.Gadget")
	assert.False(t, ok)
}

func TestSaveReplacesObjects(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Save(ctx, sampleRecords(), 1)
	require.NoError(t, err)

	// Warm the cache with both a hit and a miss.
	_, ok := s.Lookup("a.b.Widget")
	require.True(t, ok)
	_, ok = s.Lookup("c.Gadget")
	require.False(t, ok)

	second, err := s.Save(ctx, []registry.Record{
		{Name: "c.Gadget", Entry: model.Entry{Doc: "gadgets", Kind: model.Struct}},
	}, 1)
	require.NoError(t, err)

	_, ok = s.Lookup("a.b.Widget")
	assert.False(t, ok, "old objects must be gone")
	e, ok := s.Lookup("c.Gadget")
	require.True(t, ok, "cached miss must be invalidated")
	assert.Equal(t, "gadgets", e.Doc)

	last, ok, err := s.LastBuild(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, last.ID)
	assert.Equal(t, 1, last.Objects)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()
	_, err := s.Save(ctx, sampleRecords(), 1)
	require.NoError(t, err)

	reg := registry.New()
	n, err := s.Load(ctx, reg)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, sampleRecords(), reg.Records())
}

func TestReopenKeepsObjects(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ddoc.db")
	s, err := Open(path, 0, nil)
	require.NoError(t, err)
	_, err = s.Save(context.Background(), sampleRecords(), 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, 0, nil)
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.Lookup("a.b.Widget.count")
	assert.True(t, ok)
}

func TestResolverAgainstStore(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	_, err := s.Save(context.Background(), sampleRecords(), 1)
	require.NoError(t, err)

	r := xref.NewResolver(s)
	got, ok := r.Resolve(model.Variable, "count", "a.b.Widget")
	require.True(t, ok)
	assert.Equal(t, "a.b.Widget.count", got.Name)
	assert.Equal(t, "widgets", got.Doc)
}

func TestLastBuildEmpty(t *testing.T) {
	t.Parallel()

	_, ok, err := openTemp(t).LastBuild(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportJSON(t *testing.T) {
	t.Parallel()

	s := openTemp(t)
	ctx := context.Background()
	b, err := s.Save(ctx, sampleRecords(), 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(ctx, &buf))

	var inv struct {
		Build   string `json:"build"`
		Objects map[string]struct {
			Doc  string `json:"doc"`
			Kind string `json:"kind"`
		} `json:"objects"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &inv))
	assert.Equal(t, b.ID, inv.Build)
	require.Len(t, inv.Objects, 3)
	assert.Equal(t, "module", inv.Objects["a.b"].Kind)
	assert.Equal(t, "widgets", inv.Objects["a.b.Widget.count"].Doc)
}
