package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/relpat/pkg/dataset"
	"github.com/duynguyendang/relpat/pkg/store"
)

func writeFamily(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, dataset.SaveTSV(dir, "family", map[string][]dataset.LabeledTriple{
		dataset.PartTraining: {{"alice", "married_to", "bob"}, {"bob", "married_to", "alice"}, {"alice", "married_to", "bob"}},
		dataset.PartTesting:  {{"bob", "parent_of", "carol"}},
	}))
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	srcDir := t.TempDir()
	writeFamily(t, srcDir)
	src, err := dataset.LoadTSV(srcDir)
	require.NoError(t, err)

	dst, err := dataset.OpenBadger(store.InMemoryConfig())
	require.NoError(t, err)
	defer dst.Close()

	res, err := Run(ctx, src, dst, Options{Description: "toy"})
	require.NoError(t, err)
	assert.Equal(t, "family", res.Name)
	assert.Equal(t, map[string]int{dataset.PartTraining: 3, dataset.PartTesting: 1}, res.Counts)

	assert.Equal(t, "family", dst.Name())
	assert.Equal(t, src.Parts(), dst.Parts())
	assert.Equal(t, src.NumEntities(), dst.NumEntities())
	for _, part := range src.Parts() {
		want, err := dataset.Collect(src.Triples(ctx, part))
		require.NoError(t, err)
		got, err := dataset.Collect(dst.Triples(ctx, part))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	label, ok := dst.EntityLabel(2)
	assert.True(t, ok)
	assert.Equal(t, "carol", label)
	label, ok = dst.RelationLabel(1)
	assert.True(t, ok)
	assert.Equal(t, "parent_of", label)
}

func TestRunSelectedParts(t *testing.T) {
	srcDir := t.TempDir()
	writeFamily(t, srcDir)
	src, err := dataset.LoadTSV(srcDir)
	require.NoError(t, err)
	dst, err := dataset.OpenBadger(store.InMemoryConfig())
	require.NoError(t, err)
	defer dst.Close()

	_, err = Run(context.Background(), src, dst, Options{Name: "renamed", Parts: []string{dataset.PartTesting}})
	require.NoError(t, err)
	assert.Equal(t, "renamed", dst.Name())
	assert.Equal(t, []string{dataset.PartTesting}, dst.Parts())

	_, err = Run(context.Background(), src, dst, Options{Parts: []string{"tests"}})
	assert.ErrorIs(t, err, dataset.ErrUnknownPart)
}

func TestTree(t *testing.T) {
	srcRoot := t.TempDir()
	writeFamily(t, filepath.Join(srcRoot, "family"))
	nations := filepath.Join(srcRoot, "nested", "nations")
	require.NoError(t, os.MkdirAll(nations, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nations, "train.txt"), []byte("a\tr\tb\n"), 0o644))

	dataRoot := t.TempDir()
	results, err := Tree(context.Background(), srcRoot, dataRoot, store.DefaultConfig, Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	d, err := dataset.OpenBadger(store.DefaultConfig(filepath.Join(dataRoot, "nations")))
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, "nations", d.Name())
	assert.Equal(t, 1, d.Count(dataset.PartTraining))
}
