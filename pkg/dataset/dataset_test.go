package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/kg"
)

func sampleMemory() *Memory {
	return NewMemory("toy", map[string][]kg.Triple{
		PartTesting:  {kg.NewTriple(1, 1, 2)},
		PartTraining: {kg.NewTriple(0, 0, 1), kg.NewTriple(1, 0, 0)},
		"extra":      {kg.NewTriple(3, 2, 0)},
	}, WithRelationLabels([]string{"likes", "knows"}))
}

func TestMemoryParts(t *testing.T) {
	ds := sampleMemory()
	assert.Equal(t, []string{PartTraining, PartTesting, "extra"}, ds.Parts())
	assert.Equal(t, 4, ds.NumEntities())
	assert.Equal(t, 3, ds.NumRelations())

	label, ok := ds.RelationLabel(1)
	assert.True(t, ok)
	assert.Equal(t, "knows", label)
	_, ok = ds.RelationLabel(2)
	assert.False(t, ok)
}

func TestMappedTriples(t *testing.T) {
	ds := sampleMemory()
	triples, err := MappedTriples(context.Background(), ds, []string{PartTraining, PartTesting})
	require.NoError(t, err)
	assert.Equal(t, []kg.Triple{
		kg.NewTriple(0, 0, 1), kg.NewTriple(1, 0, 0), kg.NewTriple(1, 1, 2),
	}, triples)

	_, err = MappedTriples(context.Background(), ds, []string{"nope"})
	assert.ErrorIs(t, err, ErrUnknownPart)
}

func TestNormalizeParts(t *testing.T) {
	ds := sampleMemory()

	parts, err := NormalizeParts(ds, nil)
	require.NoError(t, err)
	assert.Equal(t, ds.Parts(), parts)

	parts, err = NormalizeParts(ds, []string{PartTesting, PartTesting, PartTraining})
	require.NoError(t, err)
	assert.Equal(t, []string{PartTesting, PartTraining}, parts)

	_, err = NormalizeParts(ds, []string{"trainng"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPart)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Contains(t, err.Error(), `did you mean "training"`)

	_, err = NormalizeParts(ds, []string{"zzzzzzzzzz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available")
}

func TestSuggest(t *testing.T) {
	candidates := []string{PartTraining, PartValidation, PartTesting}
	s, ok := Suggest("train", candidates)
	assert.True(t, ok)
	assert.Equal(t, PartTraining, s)

	s, ok = Suggest("VALIDATON", candidates)
	assert.True(t, ok)
	assert.Equal(t, PartValidation, s)

	_, ok = Suggest("qqq", candidates)
	assert.False(t, ok)
}

func TestLoadTSVWithMetadata(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveTSV(dir, "family", map[string][]LabeledTriple{
		PartTraining: {{"alice", "married_to", "bob"}, {"bob", "married_to", "alice"}},
		PartTesting:  {{"bob", "parent_of", "carol"}},
	}))

	ds, err := LoadTSV(dir)
	require.NoError(t, err)
	assert.Equal(t, "family", ds.Name())
	assert.Equal(t, []string{PartTraining, PartTesting}, ds.Parts())
	assert.Equal(t, []string{"alice", "bob", "carol"}, ds.EntityLabels())
	assert.Equal(t, []string{"married_to", "parent_of"}, ds.RelationLabels())

	training, err := Collect(ds.Triples(context.Background(), PartTraining))
	require.NoError(t, err)
	assert.Equal(t, []kg.Triple{kg.NewTriple(0, 0, 1), kg.NewTriple(1, 0, 0)}, training)

	testPart, err := Collect(ds.Triples(context.Background(), PartTesting))
	require.NoError(t, err)
	assert.Equal(t, []kg.Triple{kg.NewTriple(1, 1, 2)}, testPart)
}

func TestLoadTSVConventionalNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nations")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.txt"), []byte("a\tr\tb\n\nb\tr\ta\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.txt"), []byte("a\ts\tc\r\n"), 0o644))

	ds, err := LoadTSV(dir)
	require.NoError(t, err)
	assert.Equal(t, "nations", ds.Name())
	assert.Equal(t, []string{PartTraining, PartTesting}, ds.Parts())
	assert.Equal(t, 3, ds.NumEntities())
	assert.Equal(t, 2, ds.NumRelations())
}

func TestLoadTSVErrors(t *testing.T) {
	_, err := LoadTSV(t.TempDir())
	assert.ErrorIs(t, err, ErrNoSplits)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.txt"), []byte("a\tr\n"), 0o644))
	_, err = LoadTSV(dir)
	assert.ErrorIs(t, err, ErrMalformedLine)
}
