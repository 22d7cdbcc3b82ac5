package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyendang/relpat/pkg/analysis"
	"github.com/duynguyendang/relpat/pkg/dataset"
)

func saveFamily(t *testing.T, dir string) {
	t.Helper()
	err := dataset.SaveTSV(dir, "family", map[string][]dataset.LabeledTriple{
		dataset.PartTraining: {
			{"alice", "married_to", "bob"},
			{"bob", "married_to", "alice"},
			{"alice", "parent_of", "carol"},
		},
		dataset.PartTesting: {{"bob", "parent_of", "carol"}},
	})
	require.NoError(t, err)
}

// run executes the CLI with a fresh cache directory and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("RELPAT_CACHE_DIR", filepath.Join(t.TempDir(), "cache"))
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "relpat v"))
}

func TestClassifyCommand(t *testing.T) {
	dataDir := t.TempDir()
	saveFamily(t, filepath.Join(dataDir, "family"))

	out, err := run(t, "classify", "family",
		"--data-dir", dataDir,
		"--progress=false",
		"--drop-confidence=false",
		"--labels",
	)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "relation_id\trelation_label\tpattern\tsupport\tconfidence", lines[0])
	assert.Contains(t, out, "0\tmarried_to\tsymmetry\t2\t1\n")
}

func TestClassifyCommandDatasetPathAndJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "family")
	saveFamily(t, dir)
	outFile := filepath.Join(t.TempDir(), "patterns.json")

	_, err := run(t, "classify", dir, "--progress=false", "--format", "json", "-o", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var table analysis.PatternTable
	require.NoError(t, json.Unmarshal(data, &table))
	assert.Equal(t, "family", table.Dataset)
	assert.NotEmpty(t, table.Patterns)
}

func TestClassifyCommandRejectsBadThreshold(t *testing.T) {
	dataDir := t.TempDir()
	saveFamily(t, filepath.Join(dataDir, "family"))
	_, err := run(t, "classify", "family", "--data-dir", dataDir, "--min-confidence", "1.5")
	assert.Error(t, err)
}

func TestUnknownDatasetSuggestsID(t *testing.T) {
	dataDir := t.TempDir()
	saveFamily(t, filepath.Join(dataDir, "family"))
	_, err := run(t, "cardinality", "famly", "--data-dir", dataDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "family"`)
}

func TestIngestThenCounts(t *testing.T) {
	src := filepath.Join(t.TempDir(), "family")
	saveFamily(t, src)
	dataDir := t.TempDir()

	out, err := run(t, "ingest", src, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "family\t"))
	assert.DirExists(t, filepath.Join(dataDir, "family", "badger"))

	out, err = run(t, "counts", "family", "--data-dir", dataDir)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "relation_label\ttraining\ttesting\ttotal", lines[0])
	assert.Equal(t, "married_to\t2\t0\t2", lines[1])
	assert.Equal(t, "parent_of\t1\t1\t2", lines[2])

	out, err = run(t, "counts", "family", "--data-dir", dataDir, "--by", "cooccurrence")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1+3*3)
	assert.Equal(t, "part\tentity_id\tentity_label\tmarried_to.head\tmarried_to.tail\tparent_of.head\tparent_of.tail", lines[0])
	assert.Equal(t, "training\t0\talice\t1\t1\t1\t0", lines[1])
	assert.Equal(t, "total\t2\tcarol\t0\t0\t0\t2", lines[9])

	out, err = run(t, "counts", "family", "--data-dir", dataDir, "--by", "cooccurrence", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"relations": [`)
}

func TestFunctionalityCommand(t *testing.T) {
	dataDir := t.TempDir()
	saveFamily(t, filepath.Join(dataDir, "family"))
	out, err := run(t, "functionality", "family", "--data-dir", dataDir, "--parts", "training")
	require.NoError(t, err)
	assert.Contains(t, out, "married_to\t1\t1")
}

func TestBarProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newBarProgress("test ", &buf)
	p.Increment()
	p.Start(3)
	for range 3 {
		p.Increment()
	}
	p.Finish()
	p.Finish()
	assert.Contains(t, buf.String(), "test")
}
