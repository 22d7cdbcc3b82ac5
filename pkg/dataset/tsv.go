package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// conventionalSplits maps well-known split file names to part names; used when
// a directory has no dataset.yaml.
var conventionalSplits = []struct {
	file string
	part string
}{
	{"train.txt", PartTraining},
	{"valid.txt", PartValidation},
	{"test.txt", PartTesting},
	{"train.tsv", PartTraining},
	{"valid.tsv", PartValidation},
	{"test.tsv", PartTesting},
}

// LabeledTriple is a (head, relation, tail) triple of labels.
type LabeledTriple [3]string

// LoadTSV loads a labeled-triples dataset directory.
// Ids are assigned by sorted label order over the union of all splits.
func LoadTSV(dir string) (*Memory, error) {
	meta, err := resolveMetadata(dir)
	if err != nil {
		return nil, err
	}

	labeled := make(map[string][]LabeledTriple, len(meta.Splits))
	entitySet := make(map[string]struct{})
	relationSet := make(map[string]struct{})
	for part, file := range meta.Splits {
		triples, err := readTriplesFile(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", part, err)
		}
		for _, t := range triples {
			entitySet[t[0]] = struct{}{}
			relationSet[t[1]] = struct{}{}
			entitySet[t[2]] = struct{}{}
		}
		labeled[part] = triples
	}

	entityLabels := sortedKeys(entitySet)
	relationLabels := sortedKeys(relationSet)
	entityToID := indexLabels(entityLabels)
	relationToID := indexLabels(relationLabels)

	parts := make(map[string][]kg.Triple, len(labeled))
	for part, triples := range labeled {
		mapped := make([]kg.Triple, len(triples))
		for i, t := range triples {
			mapped[i] = kg.Triple{
				Head:     entityToID[t[0]],
				Relation: relationToID[t[1]],
				Tail:     entityToID[t[2]],
			}
		}
		parts[part] = mapped
	}

	return NewMemory(meta.Name, parts,
		WithEntityLabels(entityLabels),
		WithRelationLabels(relationLabels),
		WithIDSpaces(len(entityLabels), len(relationLabels)),
	), nil
}

// SaveTSV writes a labeled-triples dataset directory readable by LoadTSV.
// Each split is written to <part>.tsv.
func SaveTSV(dir, name string, splits map[string][]LabeledTriple) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	meta := &Metadata{Name: name, Splits: make(map[string]string, len(splits))}
	for part, triples := range splits {
		file := part + ".tsv"
		meta.Splits[part] = file
		if err := writeTriplesFile(filepath.Join(dir, file), triples); err != nil {
			return fmt.Errorf("split %s: %w", part, err)
		}
	}
	return SaveMetadata(filepath.Join(dir, MetadataFile), meta)
}

func resolveMetadata(dir string) (*Metadata, error) {
	path := filepath.Join(dir, MetadataFile)
	meta, err := LoadMetadata(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		meta = &Metadata{Splits: map[string]string{}}
		for _, c := range conventionalSplits {
			if _, ok := meta.Splits[c.part]; ok {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, c.file)); err == nil {
				meta.Splits[c.part] = c.file
			}
		}
	default:
		return nil, err
	}
	if meta.Name == "" {
		meta.Name = filepath.Base(filepath.Clean(dir))
	}
	if len(meta.Splits) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSplits, dir)
	}
	return meta, nil
}

func readTriplesFile(path string) ([]LabeledTriple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLabeledTriples(f)
}

// ReadLabeledTriples parses tab-separated head/relation/tail lines.
// Blank lines are skipped.
func ReadLabeledTriples(r io.Reader) ([]LabeledTriple, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	var out []LabeledTriple
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) != 3 {
			return nil, fmt.Errorf("%w: line %d has %d columns", ErrMalformedLine, line, len(cols))
		}
		out = append(out, LabeledTriple{
			strings.TrimSpace(cols[0]),
			strings.TrimSpace(cols[1]),
			strings.TrimSpace(cols[2]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeTriplesFile(path string, triples []LabeledTriple) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, t := range triples {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", t[0], t[1], t[2]); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func indexLabels(labels []string) map[string]uint32 {
	m := make(map[string]uint32, len(labels))
	for i, l := range labels {
		m[l] = uint32(i)
	}
	return m
}

// IsTSVDir reports whether dir looks like a labeled TSV dataset directory.
func IsTSVDir(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, MetadataFile)); err == nil {
		return true
	}
	for _, c := range conventionalSplits {
		if _, err := os.Stat(filepath.Join(dir, c.file)); err == nil {
			return true
		}
	}
	return false
}
