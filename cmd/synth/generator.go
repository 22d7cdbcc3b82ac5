package main

import (
	"fmt"
	"math/rand"

	"github.com/duynguyendang/relpat/pkg/dataset"
)

// Planted relation names. Generated graphs contain these on top of the noise relations.
const (
	relSymmetric = "planted_symmetric"
	relForward   = "planted_inverse_a"
	relBackward  = "planted_inverse_b"
	relFirst     = "planted_path_first"
	relSecond    = "planted_path_second"
	relComposed  = "planted_path_composed"
)

// GeneratorConfig controls the size and shape of a synthetic graph.
type GeneratorConfig struct {
	Entities  int
	Relations int // noise relations, in addition to the planted ones
	Triples   int // noise triples
	// Planted is the number of instances of each planted pattern.
	Planted int
	Seed    int64
}

// DataGenerator builds random knowledge graphs with planted symmetric,
// inverse and composed relations.
type DataGenerator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewDataGenerator creates a new data generator.
func NewDataGenerator(cfg GeneratorConfig) *DataGenerator {
	return &DataGenerator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

func (g *DataGenerator) entity() string {
	return fmt.Sprintf("e%d", g.rng.Intn(g.cfg.Entities))
}

// Generate returns the labeled triples of one graph. Duplicates are possible.
func (g *DataGenerator) Generate() []dataset.LabeledTriple {
	out := make([]dataset.LabeledTriple, 0, g.cfg.Triples+6*g.cfg.Planted)

	for i := 0; i < g.cfg.Triples; i++ {
		rel := fmt.Sprintf("r%d", g.rng.Intn(g.cfg.Relations))
		out = append(out, dataset.LabeledTriple{g.entity(), rel, g.entity()})
	}

	for i := 0; i < g.cfg.Planted; i++ {
		// Symmetry: both directions.
		a, b := g.entity(), g.entity()
		out = append(out,
			dataset.LabeledTriple{a, relSymmetric, b},
			dataset.LabeledTriple{b, relSymmetric, a},
		)

		// Inversion is scored on the stored pair sets, so both relations get (a, b).
		a, b = g.entity(), g.entity()
		out = append(out,
			dataset.LabeledTriple{a, relForward, b},
			dataset.LabeledTriple{a, relBackward, b},
		)

		// Composition: first(a, y), second(y, b), composed(a, b).
		a, y, b := g.entity(), g.entity(), g.entity()
		out = append(out,
			dataset.LabeledTriple{a, relFirst, y},
			dataset.LabeledTriple{y, relSecond, b},
			dataset.LabeledTriple{a, relComposed, b},
		)
	}

	g.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Split partitions triples into training, validation and testing by the given
// fractions; the remainder goes to training.
func Split(triples []dataset.LabeledTriple, validFrac, testFrac float64) map[string][]dataset.LabeledTriple {
	n := len(triples)
	nValid := int(float64(n) * validFrac)
	nTest := int(float64(n) * testFrac)
	nTrain := n - nValid - nTest
	return map[string][]dataset.LabeledTriple{
		dataset.PartTraining:   triples[:nTrain],
		dataset.PartValidation: triples[nTrain : nTrain+nValid],
		dataset.PartTesting:    triples[nTrain+nValid:],
	}
}
