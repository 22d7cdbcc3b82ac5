package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/duynguyendang/relpat/pkg/common/errors"
	"github.com/duynguyendang/relpat/pkg/kg"
	"github.com/duynguyendang/relpat/pkg/store"
)

// ErrPartExists is returned when writing a part that is already stored.
var ErrPartExists = fmt.Errorf("%w: dataset part already exists", errors.ErrConflict)

const defaultLabelCacheSize = 100_000

// storedMetadata is persisted under keyMetadata.
type storedMetadata struct {
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Parts        []string       `json:"parts"`
	Counts       map[string]int `json:"counts"`
	NumEntities  int            `json:"num_entities"`
	NumRelations int            `json:"num_relations"`
}

type labelKey struct {
	kind LabelKind
	id   uint32
}

// BadgerDataset is a Dataset persisted in BadgerDB. Triples are stored per part
// in insertion order; labels are looked up lazily through an LRU cache.
type BadgerDataset struct {
	db     *badger.DB
	config *store.Config
	labels *expirable.LRU[labelKey, string]

	mu   sync.RWMutex
	meta storedMetadata
}

// OpenBadger opens (or creates) a persisted dataset.
func OpenBadger(cfg *store.Config) (*BadgerDataset, error) {
	db, err := store.OpenBadgerDB(cfg)
	if err != nil {
		return nil, err
	}
	d := &BadgerDataset{
		db:     db,
		config: cfg,
		labels: expirable.NewLRU[labelKey, string](defaultLabelCacheSize, nil, 0),
		meta:   storedMetadata{Counts: map[string]int{}},
	}
	if err := d.loadMetadata(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load dataset metadata: %w", err)
	}
	slog.Debug("opened persisted dataset",
		"dataDir", cfg.DataDir,
		"name", d.meta.Name,
		"parts", d.meta.Parts,
	)
	return d, nil
}

// Close releases the underlying database.
func (d *BadgerDataset) Close() error {
	return d.db.Close()
}

func (d *BadgerDataset) loadMetadata() error {
	return d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyMetadata)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var meta storedMetadata
			if err := json.Unmarshal(val, &meta); err != nil {
				return err
			}
			if meta.Counts == nil {
				meta.Counts = map[string]int{}
			}
			d.meta = meta
			return nil
		})
	})
}

// saveMetadata must be called with d.mu held.
func (d *BadgerDataset) saveMetadata() error {
	data, err := json.Marshal(d.meta)
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyMetadata, data)
	})
}

// SetInfo records the dataset name, description and id-space sizes.
func (d *BadgerDataset) SetInfo(name, description string, numEntities, numRelations int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.Name = name
	d.meta.Description = description
	d.meta.NumEntities = numEntities
	d.meta.NumRelations = numRelations
	return d.saveMetadata()
}

// WritePart stores all triples of seq as a new part and returns how many were written.
func (d *BadgerDataset) WritePart(ctx context.Context, part string, seq iter.Seq2[kg.Triple, error]) (n int, err error) {
	if part == "" {
		return 0, fmt.Errorf("%w: empty part name", ErrUnknownPart)
	}
	d.mu.Lock()
	if slices.Contains(d.meta.Parts, part) {
		d.mu.Unlock()
		return 0, fmt.Errorf("%w: %q", ErrPartExists, part)
	}
	if len(d.meta.Parts) >= 255 {
		d.mu.Unlock()
		return 0, errors.Invalidf("dataset has too many parts (max 255)")
	}
	idx := byte(len(d.meta.Parts))
	// Reserve the slot so concurrent writers get distinct prefixes.
	d.meta.Parts = append(d.meta.Parts, part)
	d.mu.Unlock()

	defer func() {
		if err != nil {
			// Blank the slot instead of removing it: later parts keep their prefixes.
			d.mu.Lock()
			d.meta.Parts[idx] = ""
			d.mu.Unlock()
		}
	}()

	wb := d.db.NewWriteBatch()
	defer wb.Cancel()

	var seqNo uint64
	for t, err := range seq {
		if err != nil {
			return 0, err
		}
		if seqNo%4096 == 0 && ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if err := wb.Set(encodeTripleKey(idx, seqNo), encodeTripleValue(t)); err != nil {
			return 0, fmt.Errorf("failed to buffer triple: %w", err)
		}
		seqNo++
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush part %s: %w", part, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.meta.Counts[part] = int(seqNo)
	if err := d.saveMetadata(); err != nil {
		return 0, err
	}
	return int(seqNo), nil
}

// WriteLabels stores id -> label mappings for one kind (index = id).
func (d *BadgerDataset) WriteLabels(kind LabelKind, labels []string) error {
	wb := d.db.NewWriteBatch()
	defer wb.Cancel()
	for id, label := range labels {
		if err := wb.Set(encodeLabelKey(kind, uint32(id)), []byte(label)); err != nil {
			return fmt.Errorf("failed to buffer label: %w", err)
		}
	}
	return wb.Flush()
}

func (d *BadgerDataset) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.meta.Name
}

func (d *BadgerDataset) Parts() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	live := slices.DeleteFunc(slices.Clone(d.meta.Parts), func(p string) bool { return p == "" })
	return orderParts(live)
}

// Count returns the number of triples stored for part.
func (d *BadgerDataset) Count(part string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.meta.Counts[part]
}

func (d *BadgerDataset) NumEntities() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.meta.NumEntities
}

func (d *BadgerDataset) NumRelations() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.meta.NumRelations
}

func (d *BadgerDataset) partIndex(part string) (byte, bool) {
	if part == "" {
		return 0, false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := slices.Index(d.meta.Parts, part)
	if i < 0 {
		return 0, false
	}
	return byte(i), true
}

// Triples scans one part in insertion order.
func (d *BadgerDataset) Triples(ctx context.Context, part string) iter.Seq2[kg.Triple, error] {
	return func(yield func(kg.Triple, error) bool) {
		idx, ok := d.partIndex(part)
		if !ok {
			yield(kg.Triple{}, fmt.Errorf("%w: %q", ErrUnknownPart, part))
			return
		}

		txn := d.db.NewTransaction(false)
		defer txn.Discard()

		opts := badger.DefaultIteratorOptions
		opts.Prefix = encodePartPrefix(idx)
		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		for it.Rewind(); it.Valid(); it.Next() {
			if n%4096 == 0 && ctx.Err() != nil {
				yield(kg.Triple{}, ctx.Err())
				return
			}
			n++
			var t kg.Triple
			err := it.Item().Value(func(val []byte) error {
				var err error
				t, err = decodeTripleValue(val)
				return err
			})
			if !yield(t, err) || err != nil {
				return
			}
		}
	}
}

func (d *BadgerDataset) EntityLabel(id uint32) (string, bool) {
	return d.label(EntityLabels, id)
}

func (d *BadgerDataset) RelationLabel(id uint32) (string, bool) {
	return d.label(RelationLabels, id)
}

func (d *BadgerDataset) label(kind LabelKind, id uint32) (string, bool) {
	k := labelKey{kind: kind, id: id}
	if l, ok := d.labels.Get(k); ok {
		return l, true
	}
	var label string
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeLabelKey(kind, id))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		label = string(v)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			slog.Warn("label lookup failed", "kind", string(kind), "id", id, "error", err)
		}
		return "", false
	}
	d.labels.Add(k, label)
	return label, true
}
