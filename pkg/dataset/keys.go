package dataset

import (
	"encoding/binary"
	"fmt"

	"github.com/duynguyendang/relpat/pkg/kg"
)

// Key prefixes for persisted datasets.
const (
	triplePrefix byte = 0x01 // [prefix | part(1) | seq(8)] -> h|r|t
	labelPrefix  byte = 0x81 // [prefix | kind(1) | id(4)] -> label
	systemPrefix byte = 0xFF
)

// LabelKind distinguishes entity labels from relation labels.
type LabelKind byte

const (
	EntityLabels   LabelKind = 'e'
	RelationLabels LabelKind = 'r'
)

// keyMetadata stores the JSON encoded dataset metadata.
var keyMetadata = []byte{systemPrefix, 0x01}

const (
	tripleKeySize   = 1 + 1 + 8
	tripleValueSize = 12
	labelKeySize    = 1 + 1 + 4
)

// encodeTripleKey keys triples by insertion sequence so that duplicates and
// source order survive the round trip.
func encodeTripleKey(part byte, seq uint64) []byte {
	key := make([]byte, tripleKeySize)
	key[0] = triplePrefix
	key[1] = part
	binary.BigEndian.PutUint64(key[2:], seq)
	return key
}

func encodePartPrefix(part byte) []byte {
	return []byte{triplePrefix, part}
}

func encodeTripleValue(t kg.Triple) []byte {
	val := make([]byte, tripleValueSize)
	binary.BigEndian.PutUint32(val[0:4], t.Head)
	binary.BigEndian.PutUint32(val[4:8], t.Relation)
	binary.BigEndian.PutUint32(val[8:12], t.Tail)
	return val
}

func decodeTripleValue(val []byte) (kg.Triple, error) {
	if len(val) != tripleValueSize {
		return kg.Triple{}, fmt.Errorf("invalid triple value length %d", len(val))
	}
	return kg.Triple{
		Head:     binary.BigEndian.Uint32(val[0:4]),
		Relation: binary.BigEndian.Uint32(val[4:8]),
		Tail:     binary.BigEndian.Uint32(val[8:12]),
	}, nil
}

func encodeLabelKey(kind LabelKind, id uint32) []byte {
	key := make([]byte, labelKeySize)
	key[0] = labelPrefix
	key[1] = byte(kind)
	binary.BigEndian.PutUint32(key[2:], id)
	return key
}
