package dataset

import (
	"fmt"

	"github.com/duynguyendang/relpat/pkg/common/errors"
)

var (
	// ErrUnknownPart is returned for split names the dataset does not have.
	ErrUnknownPart = fmt.Errorf("%w: unknown dataset part", errors.ErrInvalidInput)
	// ErrNoSplits is returned when a dataset directory has no split files.
	ErrNoSplits = fmt.Errorf("%w: no dataset splits found", errors.ErrNotFound)
	// ErrMalformedLine is returned for triple lines without exactly three columns.
	ErrMalformedLine = fmt.Errorf("%w: malformed triple line", errors.ErrInvalidInput)
)
