package kg

import "errors"

var (
	ErrUnknownPattern = errors.New("unknown pattern")
	ErrMalformedTable = errors.New("malformed pattern table")
)
