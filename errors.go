// Package fcs implements a reader and writer for the Flow Cytometry
// Standard (FCS) file format, versions 2.0, 3.0 and 3.1.
package fcs

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (possibly wrapped with fmt.Errorf's %w) by the
// reader and writer. Use errors.Is/errors.As to distinguish them.
var (
	// ErrIO indicates the underlying byte source failed: a seek, a short
	// read, or unexpected EOF.
	ErrIO = errors.New("fcs: io error")

	// ErrParse indicates a structural violation of the FCS format: bad
	// header digits, malformed TEXT pairs, an unsupported mode, or a data
	// section size that isn't explained by the well-known off-by-one bug.
	ErrParse = errors.New("fcs: parse error")

	// ErrUnsupported indicates a datatype the writer cannot emit, or a
	// histogram mode (C, U) the reader does not support.
	ErrUnsupported = errors.New("fcs: unsupported")

	// ErrKeywordNotFound names the absent-required-keyword condition. The
	// reader does not return it: a missing required TEXT keyword is
	// reported as an ErrParse error naming the keyword.
	ErrKeywordNotFound = errors.New("fcs: keyword not found")
)

// OffsetDiscrepancyError reports that HEADER and TEXT disagree about the
// DATA segment's byte bounds and the caller has not opted into tolerance
// via WithIgnoreOffsetDiscrepancy or WithHeaderOffsets.
type OffsetDiscrepancyError struct {
	Field        string // "data_start" or "data_stop"
	HeaderValue  int64
	TextValue    int64
}

func (e *OffsetDiscrepancyError) Error() string {
	return fmt.Sprintf("fcs: %s discrepancy: %d (HEADER) vs %d (TEXT)", e.Field, e.HeaderValue, e.TextValue)
}

// Unwrap lets errors.Is(err, ErrParse) succeed for an OffsetDiscrepancyError.
func (e *OffsetDiscrepancyError) Unwrap() error { return ErrParse }

// MultipleDataSetsError indicates the file has a nonzero $NEXTDATA and the
// caller used the single-data-set entry point, or that a negative NEXTDATA
// value appeared while chaining data sets.
type MultipleDataSetsError struct {
	NextData int64
}

func (e *MultipleDataSetsError) Error() string {
	if e.NextData < 0 {
		return fmt.Sprintf("fcs: negative $NEXTDATA offset %d", e.NextData)
	}
	return fmt.Sprintf("fcs: file contains additional data sets ($NEXTDATA=%d); use ReadMultipleDataSets", e.NextData)
}

// PnEWarning reports a writer-supplied $PnE override with nonzero decades,
// giving the value as supplied and as written (a log0 of 0 is written as 1).
type PnEWarning struct {
	Channel  int
	Original string
	Rewritten string
}

func (w *PnEWarning) Error() string {
	return fmt.Sprintf("fcs: P%dE %q rewritten to %q", w.Channel, w.Original, w.Rewritten)
}

// WarnKind classifies a non-fatal condition encountered while parsing.
type WarnKind int

const (
	// WarnUnknownVersion: the HEADER version tag was not FCS2.0/3.0/3.1;
	// parsing proceeded as if it were 3.1.
	WarnUnknownVersion WarnKind = iota
	// WarnOffByOne: the data section size was one byte more than a
	// multiple of the per-event byte width; data_stop was decremented
	// by one.
	WarnOffByOne
	// WarnUnsupportedByteOrder: $BYTEORD was neither little- nor
	// big-endian notation; the host's native byte order was used.
	WarnUnsupportedByteOrder
	// WarnNonStandardBitWidth: a uniform integer bit width outside
	// {8,16,32} was encountered; no data was decoded for it.
	WarnNonStandardBitWidth
	// WarnPnE: see PnEWarning.
	WarnPnE
)

// Warning is a non-fatal condition surfaced alongside a successful parse.
// Warnings never abort decoding; callers needing authoritative detail
// should type-switch or errors.As against Detail.
type Warning struct {
	Kind    WarnKind
	Message string
	Detail  error // may be nil; e.g. *PnEWarning for WarnPnE
}

func (w Warning) Error() string { return w.Message }

func ioErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrIO}, args...)...)
}

func parseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrParse}, args...)...)
}

func unsupportedErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrUnsupported}, args...)...)
}
