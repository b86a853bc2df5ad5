package fcs

import (
	"io"
	"strconv"
	"strings"
)

// Source is the seekable byte source the engine reads from: an opaque,
// caller-owned stream of known length. The engine borrows it for the
// duration of one Open/ReadMultipleDataSets call and never retains it.
type Source interface {
	io.ReaderAt
	io.Seeker
}

// ReadOptions configures Open and ReadMultipleDataSets.
type ReadOptions struct {
	IgnoreOffsetError       bool
	IgnoreOffsetDiscrepancy bool
	UseHeaderOffsets        bool
	OnlyText                bool
	NextDataOffset          int64
	NullChannels            []string
	Name                    string

	allowMultipleDataSets bool
}

// ReadOption mutates a ReadOptions; see With* constructors below.
type ReadOption func(*ReadOptions)

// WithIgnoreOffsetError tolerates the well-known "exclusive stop" bug: a
// DATA segment size that is exactly one byte longer than an even multiple
// of the per-event byte width.
func WithIgnoreOffsetError() ReadOption {
	return func(o *ReadOptions) { o.IgnoreOffsetError = true }
}

// WithIgnoreOffsetDiscrepancy tolerates HEADER and TEXT disagreeing about
// the DATA segment's byte bounds.
func WithIgnoreOffsetDiscrepancy() ReadOption {
	return func(o *ReadOptions) { o.IgnoreOffsetDiscrepancy = true }
}

// WithHeaderOffsets forces the use of HEADER's DATA offsets, bypassing
// all HEADER/TEXT reconciliation checks.
func WithHeaderOffsets() ReadOption {
	return func(o *ReadOptions) { o.UseHeaderOffsets = true }
}

// WithOnlyText decodes HEADER, TEXT and ANALYSIS but skips the DATA
// segment entirely; DataSet.Events is nil.
func WithOnlyText() ReadOption {
	return func(o *ReadOptions) { o.OnlyText = true }
}

// WithNextDataOffset sets the byte offset, relative to the start of the
// stream, at which to begin parsing. ReadMultipleDataSets manages this
// internally; callers reading a single, non-initial data set from a
// stream may set it directly.
func WithNextDataOffset(offset int64) ReadOption {
	return func(o *ReadOptions) { o.NextDataOffset = offset }
}

// WithNullChannels marks the named channels (matched case-insensitively
// against PnN) as RoleNull instead of RoleFluorescence.
func WithNullChannels(names ...string) ReadOption {
	return func(o *ReadOptions) { o.NullChannels = names }
}

// WithName attaches a caller-supplied display name to the DataSet; the
// engine has no notion of file paths (see Non-goals), so this is purely
// cosmetic (e.g. for the fcsinfo CLI).
func WithName(name string) ReadOption {
	return func(o *ReadOptions) { o.Name = name }
}

// DataSet is Header + Metadata + EventMatrix + derived ChannelSpecs. It
// is produced by exactly one read pass and is thereafter immutable except
// for the convenience Write method.
type DataSet struct {
	Header   Header
	Text     *OrderedText
	Analysis *OrderedText
	Channels []ChannelSpec

	// Events is the flat, row-major event sequence of length
	// ChannelCount*EventCount (channel index varies fastest). It is nil
	// when opened WithOnlyText.
	Events []float64

	ChannelCount int
	EventCount   int
	FileSize     int64
	Name         string
	Version      string

	warnings []Warning
}

// Warnings returns the non-fatal conditions encountered while parsing,
// in the order they were detected.
func (d *DataSet) Warnings() []Warning { return d.warnings }

// AsArray promotes Events to a row-major Matrix, applying the documented
// per-channel transforms (timestep scaling, log-scale decode, gain
// division) when preprocess is true.
func (d *DataSet) AsArray(preprocess bool) (Matrix, error) {
	return asArray(d.Events, d.Channels, d.Text, preprocess)
}

// Open reads one DataSet from source. If the data set's $NEXTDATA is
// nonzero, Open returns a *MultipleDataSetsError rather than silently
// dropping the tail data sets; use ReadMultipleDataSets instead.
func Open(source Source, opts ...ReadOption) (*DataSet, error) {
	var options ReadOptions
	for _, opt := range opts {
		opt(&options)
	}
	return open(source, options)
}

// ReadMultipleDataSets follows the $NEXTDATA chain, returning one DataSet
// per segment until a terminal $NEXTDATA=0 is reached. A negative
// $NEXTDATA anywhere in the chain is a MultipleDataSetsError.
func ReadMultipleDataSets(source Source, opts ...ReadOption) ([]*DataSet, error) {
	var options ReadOptions
	for _, opt := range opts {
		opt(&options)
	}
	options.allowMultipleDataSets = true

	var sets []*DataSet
	cumulative := options.NextDataOffset
	for {
		options.NextDataOffset = cumulative
		ds, err := open(source, options)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ds)

		nextRaw, _ := ds.Text.Get("nextdata")
		next, err := strconv.ParseInt(strings.TrimSpace(nextRaw), 10, 64)
		if err != nil {
			return nil, parseErrorf("invalid $NEXTDATA value %q", nextRaw)
		}
		if next < 0 {
			return nil, &MultipleDataSetsError{NextData: next}
		}
		if next == 0 {
			return sets, nil
		}
		cumulative += next
	}
}

func open(source Source, options ReadOptions) (*DataSet, error) {
	size, err := sizeOf(source)
	if err != nil {
		return nil, err
	}
	sr := newSectionReader(source, size)
	base := options.NextDataOffset

	header, headerWarn, err := parseHeader(sr, base)
	if err != nil {
		return nil, err
	}
	var warnings []Warning
	if headerWarn != nil {
		warnings = append(warnings, *headerWarn)
	}

	version := header.Version
	switch version {
	case "FCS2.0", "FCS3.0", "FCS3.1":
	default:
		version = "FCS3.1"
	}

	textRaw, err := sr.read(base, header.TextStart, header.TextStop)
	if err != nil {
		return nil, err
	}
	text, err := decodeTextSegment(textRaw)
	if err != nil {
		return nil, err
	}

	par, err := requiredInt(text, "par")
	if err != nil {
		return nil, err
	}
	tot, err := requiredInt(text, "tot")
	if err != nil {
		return nil, err
	}

	channels, err := parseChannels(text, par, options.NullChannels)
	if err != nil {
		return nil, err
	}

	analysis, err := decodeAnalysis(sr, base, header, text)
	if err != nil {
		return nil, err
	}

	nextData, err := requiredInt64(text, "nextdata")
	if err != nil {
		return nil, err
	}
	if nextData < 0 || (nextData != 0 && !options.allowMultipleDataSets) {
		return nil, &MultipleDataSetsError{NextData: nextData}
	}

	dataStart, dataStop, err := resolveDataOffsets(version, header, text, size, options)
	if err != nil {
		return nil, err
	}

	ds := &DataSet{
		Header:       header,
		Text:         text,
		Analysis:     analysis,
		Channels:     channels,
		ChannelCount: par,
		EventCount:   tot,
		FileSize:     size,
		Name:         options.Name,
		Version:      header.Version,
	}

	if options.OnlyText {
		ds.warnings = warnings
		return ds, nil
	}

	datatype, ok := text.Get("datatype")
	if !ok {
		return nil, parseErrorf("missing required keyword $DATATYPE")
	}
	bpe, err := bytesPerEvent(datatype, channels)
	if err != nil {
		return nil, err
	}

	dataStop, sizeWarn, err := sizeSanity(dataStart, dataStop, bpe, options)
	if err != nil {
		return nil, err
	}
	if sizeWarn != nil {
		warnings = append(warnings, *sizeWarn)
	}

	layout, layoutWarnings, err := planDataLayout(text, channels, tot, par)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, layoutWarnings...)

	var raw []byte
	if dataStop >= dataStart {
		raw, err = sr.read(base, dataStart, dataStop)
		if err != nil {
			return nil, err
		}
	}
	events, err := decodeData(raw, layout)
	if err != nil {
		return nil, err
	}

	ds.Events = events
	ds.warnings = warnings
	return ds, nil
}

// decodeAnalysis resolves the ANALYSIS segment's bounds (TEXT's
// $BEGINANALYSIS/$ENDANALYSIS override HEADER's, per the original
// reconciliation behavior) and decodes it; an empty or absent range
// yields an empty map.
func decodeAnalysis(sr *sectionReader, base int64, header Header, text *OrderedText) (*OrderedText, error) {
	start, stop := header.AnalysisStart, header.AnalysisStop
	if v, ok := text.Get("beginanalysis"); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			start = parsed
		}
	}
	if v, ok := text.Get("endanalysis"); ok {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			stop = parsed
		}
	}

	if start < 0 || stop < 0 || stop < start {
		return NewOrderedText(), nil
	}

	raw, err := sr.read(base, start, stop)
	if err != nil {
		return nil, err
	}
	return decodeTextSegment(raw)
}

func requiredInt(text *OrderedText, key string) (int, error) {
	raw, ok := text.Get(key)
	if !ok {
		return 0, parseErrorf("missing required keyword $%s", strings.ToUpper(key))
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, parseErrorf("invalid $%s value %q", strings.ToUpper(key), raw)
	}
	return v, nil
}

func requiredInt64(text *OrderedText, key string) (int64, error) {
	raw, ok := text.Get(key)
	if !ok {
		return 0, parseErrorf("missing required keyword $%s", strings.ToUpper(key))
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, parseErrorf("invalid $%s value %q", strings.ToUpper(key), raw)
	}
	return v, nil
}

// bytesPerEvent returns the number of DATA bytes one event occupies, or
// an error for unsupported datatypes. It returns 0 for a uniform but
// non-standard integer bit width, signaling callers to skip the
// size-sanity check since no data will be decoded either way.
func bytesPerEvent(datatype string, channels []ChannelSpec) (int, error) {
	switch datatype {
	case "F":
		return 4 * len(channels), nil
	case "D":
		return 8 * len(channels), nil
	case "A":
		return 0, unsupportedErrorf("ASCII DATA segments are not supported")
	case "I":
		total := 0
		for _, c := range channels {
			switch c.PnB {
			case 8, 16, 32:
				total += c.PnB / 8
			default:
				return 0, nil
			}
		}
		return total, nil
	default:
		return 0, unsupportedErrorf("unknown $DATATYPE %q", datatype)
	}
}

// sizeSanity checks the DATA segment's byte count against bytesPerEvent: a
// size exactly one byte longer than an even multiple is the well-known
// exclusive-stop bug, tolerated under WithIgnoreOffsetError; any other
// remainder is fatal.
func sizeSanity(dataStart, dataStop int64, bytesPerEvent int, options ReadOptions) (newStop int64, warn *Warning, err error) {
	if bytesPerEvent <= 0 {
		return dataStop, nil, nil
	}
	size := dataStop - dataStart + 1
	remainder := size % int64(bytesPerEvent)
	switch remainder {
	case 0:
		return dataStop, nil, nil
	case 1:
		if options.IgnoreOffsetError {
			return dataStop - 1, &Warning{
				Kind:    WarnOffByOne,
				Message: "DATA segment end offset is off by one byte; decrementing data_stop",
			}, nil
		}
		return 0, nil, parseErrorf("DATA segment size is off by one byte; set WithIgnoreOffsetError to force reading")
	default:
		return 0, nil, parseErrorf("DATA segment size %d is not a multiple of the per-event byte width %d", size, bytesPerEvent)
	}
}
