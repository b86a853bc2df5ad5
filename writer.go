package fcs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	writeDelimiter byte  = '/'
	writeTextStart int64 = 256
)

// MetadataEntry is one caller-supplied TEXT keyword/value pair passed to
// CreateFCS. Keys are matched case-insensitively and may carry a leading
// '$'; the writer strips it. Order is preserved for non-standard keys, to
// match OrderedText's insertion-order contract.
type MetadataEntry struct {
	Key   string
	Value string
}

// WriteOptions configures CreateFCS. It mirrors ReadOptions's shape: a
// plain struct mutated by functional options.
type WriteOptions struct {
	OptChannelNames []string
	Metadata        []MetadataEntry
}

// WriteOption mutates a WriteOptions; see With* constructors below.
type WriteOption func(*WriteOptions)

// WithOptChannelNames supplies the $PnS long channel labels, one per
// channel in the same order as the channelNames argument to CreateFCS. A
// blank label is omitted from the written file rather than encoded as an
// empty (and therefore illegal) TEXT value.
func WithOptChannelNames(names ...string) WriteOption {
	return func(o *WriteOptions) { o.OptChannelNames = names }
}

// WithWriteMetadata supplies extra TEXT keywords. Standard required
// keywords and the per-channel b/g/r/n/s keys are always computed by the
// writer and silently ignored if present here; a per-channel e key ($PnE)
// is the one exception and may override the writer's linear default (see
// PnEWarning). Recognized optional standard keywords (and the optional
// per-channel d/f/l/o/p/t/v/calibration keys) are rewritten uppercase
// with a leading '$'; everything else is appended verbatim, uppercased,
// without a '$'.
func WithWriteMetadata(entries ...MetadataEntry) WriteOption {
	return func(o *WriteOptions) { o.Metadata = entries }
}

var writerRequiredKeywordSet = map[string]bool{
	"beginanalysis": true, "begindata": true, "beginstext": true, "byteord": true,
	"datatype": true, "endanalysis": true, "enddata": true, "endstext": true,
	"mode": true, "nextdata": true, "par": true, "tot": true,
}

var writerStandardOptionalKeywordSet = map[string]bool{
	"abrt": true, "btim": true, "cells": true, "com": true, "csmode": true,
	"csvbits": true, "cyt": true, "cytsn": true, "date": true, "etim": true,
	"exp": true, "fil": true, "gate": true, "inst": true, "last_modified": true,
	"last_modifier": true, "lost": true, "op": true, "originality": true,
	"plateid": true, "platename": true, "proj": true, "smno": true,
	"spillover": true, "src": true, "sys": true, "timestep": true, "tr": true,
	"vol": true, "wellid": true,
}

var (
	writerControlledPerChannelKeyword = regexp.MustCompile(`^p[0-9]+[bergns]$`)
	writerOptionalPerChannelKeyword   = regexp.MustCompile(`^p[0-9]+(d|f|l|o|p|t|v|calibration)$`)
	writerPnEOverride                 = regexp.MustCompile(`(?i)^\$?p([0-9]+)e$`)
)

type kv struct {
	Key, Value string
}

// formatNumericField renders v the way the writer's numeric TEXT fields
// ($PnE, $PnR) are rendered: as a bare integer when v has no fractional
// part, otherwise in Go's shortest round-trippable form.
func formatNumericField(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// buildText renders required (in order, each '$'-prefixed) followed by
// the recognized and non-standard entries of metadata, doubling any
// delimiter byte found in a value.
func buildText(required []kv, metadata []MetadataEntry) string {
	escape := func(v string) string {
		return strings.ReplaceAll(v, string(writeDelimiter), string(writeDelimiter)+string(writeDelimiter))
	}

	var b strings.Builder
	b.WriteByte(writeDelimiter)
	for _, e := range required {
		b.WriteByte('$')
		b.WriteString(strings.ToUpper(e.Key))
		b.WriteByte(writeDelimiter)
		b.WriteString(escape(e.Value))
		b.WriteByte(writeDelimiter)
	}

	var nonStandard []MetadataEntry
	for _, m := range metadata {
		key := strings.ToLower(strings.TrimLeft(m.Key, "$"))
		switch {
		case writerRequiredKeywordSet[key]:
			// Set by the writer itself; caller-supplied value ignored.
		case writerControlledPerChannelKeyword.MatchString(key):
			// Per-channel b/g/r/n/s are computed by the writer; e is
			// handled separately, before buildText is ever called.
		case writerStandardOptionalKeywordSet[key]:
			b.WriteByte('$')
			b.WriteString(strings.ToUpper(key))
			b.WriteByte(writeDelimiter)
			b.WriteString(escape(m.Value))
			b.WriteByte(writeDelimiter)
		case writerOptionalPerChannelKeyword.MatchString(key):
			b.WriteByte('$')
			b.WriteString(strings.ToUpper(key))
			b.WriteByte(writeDelimiter)
			b.WriteString(escape(m.Value))
			b.WriteByte(writeDelimiter)
		default:
			nonStandard = append(nonStandard, MetadataEntry{Key: key, Value: m.Value})
		}
	}
	for _, m := range nonStandard {
		b.WriteString(strings.ToUpper(m.Key))
		b.WriteByte(writeDelimiter)
		b.WriteString(escape(m.Value))
		b.WriteByte(writeDelimiter)
	}

	return b.String()
}

// pow10 returns 10^n for small non-negative n.
func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// CreateFCS writes a new FCS 3.1 file to w from a flat, row-major list of
// 32-bit-float events (channel index varies fastest), one name per
// channel in channelNames. It returns any PnEWarning raised while
// canonicalizing a caller-overridden $PnE, and a fatal error for anything
// that prevents a valid file from being produced.
func CreateFCS(w io.Writer, eventData []float64, channelNames []string, opts ...WriteOption) ([]Warning, error) {
	var options WriteOptions
	for _, opt := range opts {
		opt(&options)
	}

	nChannels := len(channelNames)
	if nChannels == 0 {
		return nil, parseErrorf("channelNames must be non-empty")
	}
	if options.OptChannelNames != nil && len(options.OptChannelNames) != nChannels {
		return nil, parseErrorf("opt channel names length %d does not match channel count %d", len(options.OptChannelNames), nChannels)
	}

	nPoints := len(eventData)
	if nPoints%nChannels != 0 {
		return nil, parseErrorf("event data length %d is not a multiple of channel count %d", nPoints, nChannels)
	}

	for _, m := range options.Metadata {
		key := strings.ToLower(strings.TrimLeft(m.Key, "$"))
		if key == "datatype" && m.Value != "F" {
			return nil, unsupportedErrorf("writer only supports $DATATYPE=F, got %q", m.Value)
		}
	}

	pnrValue := 262144.0
	if nPoints > 0 {
		max := eventData[0]
		for _, v := range eventData[1:] {
			if v > max {
				max = v
			}
		}
		if max >= 262144 {
			pnrValue = max
		}
	}

	amps := make([]Amplification, nChannels)
	var warnings []Warning
	var remainingMetadata []MetadataEntry
	for _, m := range options.Metadata {
		match := writerPnEOverride.FindStringSubmatch(m.Key)
		if match == nil {
			remainingMetadata = append(remainingMetadata, m)
			continue
		}
		n, _ := strconv.Atoi(match[1])
		if n < 1 || n > nChannels {
			remainingMetadata = append(remainingMetadata, m)
			continue
		}
		amp, err := parseAmplification(m.Value)
		if err != nil {
			return nil, err
		}
		amps[n-1] = amp
		if amp.Decades != 0 {
			rewritten := fmt.Sprintf("%s,%s", formatNumericField(amp.Decades), formatNumericField(amp.Log0))
			warnings = append(warnings, Warning{
				Kind:    WarnPnE,
				Message: fmt.Sprintf("$P%dE %q rewritten to %q", n, m.Value, rewritten),
				Detail: &PnEWarning{
					Channel:   n,
					Original:  m.Value,
					Rewritten: rewritten,
				},
			})
		}
	}

	required := []kv{
		{"beginanalysis", "0"},
		{"begindata", ""},
		{"beginstext", "0"},
		{"byteord", "1,2,3,4"},
		{"datatype", "F"},
		{"endanalysis", "0"},
		{"enddata", ""},
		{"endstext", "0"},
		{"mode", "L"},
		{"nextdata", "0"},
		{"par", strconv.Itoa(nChannels)},
		{"tot", strconv.Itoa(nPoints / nChannels)},
	}
	const (
		idxBeginData = 1
		idxEndData   = 6
	)

	pnrStr := formatNumericField(pnrValue)
	for i := 0; i < nChannels; i++ {
		n := i + 1
		required = append(required,
			kv{fmt.Sprintf("p%db", n), "32"},
			kv{fmt.Sprintf("p%de", n), fmt.Sprintf("%s,%s", formatNumericField(amps[i].Decades), formatNumericField(amps[i].Log0))},
			kv{fmt.Sprintf("p%dg", n), "1.0"},
			kv{fmt.Sprintf("p%dr", n), pnrStr},
			kv{fmt.Sprintf("p%dn", n), channelNames[i]},
		)
		if options.OptChannelNames != nil && options.OptChannelNames[i] != "" {
			required = append(required, kv{fmt.Sprintf("p%ds", n), options.OptChannelNames[i]})
		}
	}

	dataSize := int64(4 * nPoints)

	// Keyword-offset fixed point: BEGINDATA/ENDDATA are byte offsets that
	// include the length of the TEXT segment that names them. Render once
	// with placeholders to measure, correct for the digits the final
	// values themselves add, then render again and verify.
	textString := buildText(required, remainingMetadata)
	initialBegin := writeTextStart + int64(len(textString))
	initialEnd := initialBegin + dataSize - 1

	digits := func(v int64) int { return len(strconv.FormatInt(v, 10)) }
	beginDigits := digits(initialBegin)
	endDigits := digits(initialEnd)
	total := int64(beginDigits + endDigits)

	var correction int64
	if d := pow10(beginDigits) - initialBegin; d <= total && d != 0 {
		correction++
	}
	if d := pow10(endDigits) - initialEnd; d <= total && d != 0 {
		correction++
	}

	beginData := initialBegin + int64(beginDigits) + int64(endDigits) + correction
	endData := beginData + dataSize - 1

	required[idxBeginData].Value = strconv.FormatInt(beginData, 10)
	required[idxEndData].Value = strconv.FormatInt(endData, 10)

	textString = buildText(required, remainingMetadata)
	if writeTextStart+int64(len(textString)) != beginData {
		return nil, parseErrorf("internal error: TEXT offset fixed point did not converge (begindata=%d, computed=%d)", beginData, writeTextStart+int64(len(textString)))
	}

	var buf bytes.Buffer
	buf.WriteString("FCS3.1")
	buf.WriteString("    ")
	buf.WriteString(formatOffsetField(writeTextStart))
	buf.WriteString(formatOffsetField(beginData - 1))
	if endData > largeFileSentinel {
		buf.WriteString(formatOffsetField(0))
		buf.WriteString(formatOffsetField(0))
	} else {
		buf.WriteString(formatOffsetField(beginData))
		buf.WriteString(formatOffsetField(endData))
	}
	buf.WriteString(formatOffsetField(0))
	buf.WriteString(formatOffsetField(0))

	for int64(buf.Len()) < writeTextStart {
		buf.WriteByte(' ')
	}
	buf.WriteString(textString)

	var floatBuf [4]byte
	for _, v := range eventData {
		binary.LittleEndian.PutUint32(floatBuf[:], math.Float32bits(float32(v)))
		buf.Write(floatBuf[:])
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return warnings, ioErrorf("writing FCS file: %v", err)
	}
	return warnings, nil
}

// Write emits a new FCS 3.1 file containing this DataSet's channel names
// and event data, accepting the same options as CreateFCS. Per-channel
// $PnS labels are carried forward automatically unless the caller
// supplies WithOptChannelNames explicitly.
func (d *DataSet) Write(w io.Writer, opts ...WriteOption) ([]Warning, error) {
	names := make([]string, len(d.Channels))
	labels := make([]string, len(d.Channels))
	haveLabels := false
	for i, c := range d.Channels {
		names[i] = c.PnN
		labels[i] = c.PnS
		if c.PnS != "" {
			haveLabels = true
		}
	}

	if haveLabels {
		opts = append([]WriteOption{WithOptChannelNames(labels...)}, opts...)
	}
	return CreateFCS(w, d.Events, names, opts...)
}
