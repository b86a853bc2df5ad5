package fcs

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// headerSize is the fixed width of the FCS HEADER segment in bytes.
const headerSize = 58

// Header is the fixed 58-byte FCS prologue: a version tag plus three
// absolute, inclusive byte-offset pairs for the TEXT, DATA and ANALYSIS
// segments, each offset pair written as eight right-justified ASCII
// digits. A value of zero for a DATA offset is the "segment exceeds
// 99,999,999 bytes, consult TEXT" large-file sentinel. AnalysisStart/Stop
// are -1 when the field is blank or unparseable.
type Header struct {
	Version string

	TextStart, TextStop         int64
	DataStart, DataStop         int64
	AnalysisStart, AnalysisStop int64
}

func (h Header) String() string {
	return fmt.Sprintf(
		"Header{Version:%s TEXT:[%d,%d] DATA:[%d,%d] ANALYSIS:[%d,%d]}",
		h.Version, h.TextStart, h.TextStop, h.DataStart, h.DataStop, h.AnalysisStart, h.AnalysisStop,
	)
}

// parseHeader reads the HEADER segment at base and decodes it. Only
// FCS2.0, FCS3.0 and FCS3.1 version tags are formally recognized; any
// other tag is returned along with a WarnUnknownVersion warning so the
// caller can proceed treating the file as FCS3.1.
func parseHeader(sr *sectionReader, base int64) (Header, *Warning, error) {
	buf, err := sr.read(base, 0, headerSize-1)
	if err != nil {
		return Header{}, nil, err
	}

	var h Header
	h.Version = strings.TrimSpace(string(buf[0:6]))

	var warn *Warning
	switch h.Version {
	case "FCS2.0", "FCS3.0", "FCS3.1":
	default:
		warn = &Warning{
			Kind:    WarnUnknownVersion,
			Message: fmt.Sprintf("unrecognized FCS version tag %q; parsing as FCS3.1", h.Version),
		}
	}

	field := func(lo, hi int) (int64, error) {
		trimmed := bytes.TrimSpace(buf[lo : hi+1])
		if len(trimmed) == 0 {
			return 0, parseErrorf("empty HEADER offset field at bytes %d-%d", lo, hi)
		}
		v, err := strconv.ParseInt(string(trimmed), 10, 64)
		if err != nil {
			return 0, parseErrorf("invalid HEADER offset field %q at bytes %d-%d", string(buf[lo:hi+1]), lo, hi)
		}
		return v, nil
	}

	if h.TextStart, err = field(10, 17); err != nil {
		return Header{}, warn, err
	}
	if h.TextStop, err = field(18, 25); err != nil {
		return Header{}, warn, err
	}
	if h.DataStart, err = field(26, 33); err != nil {
		return Header{}, warn, err
	}
	if h.DataStop, err = field(34, 41); err != nil {
		return Header{}, warn, err
	}
	if v, aerr := field(42, 49); aerr == nil {
		h.AnalysisStart = v
	} else {
		h.AnalysisStart = -1
	}
	if v, aerr := field(50, 57); aerr == nil {
		h.AnalysisStop = v
	} else {
		h.AnalysisStop = -1
	}

	return h, warn, nil
}

// formatOffsetField renders v as eight ASCII digits, right-justified with
// leading spaces, as the writer emits every HEADER offset field.
func formatOffsetField(v int64) string {
	return fmt.Sprintf("%8d", v)
}
