package fcs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildHeaderBytes renders a 58-byte HEADER segment the way a real FCS
// file would, for tests that need to drive parseHeader directly.
func buildHeaderBytes(version string, textStart, textStop, dataStart, dataStop, analysisStart, analysisStop int64) []byte {
	var buf bytes.Buffer
	buf.WriteString(version)
	for buf.Len() < 10 {
		buf.WriteByte(' ')
	}
	buf.WriteString(formatOffsetField(textStart))
	buf.WriteString(formatOffsetField(textStop))
	buf.WriteString(formatOffsetField(dataStart))
	buf.WriteString(formatOffsetField(dataStop))
	buf.WriteString(formatOffsetField(analysisStart))
	buf.WriteString(formatOffsetField(analysisStop))
	return buf.Bytes()
}

func TestParseHeaderRecognizedVersion(t *testing.T) {
	raw := buildHeaderBytes("FCS3.1", 64, 200, 201, 740, 0, 0)
	sr := newSectionReader(bytes.NewReader(raw), int64(len(raw)))

	h, warn, err := parseHeader(sr, 0)
	require.NoError(t, err)
	require.Nil(t, warn)
	require.Equal(t, "FCS3.1", h.Version)
	require.Equal(t, int64(64), h.TextStart)
	require.Equal(t, int64(200), h.TextStop)
	require.Equal(t, int64(201), h.DataStart)
	require.Equal(t, int64(740), h.DataStop)
	require.Equal(t, int64(0), h.AnalysisStart)
	require.Equal(t, int64(0), h.AnalysisStop)
}

func TestParseHeaderUnknownVersionWarns(t *testing.T) {
	raw := buildHeaderBytes("FCS9.9", 64, 200, 201, 740, 0, 0)
	sr := newSectionReader(bytes.NewReader(raw), int64(len(raw)))

	h, warn, err := parseHeader(sr, 0)
	require.NoError(t, err)
	require.NotNil(t, warn)
	require.Equal(t, WarnUnknownVersion, warn.Kind)
	require.Equal(t, "FCS9.9", h.Version)
}

func TestParseHeaderBlankAnalysisDefaultsToNegativeOne(t *testing.T) {
	raw := buildHeaderBytes("FCS3.1", 64, 200, 201, 740, -1, -1)
	// formatOffsetField(-1) would render "      -1"; real files leave the
	// field blank instead, so overwrite with spaces directly.
	copy(raw[42:58], []byte("                "))
	sr := newSectionReader(bytes.NewReader(raw), int64(len(raw)))

	h, _, err := parseHeader(sr, 0)
	require.NoError(t, err)
	require.Equal(t, int64(-1), h.AnalysisStart)
	require.Equal(t, int64(-1), h.AnalysisStop)
}

func TestParseHeaderBadOffsetDigitsIsFatal(t *testing.T) {
	raw := buildHeaderBytes("FCS3.1", 64, 200, 201, 740, 0, 0)
	copy(raw[10:18], []byte("XXXXXXXX"))
	sr := newSectionReader(bytes.NewReader(raw), int64(len(raw)))

	_, _, err := parseHeader(sr, 0)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrParse)
}
