package fcs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func floatRange(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

// TestCreateFCSWriteThenReadIdentity covers concrete scenario 1: a single
// 1-channel, 135-event file with no metadata round-trips with the exact
// header offsets the fixed-point algorithm is expected to converge on.
func TestCreateFCSWriteThenReadIdentity(t *testing.T) {
	var buf bytes.Buffer
	warnings, err := CreateFCS(&buf, floatRange(135), []string{"FSC-A"})
	require.NoError(t, err)
	require.Empty(t, warnings)

	ds, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	require.Equal(t, int64(457), ds.Header.DataStart)
	require.Equal(t, int64(996), ds.Header.DataStop)
	require.Equal(t, 135, ds.EventCount)
	require.Equal(t, floatRange(135), ds.Events)
}

// TestCreateFCSOffByOneBoundary covers concrete scenario 2: one extra
// event shifts both the digit-length correction and the data size.
func TestCreateFCSOffByOneBoundary(t *testing.T) {
	var buf bytes.Buffer
	_, err := CreateFCS(&buf, floatRange(136), []string{"FSC-A"})
	require.NoError(t, err)

	ds, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, int64(458), ds.Header.DataStart)
	require.Equal(t, int64(1001), ds.Header.DataStop)
}

// TestCreateFCSExtraMetadataOffsetCorrection covers concrete scenario 3:
// a long $COM value pushes the TEXT segment across a digit boundary.
func TestCreateFCSExtraMetadataOffsetCorrection(t *testing.T) {
	var buf bytes.Buffer
	_, err := CreateFCS(&buf, floatRange(135), []string{"FSC-A"},
		WithWriteMetadata(MetadataEntry{Key: "COM", Value: strings.Repeat("x", 535)}))
	require.NoError(t, err)

	ds, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, int64(999), ds.Header.DataStart)
	require.Equal(t, int64(1538), ds.Header.DataStop)

	var buf2 bytes.Buffer
	_, err = CreateFCS(&buf2, floatRange(135), []string{"FSC-A"},
		WithWriteMetadata(MetadataEntry{Key: "COM", Value: strings.Repeat("x", 536)}))
	require.NoError(t, err)

	ds2, err := Open(bytes.NewReader(buf2.Bytes()))
	require.NoError(t, err)
	require.Equal(t, int64(1001), ds2.Header.DataStart)
	require.Equal(t, int64(1540), ds2.Header.DataStop)
}

// TestCreateFCSEmptyEventsIsLegal covers the "Empty events" boundary
// behaviour: zero events is accepted and reads back with EventCount 0.
func TestCreateFCSEmptyEventsIsLegal(t *testing.T) {
	var buf bytes.Buffer
	_, err := CreateFCS(&buf, nil, []string{"FSC-A"})
	require.NoError(t, err)

	ds, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 0, ds.EventCount)
	require.Empty(t, ds.Events)
}

// TestCreateFCSPnEOverrideWarns covers the PnE canonicalization scenario:
// a caller-supplied $P1E override of "4,0" is rewritten to "4,1" and
// raises a PnEWarning.
func TestCreateFCSPnEOverrideWarns(t *testing.T) {
	var buf bytes.Buffer
	warnings, err := CreateFCS(&buf, floatRange(4), []string{"FL1-A"},
		WithWriteMetadata(MetadataEntry{Key: "p1e", Value: "4,0"}))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, WarnPnE, warnings[0].Kind)

	pnE, ok := warnings[0].Detail.(*PnEWarning)
	require.True(t, ok)
	require.Equal(t, 1, pnE.Channel)
	require.Equal(t, "4,0", pnE.Original)
	require.Equal(t, "4,1", pnE.Rewritten)

	ds, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 4.0, ds.Channels[0].PnE.Decades)
	require.Equal(t, 1.0, ds.Channels[0].PnE.Log0)
}

func TestCreateFCSRejectsMismatchedOptChannelNames(t *testing.T) {
	var buf bytes.Buffer
	_, err := CreateFCS(&buf, floatRange(4), []string{"FSC-A"}, WithOptChannelNames("a", "b"))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrParse)
}

func TestCreateFCSRejectsNonFloatDatatype(t *testing.T) {
	var buf bytes.Buffer
	_, err := CreateFCS(&buf, floatRange(4), []string{"FSC-A"},
		WithWriteMetadata(MetadataEntry{Key: "datatype", Value: "D"}))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestCreateFCSNonStandardMetadataRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	_, err := CreateFCS(&buf, floatRange(4), []string{"FSC-A"},
		WithWriteMetadata(MetadataEntry{Key: "MyCustomKey", Value: "hello"}))
	require.NoError(t, err)

	ds, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	v, ok := ds.Text.Get("mycustomkey")
	require.True(t, ok)
	require.Equal(t, "hello", v)
}
