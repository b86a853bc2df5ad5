package fcs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeTextSegmentBasic(t *testing.T) {
	raw := []byte("/$PAR/2/$TOT/10/$P1N/FSC-A/$P2N/SSC-A/")

	text, err := decodeTextSegment(raw)
	require.NoError(t, err)

	v, ok := text.Get("par")
	require.True(t, ok)
	require.Equal(t, "2", v)

	v, ok = text.Get("p1n")
	require.True(t, ok)
	require.Equal(t, "FSC-A", v)

	require.Equal(t, []string{"par", "tot", "p1n", "p2n"}, text.Keys())
}

func TestDecodeTextSegmentEscapedDelimiter(t *testing.T) {
	// A doubled delimiter inside a value decodes to one literal delimiter.
	raw := []byte("/$COM/a//b/$PAR/1/")

	text, err := decodeTextSegment(raw)
	require.NoError(t, err)

	v, ok := text.Get("com")
	require.True(t, ok)
	require.Equal(t, "a/b", v)
}

func TestDecodeTextSegmentEmptyIsLegal(t *testing.T) {
	text, err := decodeTextSegment(nil)
	require.NoError(t, err)
	require.Equal(t, 0, text.Len())
}

func TestDecodeTextSegmentMalformedTruncatedValue(t *testing.T) {
	raw := []byte("/$PAR/1")

	_, err := decodeTextSegment(raw)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrParse)
}

func TestDecodeTextBytesLatin1Fallback(t *testing.T) {
	// 0xE9 alone is not valid UTF-8; Latin-1 maps it to U+00E9 (é).
	raw := []byte{0xE9}
	s := decodeTextBytes(raw)
	require.Equal(t, "é", s)
}

func TestOrderedTextSetPreservesFirstSeenOrder(t *testing.T) {
	text := NewOrderedText()
	text.Set("B", "2")
	text.Set("A", "1")
	text.Set("b", "overwritten")

	require.Equal(t, []string{"b", "a"}, text.Keys())
	v, _ := text.Get("B")
	require.Equal(t, "overwritten", v)
}
