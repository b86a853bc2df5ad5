package fcs

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

// OrderedText is an ordered mapping of lowercased TEXT/ANALYSIS keys to
// string values. Iteration order (Keys) matches input order when decoded
// from a file and explicit insertion order when built up for writing.
// Standard FCS keywords are stored without their leading '$'.
type OrderedText struct {
	keys []string
	vals map[string]string
}

// NewOrderedText returns an empty OrderedText ready for Set calls.
func NewOrderedText() *OrderedText {
	return &OrderedText{vals: make(map[string]string)}
}

// Get returns the value for key (case-insensitive) and whether it exists.
func (t *OrderedText) Get(key string) (string, bool) {
	v, ok := t.vals[strings.ToLower(key)]
	return v, ok
}

// Set stores value under key (case-insensitive), appending key to the
// iteration order the first time it is seen and overwriting the value
// in place on subsequent calls.
func (t *OrderedText) Set(key, value string) {
	key = strings.ToLower(key)
	if t.vals == nil {
		t.vals = make(map[string]string)
	}
	if _, exists := t.vals[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.vals[key] = value
}

// Keys returns the keys in iteration order.
func (t *OrderedText) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Raw returns a copy of the underlying key/value map, with no ordering
// guarantee.
func (t *OrderedText) Raw() map[string]string {
	out := make(map[string]string, len(t.vals))
	for k, v := range t.vals {
		out[k] = v
	}
	return out
}

// Len returns the number of keywords stored.
func (t *OrderedText) Len() int { return len(t.keys) }

// decodeTextBytes decodes raw TEXT/ANALYSIS bytes, trying UTF-8 first and
// falling back to ISO-8859-1 (Latin-1, a direct byte-to-codepoint
// mapping) on failure. FCS files in the wild are not reliably one
// encoding, so both must be tried before giving up.
func decodeTextBytes(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// decodeTextSegment parses a delimiter-framed TEXT or ANALYSIS segment.
// The first byte is the delimiter character; a doubled delimiter within a
// value decodes to one literal delimiter. An empty segment yields an
// empty, non-nil OrderedText (the legal case for an absent ANALYSIS
// segment).
func decodeTextSegment(raw []byte) (*OrderedText, error) {
	if len(raw) == 0 {
		return NewOrderedText(), nil
	}

	s := decodeTextBytes(raw)
	if len(s) == 0 {
		return NewOrderedText(), nil
	}
	delimiter := s[0]

	b := bufio.NewReader(strings.NewReader(s))
	if _, err := b.ReadByte(); err != nil {
		return nil, parseErrorf("empty TEXT segment")
	}

	t := NewOrderedText()
	for {
		keyTok, err := b.ReadString(delimiter)
		if err != nil {
			if err == io.EOF {
				if keyTok == "" {
					break
				}
				return nil, parseErrorf("truncated TEXT keyword %q", keyTok)
			}
			return nil, ioErrorf("reading TEXT keyword: %v", err)
		}

		var value strings.Builder
		for {
			chunk, err := b.ReadString(delimiter)
			if err != nil {
				if err == io.EOF {
					return nil, parseErrorf("truncated TEXT value after keyword %q", strings.TrimSuffix(keyTok, string(delimiter)))
				}
				return nil, ioErrorf("reading TEXT value: %v", err)
			}
			value.WriteString(chunk)

			next, err := b.ReadByte()
			if err != nil {
				if err == io.EOF {
					break
				}
				return nil, ioErrorf("reading TEXT value: %v", err)
			}
			if next != delimiter {
				if err := b.UnreadByte(); err != nil {
					return nil, ioErrorf("reading TEXT value: %v", err)
				}
				break
			}
			// A doubled delimiter escapes to a single literal delimiter;
			// the pair was already consumed (one via ReadString, one via
			// ReadByte above), so the loop continues to read the rest of
			// the value without re-emitting either byte.
		}

		valStr := value.String()
		if len(keyTok) == 0 || keyTok[len(keyTok)-1] != delimiter {
			return nil, parseErrorf("malformed TEXT keyword %q", keyTok)
		}
		if len(valStr) == 0 || valStr[len(valStr)-1] != delimiter {
			return nil, parseErrorf("malformed TEXT value for keyword %q", keyTok)
		}

		key := strings.TrimSuffix(keyTok, string(delimiter))
		key = strings.ReplaceAll(key, "$", "")
		val := strings.TrimSuffix(valStr, string(delimiter))

		t.Set(key, val)
	}

	return t, nil
}
