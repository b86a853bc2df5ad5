package fcs

import (
	"math"
	"strconv"
	"strings"
)

// ChannelRole classifies a channel by its PnN prefix.
type ChannelRole int

const (
	RoleFluorescence ChannelRole = iota
	RoleTime
	RoleScatter
	RoleNull
)

func (r ChannelRole) String() string {
	switch r {
	case RoleTime:
		return "time"
	case RoleScatter:
		return "scatter"
	case RoleNull:
		return "null"
	default:
		return "fluorescence"
	}
}

// Amplification is the (decades, log0) pair of the $PnE keyword. (0,0)
// means linear; any decades > 0 means a log-scale transform.
type Amplification struct {
	Decades float64
	Log0    float64
}

// Linear reports whether Decades is zero, the identity case; Log0 is not
// consulted.
func (a Amplification) Linear() bool { return a.Decades == 0 }

// ChannelSpec holds the per-parameter metadata for one channel, numbered
// from 1.
type ChannelSpec struct {
	Number int

	PnN string        // $PnN, required: short channel name
	PnS string        // $PnS, optional: long channel label
	PnB int           // $PnB, required: bits per value
	PnE Amplification // $PnE, required: (decades, log0); (0,0) = linear
	PnG float64        // $PnG, optional, default 1.0: linear gain divisor
	PnR float64        // $PnR, required: channel range

	Role ChannelRole
}

// roleForName classifies a channel by its PnN prefix, matched
// case-insensitively: "time" is the time channel, "fsc-"/"ssc-" prefixes
// are scatter, names in nullChannels are excluded, everything else is
// fluorescence.
func roleForName(pnn string, nullChannels map[string]bool) ChannelRole {
	lower := strings.ToLower(pnn)
	switch {
	case lower == "time":
		return RoleTime
	case strings.HasPrefix(lower, "fsc-") || strings.HasPrefix(lower, "ssc-"):
		return RoleScatter
	case nullChannels[lower]:
		return RoleNull
	default:
		return RoleFluorescence
	}
}

// parseAmplification parses a $PnE value of the form "decades,log0",
// canonicalizing decades>0,log0==0 to log0=1.0 per the FCS 3.1 mandate.
func parseAmplification(raw string) (Amplification, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Amplification{}, parseErrorf("invalid $PnE value %q", raw)
	}
	decades, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Amplification{}, parseErrorf("invalid $PnE decades %q", raw)
	}
	log0, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Amplification{}, parseErrorf("invalid $PnE log0 %q", raw)
	}
	if decades > 0 && log0 == 0 {
		log0 = 1.0
	}
	return Amplification{Decades: decades, Log0: log0}, nil
}

// parseChannels builds a ChannelSpec for each n in [1..par], taking the
// channel count from par ($PAR) rather than from the $PnN keys present.
func parseChannels(text *OrderedText, par int, nullChannels []string) ([]ChannelSpec, error) {
	nullSet := make(map[string]bool, len(nullChannels))
	for _, n := range nullChannels {
		nullSet[strings.ToLower(n)] = true
	}

	channels := make([]ChannelSpec, par)
	for i := 1; i <= par; i++ {
		c := ChannelSpec{Number: i}

		pnn, ok := text.Get(keyN("p%dn", i))
		if !ok {
			return nil, parseErrorf("missing required keyword $P%dN", i)
		}
		c.PnN = pnn

		if pns, ok := text.Get(keyN("p%ds", i)); ok {
			c.PnS = pns
		}

		pnb, ok := text.Get(keyN("p%db", i))
		if !ok {
			return nil, parseErrorf("missing required keyword $P%dB", i)
		}
		bitLen, err := strconv.Atoi(strings.TrimSpace(pnb))
		if err != nil {
			return nil, parseErrorf("invalid $P%dB value %q", i, pnb)
		}
		c.PnB = bitLen

		pne, ok := text.Get(keyN("p%de", i))
		if !ok {
			return nil, parseErrorf("missing required keyword $P%dE", i)
		}
		amp, err := parseAmplification(pne)
		if err != nil {
			return nil, err
		}
		c.PnE = amp

		c.PnG = 1.0
		if png, ok := text.Get(keyN("p%dg", i)); ok && strings.TrimSpace(png) != "" {
			gain, err := strconv.ParseFloat(strings.TrimSpace(png), 64)
			if err != nil {
				return nil, parseErrorf("invalid $P%dG value %q", i, png)
			}
			c.PnG = gain
		}

		pnr, ok := text.Get(keyN("p%dr", i))
		if !ok {
			return nil, parseErrorf("missing required keyword $P%dR", i)
		}
		rangeVal, err := strconv.ParseFloat(strings.TrimSpace(pnr), 64)
		if err != nil {
			return nil, parseErrorf("invalid $P%dR value %q", i, pnr)
		}
		c.PnR = rangeVal

		c.Role = roleForName(c.PnN, nullSet)
		if c.Role == RoleTime {
			// Force the time channel's gain to 1.0 regardless of file contents.
			c.PnG = 1.0
		}

		channels[i-1] = c
	}
	return channels, nil
}

func keyN(format string, n int) string {
	return strings.Replace(format, "%d", strconv.Itoa(n), 1)
}

// nextPowerOfTwo returns the smallest power of two greater than or equal
// to v, matching the FCS masking convention: a PnR of 1024 masks to 1023
// (2^10 - 1), a PnR of 1023 also masks to 1023.
func nextPowerOfTwo(v float64) uint64 {
	if v <= 1 {
		return 1
	}
	n := uint64(1)
	for float64(n) < v {
		n <<= 1
	}
	return n
}

// Matrix is a row-major N (events) x P (channels) matrix of float64
// values, avoiding a hard dependency on any third-party ndarray library.
type Matrix struct {
	Rows, Cols int
	Data       []float64
}

// At returns the value at (row, col).
func (m Matrix) At(row, col int) float64 { return m.Data[row*m.Cols+col] }

// Row returns a slice view of one event's channel values.
func (m Matrix) Row(row int) []float64 {
	return m.Data[row*m.Cols : (row+1)*m.Cols]
}

// asArray promotes the flat, row-major events slice to a Matrix, applying
// the documented per-channel transforms (time-step scaling, log-scale
// decode, gain division) when preprocess is true. The transforms are not
// idempotent: applying them twice does not reproduce the once-applied
// result.
func asArray(events []float64, channels []ChannelSpec, text *OrderedText, preprocess bool) (Matrix, error) {
	cols := len(channels)
	rows := 0
	if cols > 0 {
		rows = len(events) / cols
	}

	data := make([]float64, len(events))
	copy(data, events)

	if !preprocess {
		return Matrix{Rows: rows, Cols: cols, Data: data}, nil
	}

	timestep := 1.0
	if raw, ok := text.Get("timestep"); ok {
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			v, err := strconv.ParseFloat(trimmed, 64)
			if err != nil {
				return Matrix{}, parseErrorf("invalid $timestep value %q", raw)
			}
			timestep = v
		}
	}

	for ci, ch := range channels {
		switch ch.Role {
		case RoleTime:
			if timestep != 1.0 {
				for r := 0; r < rows; r++ {
					data[r*cols+ci] *= timestep
				}
			}
		}

		if ch.PnE.Decades > 0 {
			decades := ch.PnE.Decades
			log0 := ch.PnE.Log0
			pnr := ch.PnR
			for r := 0; r < rows; r++ {
				idx := r*cols + ci
				data[idx] = log0 * math.Pow(10, decades*data[idx]/pnr)
			}
		}

		if ch.PnG != 0 && ch.PnG != 1 {
			gain := ch.PnG
			for r := 0; r < rows; r++ {
				data[r*cols+ci] /= gain
			}
		}
	}

	return Matrix{Rows: rows, Cols: cols, Data: data}, nil
}
