package fcs

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/angli232/fcs/internal/byteorder"
)

const largeFileSentinel = 99_999_999

// resolveDataOffsets reconciles the HEADER's DATA offsets against TEXT's
// $BEGINDATA/$ENDDATA: its inputs are the FCS version, the HEADER's data
// offsets, the TEXT segment, the file size and the caller's options; its
// output is either a resolved (start, stop) pair or a typed error.
func resolveDataOffsets(version string, header Header, text *OrderedText, fileSize int64, opts ReadOptions) (start, stop int64, err error) {
	headerStart, headerStop := header.DataStart, header.DataStop

	if version == "FCS2.0" {
		start, stop = headerStart, headerStop
	} else if opts.UseHeaderOffsets {
		start, stop = headerStart, headerStop
	} else {
		beginRaw, ok := text.Get("begindata")
		if !ok {
			return 0, 0, parseErrorf("missing required keyword $BEGINDATA")
		}
		endRaw, ok := text.Get("enddata")
		if !ok {
			return 0, 0, parseErrorf("missing required keyword $ENDDATA")
		}
		start, err = strconv.ParseInt(strings.TrimSpace(beginRaw), 10, 64)
		if err != nil {
			return 0, 0, parseErrorf("invalid $BEGINDATA value %q", beginRaw)
		}
		stop, err = strconv.ParseInt(strings.TrimSpace(endRaw), 10, 64)
		if err != nil {
			return 0, 0, parseErrorf("invalid $ENDDATA value %q", endRaw)
		}

		// Each field's discrepancy is independently excused by the
		// large-file sentinel: a segment whose true end exceeds the
		// 8-digit HEADER limit gets a zero in HEADER for that field.
		if start != headerStart {
			largeFile := headerStart == 0 && stop > largeFileSentinel
			if !largeFile && !opts.IgnoreOffsetDiscrepancy {
				return 0, 0, &OffsetDiscrepancyError{Field: "data_start", HeaderValue: headerStart, TextValue: start}
			}
		}
		if stop != headerStop {
			largeFile := headerStop == 0 && stop > largeFileSentinel
			if !largeFile && !opts.IgnoreOffsetDiscrepancy {
				return 0, 0, &OffsetDiscrepancyError{Field: "data_stop", HeaderValue: headerStop, TextValue: stop}
			}
		}
	}

	if stop > fileSize {
		return 0, 0, parseErrorf("DATA segment end %d exceeds file size %d", stop, fileSize)
	}
	return start, stop, nil
}

// dataLayoutKind tags the decode strategy chosen once from TEXT, per the
// "dynamic dispatch on datatype" design note: the branch is taken once
// and a single decode function consumes the result.
type dataLayoutKind int

const (
	layoutFloat32 dataLayoutKind = iota
	layoutFloat64
	layoutIntUniform
	layoutIntHetero
	layoutASCII
)

type dataLayout struct {
	kind      dataLayoutKind
	order     binary.ByteOrder
	numEvents int
	numParams int
	bitWidths []int // per-channel, for integer layouts
	masks     []uint64
}

// planDataLayout inspects TEXT and the channel specs and decides how the
// DATA segment must be decoded, surfacing non-fatal warnings (unsupported
// byte order, non-standard bit width) along the way.
func planDataLayout(text *OrderedText, channels []ChannelSpec, numEvents, numParams int) (dataLayout, []Warning, error) {
	var warnings []Warning

	mode, _ := text.Get("mode")
	if mode == "C" || mode == "U" {
		return dataLayout{}, nil, unsupportedErrorf("histogram mode %q is not supported", mode)
	}

	byteOrd, ok := text.Get("byteord")
	if !ok {
		return dataLayout{}, nil, parseErrorf("missing required keyword $BYTEORD")
	}
	order, known := byteorder.Resolve(byteOrd)
	if !known {
		warnings = append(warnings, Warning{
			Kind:    WarnUnsupportedByteOrder,
			Message: "unsupported $BYTEORD value " + strconv.Quote(byteOrd) + "; using host byte order",
		})
	}

	datatype, ok := text.Get("datatype")
	if !ok {
		return dataLayout{}, nil, parseErrorf("missing required keyword $DATATYPE")
	}

	layout := dataLayout{order: order, numEvents: numEvents, numParams: numParams}

	switch datatype {
	case "F":
		layout.kind = layoutFloat32
	case "D":
		layout.kind = layoutFloat64
	case "A":
		return dataLayout{}, nil, unsupportedErrorf("ASCII DATA segments are not supported")
	case "I":
		widths := make([]int, numParams)
		for i, ch := range channels {
			widths[i] = ch.PnB
		}
		uniform := true
		for i := 1; i < len(widths); i++ {
			if widths[i] != widths[0] {
				uniform = false
				break
			}
		}

		masks := make([]uint64, numParams)
		for i, ch := range channels {
			masks[i] = nextPowerOfTwo(ch.PnR) - 1
		}

		if uniform {
			switch widths[0] {
			case 8, 16, 32:
				layout.kind = layoutIntUniform
			default:
				warnings = append(warnings, Warning{
					Kind:    WarnNonStandardBitWidth,
					Message: "non-standard uniform bit width " + strconv.Itoa(widths[0]) + "; no data decoded",
				})
				layout.kind = layoutIntUniform
				layout.bitWidths = widths
				layout.masks = masks
				return layout, warnings, nil
			}
		} else {
			for _, w := range widths {
				switch w {
				case 8, 16, 32:
				default:
					return dataLayout{}, nil, parseErrorf("non-standard bit width %d in heterogeneous integer layout", w)
				}
			}
			layout.kind = layoutIntHetero
		}
		layout.bitWidths = widths
		layout.masks = masks
	default:
		return dataLayout{}, nil, unsupportedErrorf("unknown $DATATYPE %q", datatype)
	}

	return layout, warnings, nil
}

// decodeData reads and decodes the DATA segment according to layout,
// returning a flat, row-major sequence of length numEvents*numParams
// (channel index varies fastest within each event).
func decodeData(raw []byte, layout dataLayout) ([]float64, error) {
	ne, np := layout.numEvents, layout.numParams
	n := ne * np
	out := make([]float64, n)
	if n == 0 {
		return out, nil
	}

	switch layout.kind {
	case layoutFloat32:
		if len(raw) < n*4 {
			return nil, parseErrorf("DATA segment too short for %d float32 values", n)
		}
		for i := 0; i < n; i++ {
			bits32 := layout.order.Uint32(raw[i*4 : i*4+4])
			out[i] = float64(math.Float32frombits(bits32))
		}
		return out, nil

	case layoutFloat64:
		if len(raw) < n*8 {
			return nil, parseErrorf("DATA segment too short for %d float64 values", n)
		}
		for i := 0; i < n; i++ {
			bits64 := layout.order.Uint64(raw[i*8 : i*8+8])
			out[i] = math.Float64frombits(bits64)
		}
		return out, nil

	case layoutIntUniform:
		width := layout.bitWidths[0]
		switch width {
		case 8, 16, 32:
		default:
			// Non-standard uniform width: warned about already, yields no data.
			return nil, nil
		}
		byteWidth := width / 8
		if len(raw) < n*byteWidth {
			return nil, parseErrorf("DATA segment too short for %d %d-bit values", n, width)
		}
		for i := 0; i < n; i++ {
			var v uint64
			switch width {
			case 8:
				v = uint64(raw[i])
			case 16:
				v = uint64(layout.order.Uint16(raw[i*2 : i*2+2]))
			case 32:
				v = uint64(layout.order.Uint32(raw[i*4 : i*4+4]))
			}
			col := i % np
			if mask := layout.masks[col]; mask != 0 && uint64(1)<<uint(width) > mask+1 {
				v &= mask
			}
			out[i] = float64(v)
		}
		return out, nil

	case layoutIntHetero:
		eventBytes := 0
		byteOffsets := make([]int, np)
		for i, w := range layout.bitWidths {
			byteOffsets[i] = eventBytes
			eventBytes += w / 8
		}
		if len(raw) < ne*eventBytes {
			return nil, parseErrorf("DATA segment too short for %d heterogeneous events", ne)
		}
		for r := 0; r < ne; r++ {
			rowBase := r * eventBytes
			for c := 0; c < np; c++ {
				off := rowBase + byteOffsets[c]
				var v uint64
				switch layout.bitWidths[c] {
				case 8:
					v = uint64(raw[off])
				case 16:
					v = uint64(layout.order.Uint16(raw[off : off+2]))
				case 32:
					v = uint64(layout.order.Uint32(raw[off : off+4]))
				}
				if mod := layout.masks[c] + 1; mod != 0 {
					v %= mod
				}
				out[r*np+c] = float64(v)
			}
		}
		return out, nil

	default:
		return nil, unsupportedErrorf("unsupported data layout")
	}
}

