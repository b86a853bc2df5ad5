// Package byteorder resolves the FCS $BYTEORD keyword to a concrete
// encoding/binary.ByteOrder, falling back to the host's native order for
// unrecognized notations.
package byteorder

import (
	"encoding/binary"
	"unsafe"
)

// Host returns the byte order of the machine this process is running on.
func Host() binary.ByteOrder {
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Resolve maps an FCS $BYTEORD value to a binary.ByteOrder.
//
//   - "1,2,3,4" or "1,2"  -> little-endian
//   - "4,3,2,1" or "2,1"  -> big-endian
//   - anything else       -> the host's native order, with ok == false so
//     the caller can surface a warning.
func Resolve(byteOrd string) (order binary.ByteOrder, ok bool) {
	switch byteOrd {
	case "1,2,3,4", "1,2":
		return binary.LittleEndian, true
	case "4,3,2,1", "2,1":
		return binary.BigEndian, true
	default:
		return Host(), false
	}
}
