package fcs

import "io"

// sectionReader performs positioned, bounded reads against a seekable byte
// source. All offsets are absolute and inclusive, relative to a caller-
// supplied base (the start of the current data set, to support chained
// $nextdata sets within one stream).
type sectionReader struct {
	r    io.ReaderAt
	size int64
}

func newSectionReader(r io.ReaderAt, size int64) *sectionReader {
	return &sectionReader{r: r, size: size}
}

// Size returns the total length of the underlying stream.
func (s *sectionReader) Size() int64 { return s.size }

// read returns exactly stop-start+1 bytes starting at offsetBase+start.
func (s *sectionReader) read(offsetBase, start, stop int64) ([]byte, error) {
	if stop < start {
		return nil, parseErrorf("invalid byte range [%d,%d]", start, stop)
	}
	n := stop - start + 1
	buf := make([]byte, n)
	nr, err := io.ReadFull(io.NewSectionReader(s.r, offsetBase+start, n), buf)
	if nr != int(n) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, ioErrorf("short read at offset %d: wanted %d bytes, got %d: %v", offsetBase+start, n, nr, err)
	}
	return buf, nil
}

// sizeOf returns the total length of r (the common case: *os.File,
// *bytes.Reader) by seeking to its end through io.Seeker and restoring
// the original position; a source without io.Seeker is an error.
func sizeOf(r io.ReaderAt) (int64, error) {
	if s, ok := r.(io.Seeker); ok {
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, ioErrorf("%v", err)
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return 0, ioErrorf("%v", err)
		}
		if _, err := s.Seek(cur, io.SeekStart); err != nil {
			return 0, ioErrorf("%v", err)
		}
		return end, nil
	}
	return 0, ioErrorf("byte source does not implement io.Seeker; size must be supplied explicitly")
}
