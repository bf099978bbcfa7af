package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/bundlebench/bundle/internal/bundletype"
)

// FormatVersion is the header version written by Create.
const FormatVersion = 1

const (
	headerSize = 24

	// maxIndexSize bounds the index read at open time.
	maxIndexSize = 256 << 20
)

var magic = [8]byte{'T', 'E', 'X', 'B', 'N', 'D', 'L', 0}

// header is the fixed prefix of a bundle file.
//
//	magic [8] | version u32 | compression u8 | reserved [3] | index length u64
type header struct {
	version     uint32
	compression Compression
	indexLen    uint64
}

func (h header) marshal() []byte {
	buf := make([]byte, headerSize)
	copy(buf, magic[:])
	binary.LittleEndian.PutUint32(buf[8:], h.version)
	buf[12] = byte(h.compression)
	binary.LittleEndian.PutUint64(buf[16:], h.indexLen)
	return buf
}

func readHeader(r io.ReaderAt) (header, error) {
	buf := make([]byte, headerSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return header{}, ErrNotBundle
		}
		return header{}, err
	}
	if [8]byte(buf[:8]) != magic {
		return header{}, ErrNotBundle
	}
	h := header{
		version:     binary.LittleEndian.Uint32(buf[8:]),
		compression: bundletype.Compression(buf[12]),
		indexLen:    binary.LittleEndian.Uint64(buf[16:]),
	}
	if h.version != FormatVersion {
		return header{}, fmt.Errorf("%w: %d", ErrVersion, h.version)
	}
	if !h.compression.Valid() {
		return header{}, fmt.Errorf("%w: unknown compression %d", ErrNotBundle, h.compression)
	}
	return h, nil
}
