// Package kar is a format for bundling mesh and texture files for
// streaming. Unlike tar, every file's location is known from the header
// alone, so a reader never has to scan forward through the archive to
// find one file; unlike zip, the archive itself carries no central
// directory trailer, so it's safe to read while still being appended to
// by a Builder. Each file is compressed individually with lz4 rather
// than the archive as a whole, trading some space efficiency for being
// able to decompress exactly one file without touching the rest.
package kar

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
)

var (
	// ErrFileFormat is returned when the archive's magic number or
	// header fails to decode.
	ErrFileFormat = errors.New("kar: corrupted or not a kar archive")

	// ErrNotFound is returned when an archive has no entry with the
	// requested name.
	ErrNotFound = errors.New("kar: no such file in archive")
)

// Magic and header-size field sizes, in bytes, at the start of the file.
const (
	MagicLength            = 4
	HeaderSizeNumberLength = 8
)

var magic = [MagicLength]byte{'K', 'A', 'R', 0}

// IndexEntry locates one file within the archive.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header is the archive's file index, gob-encoded directly after the
// magic number and header-size field.
type Header struct {
	Author      string
	DateCreated int64
	Version     int64
	Index       []IndexEntry
}

// reservedSize estimates an upper bound on the gob-encoded size of the
// header once every entry's Offset is filled in. Builder reserves this
// many bytes for the header before it knows the header's real encoded
// size, so where the payload region starts never depends on what the
// payload offsets themselves turn out to be. The fixed 256 bytes cover
// gob's type descriptors and the fixed fields; the 64 per entry cover its
// name's length prefix and its three int64 fields at their widest.
func (h *Header) reservedSize() int64 {
	size := int64(len(h.Author)) + 256
	for _, e := range h.Index {
		size += int64(len(e.Name)) + 64
	}
	return size
}

func int64ToBinary(num int64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(num))
	return buf
}

func binaryToInt64(b []byte) (int64, error) {
	if len(b) < 8 {
		return 0, ErrFileFormat
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func gobEncode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(v interface{}, b []byte) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(v)
}
