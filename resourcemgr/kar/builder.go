package kar

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pierrec/lz4"
)

// NewBuilder creates a Builder that stages compressed files under a
// fresh temp directory until WriteTo bundles them into one archive. Do
// not set header.Index; Builder overwrites it from the staged files.
func NewBuilder(header Header) (*Builder, error) {
	temp, err := ioutil.TempDir("", "karBuilder")
	if err != nil {
		return nil, err
	}
	b := &Builder{tempDir: temp, header: header}
	runtime.SetFinalizer(b, func(b *Builder) { os.RemoveAll(b.tempDir) })
	return b, nil
}

type stagedFile struct {
	name           string
	tempPath       string
	size           int64
	compressedSize int64
}

// Builder stages files compressed on disk, then bundles them into one
// kar archive on WriteTo. An archive is write-once: once written, append
// a new archive rather than mutating an existing one, so readers never
// observe a half-written file.
type Builder struct {
	tempDir string
	header  Header

	mutex sync.Mutex
	files []stagedFile
}

// Add compresses data with lz4 into a staging file under name. Safe to
// call concurrently; each call blocks only for its own compression.
func (b *Builder) Add(name string, data []byte) error {
	tempName := strconv.FormatInt(time.Now().UnixNano(), 36)
	tempPath := filepath.Join(b.tempDir, tempName)

	f, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := lz4.NewWriter(f)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files = append(b.files, stagedFile{
		name:           name,
		tempPath:       tempPath,
		size:           int64(len(data)),
		compressedSize: info.Size(),
	})
	return nil
}

// WriteTo writes the magic number, the gob-encoded header and every
// staged file's compressed bytes, in that order, and returns the total
// number of bytes written. Each IndexEntry's Offset is the absolute byte
// offset of its compressed data within w, so a Reader opened later can
// seek straight to it without decompressing anything ahead of it.
//
// Where the payload region starts can't be known until the header is
// encoded, and the header can't be encoded until every entry's Offset is
// known — so WriteTo reserves Header.reservedSize bytes for the header
// up front (computed from name lengths alone, before any Offset exists),
// fills in the real offsets relative to the end of that reservation, and
// pads out to it. A reader never needs to know about the reservation: it
// only reads the header's real encoded length and then seeks using the
// Offset values already sitting in the decoded index.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := b.header
	header.Index = make([]IndexEntry, len(b.files))
	for i, f := range b.files {
		header.Index[i] = IndexEntry{Name: f.name, Size: f.size, CompressedSize: f.compressedSize}
	}

	baseOffset := int64(MagicLength+HeaderSizeNumberLength) + header.reservedSize()
	offset := baseOffset
	for i, f := range b.files {
		header.Index[i].Offset = offset
		offset += f.compressedSize
	}

	rawHeader, err := gobEncode(header)
	if err != nil {
		return 0, err
	}
	if int64(len(rawHeader)) > header.reservedSize() {
		return 0, fmt.Errorf("kar: header grew to %d bytes, exceeding the %d reserved", len(rawHeader), header.reservedSize())
	}
	padding := baseOffset - int64(MagicLength+HeaderSizeNumberLength+len(rawHeader))

	var written int64
	for _, chunk := range [][]byte{magic[:], int64ToBinary(int64(len(rawHeader))), rawHeader, make([]byte, padding)} {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}

	for _, f := range b.files {
		payload, err := os.Open(f.tempPath)
		if err != nil {
			return written, err
		}
		copied, err := io.Copy(w, payload)
		payload.Close()
		written += copied
		if err != nil {
			return written, err
		}
	}

	b.files = b.files[:0]
	return written, nil
}
