package kar

import (
	"io"
	"io/ioutil"

	"github.com/pierrec/lz4"
)

// Open opens the kar archive backed by r, validates its magic number and
// decodes its header. r is typically a memory-mapped file (see
// golang.org/x/exp/mmap), so opening many files out of the archive
// concurrently costs no extra file descriptors or read syscalls.
func Open(r io.ReaderAt) (*Archive, error) {
	var magicBuf [MagicLength]byte
	if _, err := r.ReadAt(magicBuf[:], 0); err != nil {
		return nil, err
	}
	if magicBuf != magic {
		return nil, ErrFileFormat
	}

	sizeBuf := make([]byte, HeaderSizeNumberLength)
	if _, err := r.ReadAt(sizeBuf, MagicLength); err != nil {
		return nil, err
	}
	headerSize, err := binaryToInt64(sizeBuf)
	if err != nil {
		return nil, err
	}

	rawHeader := make([]byte, headerSize)
	if _, err := r.ReadAt(rawHeader, MagicLength+HeaderSizeNumberLength); err != nil {
		return nil, err
	}

	var header Header
	if err := gobDecode(&header, rawHeader); err != nil {
		return nil, ErrFileFormat
	}

	index := make(map[string]IndexEntry, len(header.Index))
	for _, e := range header.Index {
		index[e.Name] = e
	}

	return &Archive{reader: r, header: header, index: index}, nil
}

// Archive provides concurrent, read-only access to the files packed into
// a kar file. Every file's location was already known from the header,
// so Open and ReadAll never scan the archive.
type Archive struct {
	reader io.ReaderAt
	header Header
	index  map[string]IndexEntry
}

// Files lists every name packed into the archive.
func (a *Archive) Files() []string {
	names := make([]string, 0, len(a.index))
	for name := range a.index {
		names = append(names, name)
	}
	return names
}

// ReadAll decompresses and returns the entire contents of the named
// file.
func (a *Archive) ReadAll(name string) ([]byte, error) {
	r, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	return ioutil.ReadAll(r)
}

// Open returns a Reader over the decompressed contents of the named
// file. Safe to call concurrently for the same or different names.
func (a *Archive) Open(name string) (*Reader, error) {
	entry, ok := a.index[name]
	if !ok {
		return nil, ErrNotFound
	}
	section := io.NewSectionReader(a.reader, entry.Offset, entry.CompressedSize)
	return &Reader{entry: entry, decompressed: lz4.NewReader(section)}, nil
}

// Reader reads the decompressed contents of a single file in an Archive.
type Reader struct {
	entry        IndexEntry
	decompressed io.Reader
}

// Read implements io.Reader, transparently lz4-decompressing as it goes.
func (r *Reader) Read(p []byte) (int, error) {
	return r.decompressed.Read(p)
}

// Size reports the file's decompressed size.
func (r *Reader) Size() int64 { return r.entry.Size }

// Close releases the archive's backing reader if it implements
// io.Closer, as a memory-mapped file does.
func (a *Archive) Close() error {
	if closer, ok := a.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
