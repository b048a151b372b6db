package kar

import (
	"bytes"
	"io/ioutil"
	"testing"
)

func TestBuilderWriteToThenOpenRoundTrip(t *testing.T) {
	b, err := NewBuilder(Header{Author: "tester", Version: 1})
	if err != nil {
		t.Fatal(err)
	}

	files := map[string][]byte{
		"meshes/knight.dae":          []byte("<collada>geometry data here</collada>"),
		"textures/knight_diffuse.png": bytes.Repeat([]byte{0xFF, 0x00, 0x7F}, 64),
		"empty.txt":                   {},
	}
	for name, data := range files {
		if err := b.Add(name, data); err != nil {
			t.Fatalf("Add(%q): %v", name, err)
		}
	}

	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, buffer has %d", n, buf.Len())
	}

	archive, err := Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer archive.Close()

	if got := len(archive.Files()); got != len(files) {
		t.Fatalf("Files() returned %d entries, want %d", got, len(files))
	}

	for name, want := range files {
		r, err := archive.Open(name)
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		got, err := ioutil.ReadAll(r)
		if err != nil {
			t.Fatalf("read %q: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%q round trip mismatch: got %d bytes, want %d bytes", name, len(got), len(want))
		}
		if r.Size() != int64(len(want)) {
			t.Errorf("%q Size() = %d, want %d", name, r.Size(), len(want))
		}
	}

	all, err := archive.ReadAll("meshes/knight.dae")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(all, files["meshes/knight.dae"]) {
		t.Error("ReadAll mismatch")
	}
}

func TestArchiveOpenUnknownFileFails(t *testing.T) {
	b, err := NewBuilder(Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Add("present.txt", []byte("hi")); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := b.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	archive, err := Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := archive.Open("missing.txt"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	junk := bytes.NewReader([]byte("not a kar archive at all, just junk bytes"))
	if _, err := Open(junk); err != ErrFileFormat {
		t.Errorf("expected ErrFileFormat, got %v", err)
	}
}

func TestBuilderReusedAfterWriteTo(t *testing.T) {
	b, err := NewBuilder(Header{})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Add("one.txt", []byte("one")); err != nil {
		t.Fatal(err)
	}
	var first bytes.Buffer
	if _, err := b.WriteTo(&first); err != nil {
		t.Fatal(err)
	}

	if err := b.Add("two.txt", []byte("two")); err != nil {
		t.Fatal(err)
	}
	var second bytes.Buffer
	if _, err := b.WriteTo(&second); err != nil {
		t.Fatal(err)
	}

	archive, err := Open(bytes.NewReader(second.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(archive.Files()) != 1 {
		t.Errorf("second archive should only contain files added after the first WriteTo, got %v", archive.Files())
	}
}
