package kar

import "testing"

func TestInt64BinaryRoundTrip(t *testing.T) {
	cases := []int64{0, 1, 255, 1 << 40, -1}
	for _, c := range cases {
		got, err := binaryToInt64(int64ToBinary(c))
		if err != nil {
			t.Fatalf("binaryToInt64(%d): %v", c, err)
		}
		if got != c {
			t.Errorf("round trip %d got %d", c, got)
		}
	}
}

func TestBinaryToInt64RejectsShortBuffer(t *testing.T) {
	if _, err := binaryToInt64([]byte{1, 2, 3}); err != ErrFileFormat {
		t.Errorf("expected ErrFileFormat, got %v", err)
	}
}

func TestGobRoundTrip(t *testing.T) {
	h := Header{
		Author:      "tester",
		DateCreated: 1234,
		Version:     1,
		Index: []IndexEntry{
			{Name: "a.mesh", Offset: 16, Size: 100, CompressedSize: 50},
		},
	}
	raw, err := gobEncode(h)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Header
	if err := gobDecode(&decoded, raw); err != nil {
		t.Fatal(err)
	}
	if decoded.Author != h.Author || len(decoded.Index) != 1 || decoded.Index[0].Name != "a.mesh" {
		t.Errorf("decoded header mismatch: %+v", decoded)
	}
}

func TestReservedSizeCoversRealOffsets(t *testing.T) {
	h := Header{
		Author: "tester",
		Index: []IndexEntry{
			{Name: "meshes/knight.dae"},
			{Name: "textures/knight_diffuse.png"},
		},
	}
	before := h.reservedSize()

	// Filling in large offsets must not grow the encoded header past what
	// reservedSize already promised, since reservedSize is computed before
	// any offset is known.
	h.Index[0].Offset = 1 << 30
	h.Index[1].Offset = 1 << 31
	raw, err := gobEncode(h)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(raw)) > before {
		t.Errorf("encoded header %d bytes exceeds reserved %d", len(raw), before)
	}
}
