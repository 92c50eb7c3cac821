package models

import (
	"encoding/binary"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	json "github.com/goccy/go-json"
)

// TrackSet records the distinct track IDs a user has ever played, backed by
// a roaring bitmap. Serializes to a base64 string in JSON snapshots and to
// the native roaring format in binary records.
type TrackSet struct {
	bm *roaring.Bitmap
}

func NewTrackSet() *TrackSet {
	return &TrackSet{bm: roaring.New()}
}

func (t *TrackSet) Add(id uint32) {
	if t.bm == nil {
		t.bm = roaring.New()
	}
	t.bm.Add(id)
}

func (t *TrackSet) Contains(id uint32) bool {
	return t.bm != nil && t.bm.Contains(id)
}

// Clone returns an independent copy, safe to serialize while the original
// keeps mutating.
func (t *TrackSet) Clone() *TrackSet {
	if t == nil || t.bm == nil {
		return NewTrackSet()
	}
	return &TrackSet{bm: t.bm.Clone()}
}

func (t *TrackSet) Cardinality() uint64 {
	if t.bm == nil {
		return 0
	}
	return t.bm.GetCardinality()
}

func (t *TrackSet) MarshalJSON() ([]byte, error) {
	if t.bm == nil {
		t.bm = roaring.New()
	}
	b64, err := t.bm.ToBase64()
	if err != nil {
		return nil, err
	}
	return json.Marshal(b64)
}

func (t *TrackSet) UnmarshalJSON(data []byte) error {
	var b64 string
	if err := json.Unmarshal(data, &b64); err != nil {
		return err
	}
	t.bm = roaring.New()
	if b64 == "" {
		return nil
	}
	_, err := t.bm.FromBase64(b64)
	return err
}

// WriteBinaryTo writes the bitmap in roaring's native format with a uint32
// byte-length prefix so it can be embedded in a larger stream.
func (t *TrackSet) WriteBinaryTo(w io.Writer) error {
	if t.bm == nil {
		t.bm = roaring.New()
	}
	data, err := t.bm.ToBytes()
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ReadBinaryFrom replaces the bitmap from a length-prefixed roaring frame.
func (t *TrackSet) ReadBinaryFrom(r io.Reader) error {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	t.bm = roaring.New()
	return t.bm.UnmarshalBinary(buf)
}
