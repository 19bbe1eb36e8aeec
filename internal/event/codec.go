package event

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/pathledger/pathledger/internal/errors"
)

// Wire format, shared with the remote ledger program. All integers are
// fixed-width little-endian; strings are a u32 byte length followed by
// UTF-8 bytes; optional values are a single presence byte (0 or 1)
// followed by the value if present; timestamps are signed 128-bit.
//
// Event:    path, received_at (i128), type (u8 tag), info (option)
// FileInfo: access_ts, modify_ts, created_ts (option<i128> each),
//           size (u64), mode (u32)
//
// The layout is deterministic: identical logical content yields identical
// bytes on every platform, because the encoded state is independently
// verified against the remote copy.

// AppendUint32 appends v in little-endian order.
func AppendUint32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

// AppendString appends a u32 length prefix and the UTF-8 bytes of s.
func AppendString(buf []byte, s string) []byte {
	buf = AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// appendInt128 appends v sign-extended to 16 little-endian bytes.
func appendInt128(buf []byte, v int64) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
	var high uint64
	if v < 0 {
		high = ^uint64(0)
	}
	return binary.LittleEndian.AppendUint64(buf, high)
}

// appendOptionTS appends an optional timestamp.
func appendOptionTS(buf []byte, ts *int64) []byte {
	if ts == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return appendInt128(buf, *ts)
}

// AppendEvent appends the wire encoding of e.
func AppendEvent(buf []byte, e Event) []byte {
	buf = AppendString(buf, e.Path)
	buf = appendInt128(buf, e.ReceivedAt)
	buf = append(buf, byte(e.Type))
	if e.Info == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	buf = appendOptionTS(buf, e.Info.AccessTS)
	buf = appendOptionTS(buf, e.Info.ModifyTS)
	buf = appendOptionTS(buf, e.Info.CreatedTS)
	buf = binary.LittleEndian.AppendUint64(buf, e.Info.Size)
	return AppendUint32(buf, e.Info.Mode)
}

// MarshalEvent encodes e into a fresh buffer.
func MarshalEvent(e Event) []byte {
	return AppendEvent(nil, e)
}

// UnmarshalEvent decodes a single event and rejects trailing bytes.
func UnmarshalEvent(data []byte) (Event, error) {
	d := NewDecoder(data)
	e, err := d.Event()
	if err != nil {
		return Event{}, err
	}
	if d.Remaining() != 0 {
		return Event{}, errors.Serializationf("%d trailing bytes after event", d.Remaining())
	}
	return e, nil
}

// Decoder reads wire-format values out of a byte buffer.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder creates a decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

func (d *Decoder) take(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, errors.Serializationf("unexpected end of input at offset %d (need %d bytes, have %d)", d.off, n, d.Remaining())
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) uint8() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Uint32 reads a little-endian u32.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *Decoder) uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// int128 reads a signed 128-bit value that must fit in an int64. The
// remote side writes full i128 timestamps; anything outside the int64
// range is a schema violation, not a value we can represent.
func (d *Decoder) int128() (int64, error) {
	low, err := d.uint64()
	if err != nil {
		return 0, err
	}
	high, err := d.uint64()
	if err != nil {
		return 0, err
	}
	v := int64(low)
	if (v >= 0 && high != 0) || (v < 0 && high != ^uint64(0)) {
		return 0, errors.Serializationf("timestamp out of int64 range (high bits %#x)", high)
	}
	return v, nil
}

// String reads a u32-length-prefixed UTF-8 string.
func (d *Decoder) String() (string, error) {
	n, err := d.Uint32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(d.Remaining()) {
		return "", errors.Serializationf("string length %d exceeds remaining input %d", n, d.Remaining())
	}
	b, err := d.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.Serialization("string is not valid UTF-8")
	}
	return string(b), nil
}

// option reads a presence byte.
func (d *Decoder) option() (bool, error) {
	b, err := d.uint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Serializationf("invalid option flag %#x at offset %d", b, d.off-1)
	}
}

func (d *Decoder) optionTS() (*int64, error) {
	present, err := d.option()
	if err != nil || !present {
		return nil, err
	}
	ts, err := d.int128()
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// Event reads one wire-format event.
func (d *Decoder) Event() (Event, error) {
	var e Event
	var err error

	if e.Path, err = d.String(); err != nil {
		return Event{}, err
	}
	if e.ReceivedAt, err = d.int128(); err != nil {
		return Event{}, err
	}
	tag, err := d.uint8()
	if err != nil {
		return Event{}, err
	}
	e.Type = Type(tag)
	if !e.Type.Valid() {
		return Event{}, errors.Serializationf("unknown event type tag %d", tag)
	}

	present, err := d.option()
	if err != nil {
		return Event{}, err
	}
	if !present {
		return e, nil
	}

	info := &FileInfo{}
	if info.AccessTS, err = d.optionTS(); err != nil {
		return Event{}, err
	}
	if info.ModifyTS, err = d.optionTS(); err != nil {
		return Event{}, err
	}
	if info.CreatedTS, err = d.optionTS(); err != nil {
		return Event{}, err
	}
	if info.Size, err = d.uint64(); err != nil {
		return Event{}, err
	}
	if info.Mode, err = d.Uint32(); err != nil {
		return Event{}, err
	}
	e.Info = info
	return e, nil
}
