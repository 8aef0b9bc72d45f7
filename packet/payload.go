package packet

import (
	"bytes"
	"encoding/binary"
)

// Payload is a read cursor over one packet payload. Every read advances the
// cursor; reading past the end returns ErrUnderrun so a malformed packet
// surfaces as a protocol error instead of a panic.
type Payload struct {
	buf []byte
	pos int
}

// NewPayload wraps a payload buffer for reading.
func NewPayload(buf []byte) *Payload {
	return &Payload{buf: buf}
}

// Len returns the number of unread bytes.
func (p *Payload) Len() int {
	return len(p.buf) - p.pos
}

func (p *Payload) need(n int) error {
	if p.pos+n > len(p.buf) {
		return ErrUnderrun
	}
	return nil
}

// ReadByte reads a single byte.
func (p *Payload) ReadByte() (byte, error) {
	if err := p.need(1); err != nil {
		return 0, err
	}
	b := p.buf[p.pos]
	p.pos++
	return b, nil
}

// ReadUint16 reads a 2-byte little-endian integer.
func (p *Payload) ReadUint16() (uint16, error) {
	if err := p.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2
	return v, nil
}

// ReadUint24 reads a 3-byte little-endian integer.
func (p *Payload) ReadUint24() (uint32, error) {
	if err := p.need(3); err != nil {
		return 0, err
	}
	v := uint32(p.buf[p.pos]) | uint32(p.buf[p.pos+1])<<8 | uint32(p.buf[p.pos+2])<<16
	p.pos += 3
	return v, nil
}

// ReadUint32 reads a 4-byte little-endian integer.
func (p *Payload) ReadUint32() (uint32, error) {
	if err := p.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v, nil
}

// ReadUint64 reads an 8-byte little-endian integer.
func (p *Payload) ReadUint64() (uint64, error) {
	if err := p.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return v, nil
}

// ReadLengthEncodedInt reads a length-encoded integer.
// The second return value reports the NULL marker (0xfb).
func (p *Payload) ReadLengthEncodedInt() (uint64, bool, error) {
	first, err := p.ReadByte()
	if err != nil {
		return 0, false, err
	}
	switch first {
	case 0xfb:
		return 0, true, nil
	case 0xfc:
		v, err := p.ReadUint16()
		return uint64(v), false, err
	case 0xfd:
		v, err := p.ReadUint24()
		return uint64(v), false, err
	case 0xfe:
		v, err := p.ReadUint64()
		return v, false, err
	default:
		return uint64(first), false, nil
	}
}

// ReadLengthEncodedBytes reads a length-prefixed byte string.
// A nil slice with null=true is returned for the NULL marker.
func (p *Payload) ReadLengthEncodedBytes() ([]byte, bool, error) {
	n, null, err := p.ReadLengthEncodedInt()
	if err != nil || null {
		return nil, null, err
	}
	b, err := p.ReadBytes(int(n))
	return b, false, err
}

// ReadNulString reads a NUL-terminated string.
func (p *Payload) ReadNulString() (string, error) {
	idx := bytes.IndexByte(p.buf[p.pos:], 0)
	if idx < 0 {
		return "", ErrUnderrun
	}
	s := string(p.buf[p.pos : p.pos+idx])
	p.pos += idx + 1
	return s, nil
}

// ReadBytes reads exactly n raw bytes.
func (p *Payload) ReadBytes(n int) ([]byte, error) {
	if err := p.need(n); err != nil {
		return nil, err
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b, nil
}

// ReadRest returns all unread bytes.
func (p *Payload) ReadRest() []byte {
	b := p.buf[p.pos:]
	p.pos = len(p.buf)
	return b
}

// Skip advances the cursor by n bytes.
func (p *Payload) Skip(n int) error {
	if err := p.need(n); err != nil {
		return err
	}
	p.pos += n
	return nil
}

// Writer builds a packet payload. Writes only ever append.
type Writer struct {
	buf []byte
}

// NewWriter returns a payload writer with some initial capacity.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Bytes returns the written payload.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(b byte) {
	w.buf = append(w.buf, b)
}

// WriteUint16 appends a 2-byte little-endian integer.
func (w *Writer) WriteUint16(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// WriteUint24 appends a 3-byte little-endian integer.
func (w *Writer) WriteUint24(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16))
}

// WriteUint32 appends a 4-byte little-endian integer.
func (w *Writer) WriteUint32(v uint32) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// WriteUint64 appends an 8-byte little-endian integer.
func (w *Writer) WriteUint64(v uint64) {
	w.buf = append(w.buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// WriteLengthEncodedInt appends a length-encoded integer.
func (w *Writer) WriteLengthEncodedInt(n uint64) {
	switch {
	case n < 251:
		w.buf = append(w.buf, byte(n))
	case n < 1<<16:
		w.buf = append(w.buf, 0xfc, byte(n), byte(n>>8))
	case n < 1<<24:
		w.buf = append(w.buf, 0xfd, byte(n), byte(n>>8), byte(n>>16))
	default:
		w.buf = append(w.buf, 0xfe,
			byte(n), byte(n>>8), byte(n>>16), byte(n>>24),
			byte(n>>32), byte(n>>40), byte(n>>48), byte(n>>56))
	}
}

// WriteLengthEncodedBytes appends a length-prefixed byte string.
func (w *Writer) WriteLengthEncodedBytes(b []byte) {
	w.WriteLengthEncodedInt(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteLengthEncodedString appends a length-prefixed string.
func (w *Writer) WriteLengthEncodedString(s string) {
	w.WriteLengthEncodedInt(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteNulString appends a NUL-terminated string.
func (w *Writer) WriteNulString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteZero appends n zero bytes.
func (w *Writer) WriteZero(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}
