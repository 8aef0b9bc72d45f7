package packet

import (
	"math"
	"strconv"
)

// OK is the generic success packet.
type OK struct {
	AffectedRows uint64
	LastInsertID uint64
	StatusFlags  uint16
	Warnings     uint16
}

// Marshal encodes an OK payload for a protocol-4.1 client.
func (o *OK) Marshal() []byte {
	w := NewWriter()
	w.WriteUint8(OK_HEADER)
	w.WriteLengthEncodedInt(o.AffectedRows)
	w.WriteLengthEncodedInt(o.LastInsertID)
	w.WriteUint16(o.StatusFlags)
	w.WriteUint16(o.Warnings)
	return w.Bytes()
}

// UnmarshalOK decodes an OK payload.
func UnmarshalOK(payload []byte) (*OK, error) {
	p := NewPayload(payload)
	header, err := p.ReadByte()
	if err != nil {
		return nil, err
	}
	if header != OK_HEADER {
		return nil, NewSQLError(ClassProtocol, ER_MALFORMED_PACKET, "HY000", "not an OK packet: 0x%02x", header)
	}
	o := &OK{}
	if o.AffectedRows, _, err = p.ReadLengthEncodedInt(); err != nil {
		return nil, err
	}
	if o.LastInsertID, _, err = p.ReadLengthEncodedInt(); err != nil {
		return nil, err
	}
	if o.StatusFlags, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	if o.Warnings, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	return o, nil
}

// ERR is the error packet.
type ERR struct {
	Code    uint16
	State   string // 5 chars, sent after the '#' marker
	Message string
}

// Marshal encodes an ERR payload.
func (e *ERR) Marshal() []byte {
	w := NewWriter()
	w.WriteUint8(ERR_HEADER)
	w.WriteUint16(e.Code)
	state := e.State
	if len(state) != 5 {
		state = "HY000"
	}
	w.WriteUint8('#')
	w.WriteBytes([]byte(state))
	w.WriteBytes([]byte(e.Message))
	return w.Bytes()
}

// UnmarshalERR decodes an ERR payload.
func UnmarshalERR(payload []byte) (*ERR, error) {
	p := NewPayload(payload)
	header, err := p.ReadByte()
	if err != nil {
		return nil, err
	}
	if header != ERR_HEADER {
		return nil, NewSQLError(ClassProtocol, ER_MALFORMED_PACKET, "HY000", "not an ERR packet: 0x%02x", header)
	}
	e := &ERR{}
	if e.Code, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	marker, err := p.ReadByte()
	if err != nil {
		return nil, err
	}
	if marker == '#' {
		state, err := p.ReadBytes(5)
		if err != nil {
			return nil, err
		}
		e.State = string(state)
	}
	e.Message = string(p.ReadRest())
	return e, nil
}

// EOF is the result-set delimiter packet.
type EOF struct {
	Warnings    uint16
	StatusFlags uint16
}

// Marshal encodes an EOF payload.
func (e *EOF) Marshal() []byte {
	w := NewWriter()
	w.WriteUint8(EOF_HEADER)
	w.WriteUint16(e.Warnings)
	w.WriteUint16(e.StatusFlags)
	return w.Bytes()
}

// UnmarshalEOF decodes an EOF payload.
func UnmarshalEOF(payload []byte) (*EOF, error) {
	p := NewPayload(payload)
	header, err := p.ReadByte()
	if err != nil {
		return nil, err
	}
	if header != EOF_HEADER {
		return nil, NewSQLError(ClassProtocol, ER_MALFORMED_PACKET, "HY000", "not an EOF packet: 0x%02x", header)
	}
	e := &EOF{}
	if e.Warnings, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	if e.StatusFlags, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	return e, nil
}

// FieldCount announces the number of columns in a result set.
type FieldCount struct {
	Count uint64
}

// Marshal encodes a field-count payload.
func (f *FieldCount) Marshal() []byte {
	w := NewWriter()
	w.WriteLengthEncodedInt(f.Count)
	return w.Bytes()
}

// UnmarshalFieldCount decodes a field-count payload.
func UnmarshalFieldCount(payload []byte) (*FieldCount, error) {
	p := NewPayload(payload)
	n, _, err := p.ReadLengthEncodedInt()
	if err != nil {
		return nil, err
	}
	return &FieldCount{Count: n}, nil
}

// ColumnDefinition is the protocol-4.1 column definition packet.
type ColumnDefinition struct {
	Schema       string
	Table        string
	OrgTable     string
	Name         string
	OrgName      string
	Charset      uint16
	ColumnLength uint32
	Type         uint8
	Flags        uint16
	Decimals     uint8
}

// Marshal encodes a column definition payload.
func (c *ColumnDefinition) Marshal() []byte {
	w := NewWriter()
	w.WriteLengthEncodedString("def")
	w.WriteLengthEncodedString(c.Schema)
	w.WriteLengthEncodedString(c.Table)
	w.WriteLengthEncodedString(c.OrgTable)
	w.WriteLengthEncodedString(c.Name)
	w.WriteLengthEncodedString(c.OrgName)
	w.WriteUint8(0x0c) // length of the fixed-size block
	w.WriteUint16(c.Charset)
	w.WriteUint32(c.ColumnLength)
	w.WriteUint8(c.Type)
	w.WriteUint16(c.Flags)
	w.WriteUint8(c.Decimals)
	w.WriteZero(2) // filler
	return w.Bytes()
}

// UnmarshalColumnDefinition decodes a column definition payload.
func UnmarshalColumnDefinition(payload []byte) (*ColumnDefinition, error) {
	p := NewPayload(payload)
	c := &ColumnDefinition{}
	read := func() (string, error) {
		b, _, err := p.ReadLengthEncodedBytes()
		return string(b), err
	}
	if _, err := read(); err != nil { // catalog, always "def"
		return nil, err
	}
	var err error
	if c.Schema, err = read(); err != nil {
		return nil, err
	}
	if c.Table, err = read(); err != nil {
		return nil, err
	}
	if c.OrgTable, err = read(); err != nil {
		return nil, err
	}
	if c.Name, err = read(); err != nil {
		return nil, err
	}
	if c.OrgName, err = read(); err != nil {
		return nil, err
	}
	if err = p.Skip(1); err != nil {
		return nil, err
	}
	if c.Charset, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	if c.ColumnLength, err = p.ReadUint32(); err != nil {
		return nil, err
	}
	if c.Type, err = p.ReadByte(); err != nil {
		return nil, err
	}
	if c.Flags, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	if c.Decimals, err = p.ReadByte(); err != nil {
		return nil, err
	}
	return c, nil
}

// TextRow is one text-protocol result row. A nil value is NULL.
type TextRow struct {
	Values [][]byte
}

// Marshal encodes a text row payload.
func (r *TextRow) Marshal() []byte {
	w := NewWriter()
	for _, v := range r.Values {
		if v == nil {
			w.WriteUint8(NULL_MARKER)
		} else {
			w.WriteLengthEncodedBytes(v)
		}
	}
	return w.Bytes()
}

// UnmarshalTextRow decodes a text row payload with the given column count.
func UnmarshalTextRow(payload []byte, columns int) (*TextRow, error) {
	p := NewPayload(payload)
	r := &TextRow{Values: make([][]byte, 0, columns)}
	for i := 0; i < columns; i++ {
		v, null, err := p.ReadLengthEncodedBytes()
		if err != nil {
			return nil, err
		}
		if null {
			r.Values = append(r.Values, nil)
		} else {
			if v == nil {
				v = []byte{}
			}
			r.Values = append(r.Values, v)
		}
	}
	return r, nil
}

// BinaryRow is one binary-protocol result row. Values are the textual
// representations coming out of the executor; Marshal converts them to the
// binary encoding the column type calls for. A nil value is NULL.
type BinaryRow struct {
	Columns []ColumnDefinition
	Values  [][]byte
}

// Marshal encodes a binary row payload: 0x00 header, null bitmap with a
// 2-bit offset, then one type-specific encoded value per non-NULL column.
func (r *BinaryRow) Marshal() []byte {
	w := NewWriter()
	w.WriteUint8(0x00)
	bitmap := make([]byte, (len(r.Values)+7+2)/8)
	for i, v := range r.Values {
		if v == nil {
			bitmap[(i+2)/8] |= 1 << (uint(i+2) % 8)
		}
	}
	w.WriteBytes(bitmap)
	for i, v := range r.Values {
		if v == nil {
			continue
		}
		writeBinaryValue(w, r.Columns[i].Type, v)
	}
	return w.Bytes()
}

func writeBinaryValue(w *Writer, colType uint8, v []byte) {
	switch colType {
	case MYSQL_TYPE_TINY:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		w.WriteUint8(uint8(n))
	case MYSQL_TYPE_SHORT, MYSQL_TYPE_YEAR:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		w.WriteUint16(uint16(n))
	case MYSQL_TYPE_LONG, MYSQL_TYPE_INT24:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		w.WriteUint32(uint32(n))
	case MYSQL_TYPE_LONGLONG:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			// unsigned BIGINT overflowing int64
			u, _ := strconv.ParseUint(string(v), 10, 64)
			w.WriteUint64(u)
			return
		}
		w.WriteUint64(uint64(n))
	case MYSQL_TYPE_FLOAT:
		f, _ := strconv.ParseFloat(string(v), 32)
		w.WriteUint32(math.Float32bits(float32(f)))
	case MYSQL_TYPE_DOUBLE:
		f, _ := strconv.ParseFloat(string(v), 64)
		w.WriteUint64(math.Float64bits(f))
	default:
		// strings, decimals, temporals and blobs travel length-encoded
		w.WriteLengthEncodedBytes(v)
	}
}

// UnmarshalBinaryRow decodes a binary row payload against the column set.
func UnmarshalBinaryRow(payload []byte, columns []ColumnDefinition) (*BinaryRow, error) {
	p := NewPayload(payload)
	if _, err := p.ReadByte(); err != nil {
		return nil, err
	}
	bitmap, err := p.ReadBytes((len(columns) + 7 + 2) / 8)
	if err != nil {
		return nil, err
	}
	r := &BinaryRow{Columns: columns, Values: make([][]byte, len(columns))}
	for i, col := range columns {
		if bitmap[(i+2)/8]&(1<<(uint(i+2)%8)) > 0 {
			continue
		}
		v, err := readBinaryValue(p, col.Type)
		if err != nil {
			return nil, err
		}
		r.Values[i] = v
	}
	return r, nil
}

func readBinaryValue(p *Payload, colType uint8) ([]byte, error) {
	switch colType {
	case MYSQL_TYPE_TINY:
		b, err := p.ReadByte()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int8(b)), 10), nil
	case MYSQL_TYPE_SHORT, MYSQL_TYPE_YEAR:
		v, err := p.ReadUint16()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int16(v)), 10), nil
	case MYSQL_TYPE_LONG, MYSQL_TYPE_INT24:
		v, err := p.ReadUint32()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(int32(v)), 10), nil
	case MYSQL_TYPE_LONGLONG:
		v, err := p.ReadUint64()
		if err != nil {
			return nil, err
		}
		return strconv.AppendInt(nil, int64(v), 10), nil
	case MYSQL_TYPE_FLOAT:
		v, err := p.ReadUint32()
		if err != nil {
			return nil, err
		}
		return strconv.AppendFloat(nil, float64(math.Float32frombits(v)), 'g', -1, 32), nil
	case MYSQL_TYPE_DOUBLE:
		v, err := p.ReadUint64()
		if err != nil {
			return nil, err
		}
		return strconv.AppendFloat(nil, math.Float64frombits(v), 'g', -1, 64), nil
	default:
		v, _, err := p.ReadLengthEncodedBytes()
		return v, err
	}
}

// StmtPrepareOK acknowledges COM_STMT_PREPARE.
type StmtPrepareOK struct {
	StatementID uint32
	ColumnCount uint16
	ParamCount  uint16
	Warnings    uint16
}

// Marshal encodes the prepare acknowledgement payload.
func (s *StmtPrepareOK) Marshal() []byte {
	w := NewWriter()
	w.WriteUint8(OK_HEADER)
	w.WriteUint32(s.StatementID)
	w.WriteUint16(s.ColumnCount)
	w.WriteUint16(s.ParamCount)
	w.WriteUint8(0) // reserved
	w.WriteUint16(s.Warnings)
	return w.Bytes()
}

// UnmarshalStmtPrepareOK decodes a prepare acknowledgement payload.
func UnmarshalStmtPrepareOK(payload []byte) (*StmtPrepareOK, error) {
	p := NewPayload(payload)
	header, err := p.ReadByte()
	if err != nil {
		return nil, err
	}
	if header != OK_HEADER {
		return nil, NewSQLError(ClassProtocol, ER_MALFORMED_PACKET, "HY000", "not a prepare OK packet: 0x%02x", header)
	}
	s := &StmtPrepareOK{}
	if s.StatementID, err = p.ReadUint32(); err != nil {
		return nil, err
	}
	if s.ColumnCount, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	if s.ParamCount, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	if err = p.Skip(1); err != nil {
		return nil, err
	}
	if s.Warnings, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	return s, nil
}
