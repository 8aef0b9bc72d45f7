package server

import (
	"bytes"
	"testing"

	"github.com/dbmesh/dbmesh/backend"
	"github.com/dbmesh/dbmesh/packet"
)

func decodeFrames(t *testing.T, data []byte) ([][]byte, []uint8) {
	t.Helper()
	var payloads [][]byte
	var seqs []uint8
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		payload, seq, err := packet.ReadPacket(r)
		if err != nil {
			t.Fatalf("decode frames: %v", err)
		}
		payloads = append(payloads, payload)
		seqs = append(seqs, seq)
	}
	return payloads, seqs
}

func TestEncodeResultSets_EmitOrder(t *testing.T) {
	set := &backend.ResultSet{
		Columns: []packet.ColumnDefinition{
			{Name: "id", Type: packet.MYSQL_TYPE_LONG},
			{Name: "name", Type: packet.MYSQL_TYPE_VAR_STRING},
		},
		Rows: [][][]byte{
			{[]byte("1"), []byte("alice")},
			{[]byte("2"), nil},
		},
	}

	enc := newResponseEncoder(1)
	enc.encodeResultSets([]*backend.ResultSet{set}, packet.SERVER_STATUS_AUTOCOMMIT, false)

	payloads, seqs := decodeFrames(t, enc.buf)
	// column count, 2 column defs, EOF, 2 rows, EOF
	if len(payloads) != 7 {
		t.Fatalf("frames = %d, want 7", len(payloads))
	}
	for i, seq := range seqs {
		if seq != uint8(1+i) {
			t.Errorf("frame %d sequence = %d, want %d", i, seq, 1+i)
		}
	}
	if enc.seq != 8 {
		t.Errorf("next sequence = %d, want 8", enc.seq)
	}

	fc, err := packet.UnmarshalFieldCount(payloads[0])
	if err != nil || fc.Count != 2 {
		t.Errorf("column count = %v, %v, want 2", fc, err)
	}
	if payloads[3][0] != packet.EOF_HEADER {
		t.Errorf("frame 3 header = 0x%02x, want EOF after columns", payloads[3][0])
	}
	row, err := packet.UnmarshalTextRow(payloads[4], 2)
	if err != nil {
		t.Fatalf("decode row: %v", err)
	}
	if string(row.Values[1]) != "alice" {
		t.Errorf("row value = %q, want alice", row.Values[1])
	}
	if payloads[6][0] != packet.EOF_HEADER {
		t.Errorf("last frame header = 0x%02x, want EOF", payloads[6][0])
	}
}

func TestEncodeResultSets_StatusSetIsOK(t *testing.T) {
	// A multi-result execution can mix row sets with pure status sets; the
	// latter have no columns and go out as a single OK.
	sets := []*backend.ResultSet{
		{
			Columns: []packet.ColumnDefinition{{Name: "id", Type: packet.MYSQL_TYPE_LONG}},
			Rows:    [][][]byte{{[]byte("1")}},
		},
		{},
	}
	enc := newResponseEncoder(1)
	enc.encodeResultSets(sets, packet.SERVER_STATUS_AUTOCOMMIT, false)

	payloads, _ := decodeFrames(t, enc.buf)
	// set 1: count, col, EOF, row, EOF; set 2: OK
	if len(payloads) != 6 {
		t.Fatalf("frames = %d, want 6", len(payloads))
	}
	trailer, err := packet.UnmarshalEOF(payloads[4])
	if err != nil {
		t.Fatalf("decode EOF: %v", err)
	}
	if trailer.StatusFlags&packet.SERVER_MORE_RESULTS_EXISTS == 0 {
		t.Error("row set trailer should announce more results")
	}
	ok, err := packet.UnmarshalOK(payloads[5])
	if err != nil {
		t.Fatalf("decode OK: %v", err)
	}
	if ok.StatusFlags&packet.SERVER_MORE_RESULTS_EXISTS != 0 {
		t.Error("final status set must not announce more results")
	}
}

func TestEncodeResultSets_OnlyStatusSet(t *testing.T) {
	enc := newResponseEncoder(1)
	enc.encodeResultSets([]*backend.ResultSet{{}}, packet.SERVER_STATUS_AUTOCOMMIT, false)

	payloads, _ := decodeFrames(t, enc.buf)
	if len(payloads) != 1 {
		t.Fatalf("frames = %d, want 1", len(payloads))
	}
	if payloads[0][0] != packet.OK_HEADER {
		t.Errorf("header = 0x%02x, want OK", payloads[0][0])
	}
	if enc.seq != 2 {
		t.Errorf("next sequence = %d, want 2", enc.seq)
	}
}

func TestEncodeResultSets_MoreResultsFlag(t *testing.T) {
	sets := []*backend.ResultSet{
		{Columns: []packet.ColumnDefinition{{Name: "a", Type: packet.MYSQL_TYPE_LONG}}},
		{Columns: []packet.ColumnDefinition{{Name: "b", Type: packet.MYSQL_TYPE_LONG}}},
	}
	enc := newResponseEncoder(1)
	enc.encodeResultSets(sets, packet.SERVER_STATUS_AUTOCOMMIT, false)

	payloads, _ := decodeFrames(t, enc.buf)
	// set 1: count, col, EOF, EOF; set 2: count, col, EOF, EOF
	if len(payloads) != 8 {
		t.Fatalf("frames = %d, want 8", len(payloads))
	}
	firstTrailer, err := packet.UnmarshalEOF(payloads[3])
	if err != nil {
		t.Fatalf("decode EOF: %v", err)
	}
	if firstTrailer.StatusFlags&packet.SERVER_MORE_RESULTS_EXISTS == 0 {
		t.Error("first set's trailing EOF must carry the more-results flag")
	}
	lastTrailer, err := packet.UnmarshalEOF(payloads[7])
	if err != nil {
		t.Fatalf("decode EOF: %v", err)
	}
	if lastTrailer.StatusFlags&packet.SERVER_MORE_RESULTS_EXISTS != 0 {
		t.Error("final set's trailing EOF must not carry the more-results flag")
	}
}

func TestEncodeResultSets_BinaryRows(t *testing.T) {
	cols := []packet.ColumnDefinition{{Name: "id", Type: packet.MYSQL_TYPE_LONGLONG}}
	set := &backend.ResultSet{
		Columns: cols,
		Rows:    [][][]byte{{[]byte("42")}},
	}
	enc := newResponseEncoder(1)
	enc.encodeResultSets([]*backend.ResultSet{set}, packet.SERVER_STATUS_AUTOCOMMIT, true)

	payloads, _ := decodeFrames(t, enc.buf)
	row, err := packet.UnmarshalBinaryRow(payloads[3], cols)
	if err != nil {
		t.Fatalf("decode binary row: %v", err)
	}
	if string(row.Values[0]) != "42" {
		t.Errorf("binary row value = %q, want 42", row.Values[0])
	}
}

func TestEncodePrepareAck(t *testing.T) {
	enc := newResponseEncoder(1)
	enc.encodePrepareAck(7, 2, packet.SERVER_STATUS_AUTOCOMMIT)

	payloads, _ := decodeFrames(t, enc.buf)
	// ack, 2 param defs, EOF
	if len(payloads) != 4 {
		t.Fatalf("frames = %d, want 4", len(payloads))
	}
	ack, err := packet.UnmarshalStmtPrepareOK(payloads[0])
	if err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.StatementID != 7 || ack.ParamCount != 2 || ack.ColumnCount != 0 {
		t.Errorf("ack = %+v, want id 7, 2 params, 0 columns", ack)
	}
}

func TestEncodePrepareAck_NoParams(t *testing.T) {
	enc := newResponseEncoder(1)
	enc.encodePrepareAck(3, 0, packet.SERVER_STATUS_AUTOCOMMIT)

	payloads, _ := decodeFrames(t, enc.buf)
	if len(payloads) != 1 {
		t.Fatalf("frames = %d, want only the ack", len(payloads))
	}
}

func TestCountPackets(t *testing.T) {
	enc := newResponseEncoder(1)
	enc.append([]byte{0x01, 0x02})
	enc.append([]byte{0x03})
	enc.append(nil)
	if got := countPackets(enc.buf); got != 3 {
		t.Errorf("countPackets = %d, want 3", got)
	}
}

func TestFormatArg(t *testing.T) {
	tests := []struct {
		arg  interface{}
		want string
	}{
		{int64(-5), "-5"},
		{uint64(7), "7"},
		{"abc", "abc"},
		{2.5, "2.5"},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := formatArg(tc.arg); got != tc.want {
			t.Errorf("formatArg(%v) = %q, want %q", tc.arg, got, tc.want)
		}
	}
}
