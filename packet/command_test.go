package packet

import (
	"bytes"
	"testing"
)

func TestParseCommand_Query(t *testing.T) {
	payload := append([]byte{COM_QUERY}, []byte("SELECT * FROM t_order")...)
	cmd, err := ParseCommand(payload)
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	q, ok := cmd.(Query)
	if !ok {
		t.Fatalf("command type = %T, want Query", cmd)
	}
	if q.SQL != "SELECT * FROM t_order" {
		t.Errorf("SQL = %q, want %q", q.SQL, "SELECT * FROM t_order")
	}
}

func TestParseCommand_Simple(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    byte
	}{
		{"quit", []byte{COM_QUIT}, COM_QUIT},
		{"ping", []byte{COM_PING}, COM_PING},
		{"init db", append([]byte{COM_INIT_DB}, []byte("orders")...), COM_INIT_DB},
		{"prepare", append([]byte{COM_STMT_PREPARE}, []byte("SELECT ?")...), COM_STMT_PREPARE},
		{"close", []byte{COM_STMT_CLOSE, 0x07, 0x00, 0x00, 0x00}, COM_STMT_CLOSE},
		{"reset", []byte{COM_STMT_RESET, 0x07, 0x00, 0x00, 0x00}, COM_STMT_RESET},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := ParseCommand(tc.payload)
			if err != nil {
				t.Fatalf("ParseCommand: %v", err)
			}
			if cmd.CommandType() != tc.want {
				t.Errorf("CommandType = 0x%02x, want 0x%02x", cmd.CommandType(), tc.want)
			}
		})
	}
}

func TestParseCommand_Unknown(t *testing.T) {
	cmd, err := ParseCommand([]byte{0x1f})
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	u, ok := cmd.(Unknown)
	if !ok {
		t.Fatalf("command type = %T, want Unknown", cmd)
	}
	if u.Type != 0x1f {
		t.Errorf("Type = 0x%02x, want 0x1f", u.Type)
	}
}

func TestParseCommand_Empty(t *testing.T) {
	if _, err := ParseCommand(nil); err == nil {
		t.Error("empty command payload should fail")
	}
}

func TestStmtExecute_DecodeParams(t *testing.T) {
	// Two parameters: an int64 and a NULL. Null bitmap marks parameter 1,
	// new-params-bound is set, types follow, then the one present value.
	w := NewWriter()
	w.WriteUint8(COM_STMT_EXECUTE)
	w.WriteUint32(3) // statement id
	w.WriteUint8(0)  // flags
	w.WriteUint32(1) // iteration count
	w.WriteUint8(0x02)
	w.WriteUint8(1) // new params bound
	w.WriteUint8(MYSQL_TYPE_LONGLONG)
	w.WriteUint8(0)
	w.WriteUint8(MYSQL_TYPE_NULL)
	w.WriteUint8(0)
	w.WriteUint64(12345)

	cmd, err := ParseCommand(w.Bytes())
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	exec, ok := cmd.(StmtExecute)
	if !ok {
		t.Fatalf("command type = %T, want StmtExecute", cmd)
	}
	if exec.StatementID != 3 {
		t.Errorf("StatementID = %d, want 3", exec.StatementID)
	}

	if err := exec.DecodeExecuteParams(2); err != nil {
		t.Fatalf("DecodeExecuteParams: %v", err)
	}
	if !exec.NewParamsBound {
		t.Error("NewParamsBound = false, want true")
	}
	if exec.ParamNull(0) {
		t.Error("ParamNull(0) = true, want false")
	}
	if !exec.ParamNull(1) {
		t.Error("ParamNull(1) = false, want true")
	}
	wantTypes := []byte{MYSQL_TYPE_LONGLONG, 0, MYSQL_TYPE_NULL, 0}
	if !bytes.Equal(exec.ParamTypes, wantTypes) {
		t.Errorf("ParamTypes = %x, want %x", exec.ParamTypes, wantTypes)
	}
	if len(exec.ParamValues) != 8 {
		t.Errorf("ParamValues length = %d, want 8", len(exec.ParamValues))
	}
}

func TestStmtExecute_DecodeParams_None(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(COM_STMT_EXECUTE)
	w.WriteUint32(9)
	w.WriteUint8(0)
	w.WriteUint32(1)

	cmd, err := ParseCommand(w.Bytes())
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	exec := cmd.(StmtExecute)
	if err := exec.DecodeExecuteParams(0); err != nil {
		t.Fatalf("DecodeExecuteParams: %v", err)
	}
	if exec.NewParamsBound {
		t.Error("NewParamsBound = true, want false for zero parameters")
	}
}

func TestStmtExecute_DecodeParams_Truncated(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(COM_STMT_EXECUTE)
	w.WriteUint32(9)
	w.WriteUint8(0)
	w.WriteUint32(1)
	w.WriteUint8(0x00) // bitmap only, bound flag missing

	cmd, err := ParseCommand(w.Bytes())
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	exec := cmd.(StmtExecute)
	if err := exec.DecodeExecuteParams(1); err == nil {
		t.Error("truncated execute payload should fail to decode")
	}
}

func TestCommandName(t *testing.T) {
	if got := CommandName(COM_QUERY); got != "COM_QUERY" {
		t.Errorf("CommandName(COM_QUERY) = %q, want COM_QUERY", got)
	}
	if got := CommandName(0xee); got == "" {
		t.Error("CommandName of unknown byte should not be empty")
	}
}
