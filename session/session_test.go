package session

import (
	"testing"

	"github.com/dbmesh/dbmesh/analyzer"
	"github.com/dbmesh/dbmesh/packet"
)

func stmtCtx(paramCount int) *analyzer.StatementContext {
	return &analyzer.StatementContext{
		Kind:       analyzer.KindSelect,
		Tables:     map[string]string{"t_order": ""},
		ParamCount: paramCount,
	}
}

func TestSession_SequenceCursor(t *testing.T) {
	s := New(1)
	s.StartCommand(0)
	if s.Sequence() != 1 {
		t.Errorf("Sequence after command 0 = %d, want 1", s.Sequence())
	}
	s.Advance(4)
	if s.Sequence() != 4 {
		t.Errorf("Sequence after Advance(4) = %d, want 4", s.Sequence())
	}
	// Next command resets the cursor.
	s.StartCommand(0)
	if s.Sequence() != 1 {
		t.Errorf("Sequence after next command = %d, want 1", s.Sequence())
	}
}

func TestSession_PrepareAssignsMonotonicIDs(t *testing.T) {
	s := New(1)
	first := s.Prepare("SELECT ?", stmtCtx(1))
	second := s.Prepare("SELECT ?, ?", stmtCtx(2))
	if first.ID != 1 || second.ID != 2 {
		t.Errorf("ids = %d, %d, want 1, 2", first.ID, second.ID)
	}

	s.CloseStatement(first.ID)
	third := s.Prepare("SELECT 1", stmtCtx(0))
	if third.ID != 3 {
		t.Errorf("id after close = %d, want 3 (ids are never reused)", third.ID)
	}
}

func TestSession_StatementLookup(t *testing.T) {
	s := New(1)
	stmt := s.Prepare("SELECT ?", stmtCtx(1))

	got, err := s.Statement(stmt.ID)
	if err != nil {
		t.Fatalf("Statement(%d): %v", stmt.ID, err)
	}
	if got.SQL != "SELECT ?" {
		t.Errorf("SQL = %q, want SELECT ?", got.SQL)
	}

	_, err = s.Statement(99)
	if err == nil {
		t.Fatal("lookup of unknown id should fail")
	}
	sqlErr := packet.ToSQLError(err)
	if sqlErr.Code != packet.ER_UNKNOWN_STMT_HANDLER {
		t.Errorf("error code = %d, want %d", sqlErr.Code, packet.ER_UNKNOWN_STMT_HANDLER)
	}
	if sqlErr.Class.FatalToConnection() {
		t.Error("unknown statement must not close the connection")
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := New(1)
	stmt := s.Prepare("SELECT 1", stmtCtx(0))
	s.CloseStatement(stmt.ID)
	s.CloseStatement(stmt.ID)
	s.CloseStatement(42)
	if s.StatementCount() != 0 {
		t.Errorf("StatementCount = %d, want 0", s.StatementCount())
	}
}

func TestSession_ResetClearsBoundTypes(t *testing.T) {
	s := New(1)
	stmt := s.Prepare("SELECT ?", stmtCtx(1))
	stmt.ParamTypes = []byte{packet.MYSQL_TYPE_LONGLONG, 0}

	if err := s.ResetStatement(stmt.ID); err != nil {
		t.Fatalf("ResetStatement: %v", err)
	}
	if stmt.ParamTypes != nil {
		t.Errorf("ParamTypes after reset = %x, want nil", stmt.ParamTypes)
	}

	if err := s.ResetStatement(99); err == nil {
		t.Error("reset of unknown id should fail")
	}
}
