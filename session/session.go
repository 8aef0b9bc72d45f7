// Package session holds per-connection state: identity, the active schema,
// the response sequence cursor and the prepared statement registry.
package session

import (
	"github.com/dbmesh/dbmesh/analyzer"
	"github.com/dbmesh/dbmesh/packet"
)

// PreparedStatement is one statement in a session's registry. ParamTypes is
// empty until the first execute binds them; later executes without the
// new-params-bound flag reuse the stored types.
type PreparedStatement struct {
	ID         uint32
	SQL        string
	Context    *analyzer.StatementContext
	ParamCount int
	ParamTypes []byte
}

// Session is owned by a single connection goroutine, so none of its state is
// locked.
type Session struct {
	ConnID       uint32
	User         string
	Database     string
	Authorized   bool
	Capabilities uint32
	Charset      uint8

	seq        uint8
	stmts      map[uint32]*PreparedStatement
	nextStmtID uint32
}

// New returns a session for a freshly accepted connection.
func New(connID uint32) *Session {
	return &Session{
		ConnID: connID,
		stmts:  make(map[uint32]*PreparedStatement),
	}
}

// StartCommand positions the response cursor after the command packet, whose
// sequence id the client reset to zero.
func (s *Session) StartCommand(commandSeq uint8) {
	s.seq = commandSeq + 1
}

// Sequence returns the sequence id for the next response packet.
func (s *Session) Sequence() uint8 {
	return s.seq
}

// Advance records the next sequence id returned by a packet write.
func (s *Session) Advance(next uint8) {
	s.seq = next
}

// Prepare registers a statement and assigns it the next id. Ids are monotonic
// and never reused, even after a close.
func (s *Session) Prepare(sql string, ctx *analyzer.StatementContext) *PreparedStatement {
	s.nextStmtID++
	stmt := &PreparedStatement{
		ID:         s.nextStmtID,
		SQL:        sql,
		Context:    ctx,
		ParamCount: ctx.ParamCount,
	}
	s.stmts[stmt.ID] = stmt
	return stmt
}

// Statement looks up a prepared statement by id.
func (s *Session) Statement(id uint32) (*PreparedStatement, error) {
	stmt, ok := s.stmts[id]
	if !ok {
		return nil, packet.NewSQLError(packet.ClassSession, packet.ER_UNKNOWN_STMT_HANDLER, "HY000",
			"unknown prepared statement handler (%d)", id)
	}
	return stmt, nil
}

// CloseStatement drops a statement. Closing an unknown id is a no-op, the
// client gets no response either way.
func (s *Session) CloseStatement(id uint32) {
	delete(s.stmts, id)
}

// ResetStatement clears the bound parameter types so the next execute must
// send them again.
func (s *Session) ResetStatement(id uint32) error {
	stmt, err := s.Statement(id)
	if err != nil {
		return err
	}
	stmt.ParamTypes = nil
	return nil
}

// StatementCount reports how many statements are registered.
func (s *Session) StatementCount() int {
	return len(s.stmts)
}
