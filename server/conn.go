package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/dbmesh/dbmesh/metrics"
	"github.com/dbmesh/dbmesh/packet"
	"github.com/dbmesh/dbmesh/session"
)

// errQuit signals a clean COM_QUIT shutdown, no response is sent.
var errQuit = errors.New("client quit")

type clientConn struct {
	conn   net.Conn
	srv    *Server
	sess   *session.Session
	log    *zap.Logger
	salt   []byte
	status uint16
	ctx    context.Context // per-connection; cancelled when the command loop exits
}

// handshake runs the greeting, response, verdict exchange. The greeting is
// sequence 0, the client answers with 1, the verdict goes out as 2.
func (c *clientConn) handshake() error {
	salt, err := packet.GenerateSalt()
	if err != nil {
		return err
	}
	c.salt = salt
	c.status = packet.SERVER_STATUS_AUTOCOMMIT

	greeting := &packet.Handshake{
		ProtocolVersion: 10,
		ServerVersion:   c.srv.cfg.ServerVersion,
		ConnectionID:    c.sess.ConnID,
		Salt:            salt,
		Capabilities:    packet.DEFAULT_CAPABILITY,
		Charset:         0x21,
		StatusFlags:     c.status,
		AuthPluginName:  "mysql_native_password",
	}
	c.sess.Advance(0)
	if err := c.writePayload(greeting.Marshal()); err != nil {
		return err
	}

	payload, seq, err := packet.ReadPacket(c.conn)
	if err != nil {
		return err
	}
	c.sess.StartCommand(seq)

	resp, err := packet.UnmarshalHandshakeResponse(payload)
	if err != nil {
		c.writeErr(err)
		return err
	}
	c.sess.Capabilities = greeting.Capabilities & resp.Capabilities
	c.sess.Charset = resp.Charset

	if resp.Username != c.srv.cfg.User ||
		!packet.CheckScramble(c.salt, []byte(c.srv.cfg.Password), resp.AuthResponse) {
		authErr := packet.NewSQLError(packet.ClassAuth, packet.ER_ACCESS_DENIED_ERROR, "28000",
			"Access denied for user '%s'", resp.Username)
		c.writeErr(authErr)
		return authErr
	}

	c.sess.User = resp.Username
	c.sess.Database = resp.Database
	c.sess.Authorized = true
	return c.writeOK(0, 0)
}

// run reads command packets until the client goes away or a fatal error is
// hit. Each command resets the sequence cursor. Backend work runs under a
// per-connection context so nothing outlives the connection.
func (c *clientConn) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	for {
		payload, seq, err := packet.ReadPacket(c.conn)
		if err != nil {
			if err != io.EOF {
				c.log.Warn("read failed", zap.Error(err))
			}
			return
		}
		c.sess.StartCommand(seq)

		cmd, err := packet.ParseCommand(payload)
		if err == nil {
			err = c.dispatch(ctx, cmd)
		}
		if err != nil {
			if err == errQuit {
				return
			}
			sqlErr := packet.ToSQLError(err)
			c.log.Warn("command failed",
				zap.String("class", sqlErr.Class.String()),
				zap.Uint16("code", sqlErr.Code),
				zap.Error(err))
			c.writeErr(sqlErr)
			if sqlErr.Class.FatalToConnection() {
				return
			}
		}
	}
}

func (c *clientConn) dispatch(ctx context.Context, cmd packet.Command) error {
	start := time.Now()
	name := packet.CommandName(cmd.CommandType())
	err := c.dispatchCommand(ctx, cmd)

	status := "ok"
	if err != nil && err != errQuit {
		status = "error"
	}
	metrics.CommandTotal.WithLabelValues(name, status).Inc()
	metrics.CommandLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

func (c *clientConn) dispatchCommand(ctx context.Context, cmd packet.Command) error {
	switch cmd := cmd.(type) {
	case packet.Quit:
		// Final OK before teardown. The client may already be gone.
		if err := c.writeOK(0, 0); err != nil {
			c.log.Debug("quit acknowledgement write failed", zap.Error(err))
		}
		return errQuit
	case packet.Ping:
		return c.writeOK(0, 0)
	case packet.InitDB:
		c.sess.Database = cmd.Schema
		return c.writeOK(0, 0)
	case packet.Query:
		return c.handleQuery(ctx, cmd.SQL)
	case packet.StmtPrepare:
		return c.handlePrepare(cmd.SQL)
	case packet.StmtExecute:
		return c.handleExecute(ctx, &cmd)
	case packet.StmtClose:
		// No response, even for unknown ids.
		c.sess.CloseStatement(cmd.StatementID)
		return nil
	case packet.StmtReset:
		if err := c.sess.ResetStatement(cmd.StatementID); err != nil {
			return err
		}
		return c.writeOK(0, 0)
	default:
		return packet.NewSQLError(packet.ClassSession, packet.ER_UNKNOWN_COM_ERROR, "08S01",
			"Unknown command 0x%02x", cmd.CommandType())
	}
}

// writePayload frames and sends one payload at the session's cursor.
func (c *clientConn) writePayload(payload []byte) error {
	next, err := packet.WritePacket(c.conn, payload, c.sess.Sequence())
	if err != nil {
		return err
	}
	c.sess.Advance(next)
	return nil
}

// writeRaw sends pre-framed packets, advancing the cursor past them.
func (c *clientConn) writeRaw(data []byte, nextSeq uint8) error {
	if _, err := c.conn.Write(data); err != nil {
		return err
	}
	c.sess.Advance(nextSeq)
	return nil
}

func (c *clientConn) writeOK(affectedRows, lastInsertID uint64) error {
	ok := &packet.OK{
		AffectedRows: affectedRows,
		LastInsertID: lastInsertID,
		StatusFlags:  c.status,
	}
	return c.writePayload(ok.Marshal())
}

func (c *clientConn) writeErr(err error) {
	sqlErr := packet.ToSQLError(err)
	e := &packet.ERR{
		Code:    sqlErr.Code,
		State:   sqlErr.State,
		Message: sqlErr.Message,
	}
	if writeErr := c.writePayload(e.Marshal()); writeErr != nil {
		c.log.Warn("error response write failed", zap.Error(writeErr))
	}
}
