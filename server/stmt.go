package server

import (
	"context"

	"github.com/dbmesh/dbmesh/analyzer"
	"github.com/dbmesh/dbmesh/cache"
	"github.com/dbmesh/dbmesh/metrics"
	"github.com/dbmesh/dbmesh/packet"
)

// handlePrepare registers the statement and acknowledges it. Analysis runs
// once here; executes only re-resolve the shard from their arguments.
func (c *clientConn) handlePrepare(sql string) error {
	hint := cache.ParseHint(sql)

	stmtCtx, err := c.srv.analyzer.Analyze(hint.Query)
	if err != nil {
		return err
	}
	stmt := c.sess.Prepare(hint.Query, stmtCtx)

	enc := newResponseEncoder(c.sess.Sequence())
	enc.encodePrepareAck(stmt.ID, stmt.ParamCount, c.status)
	return c.writeRaw(enc.buf, enc.seq)
}

// handleExecute covers COM_STMT_EXECUTE. Parameter types arrive on the first
// execute and are reused afterwards; the placeholders stay in the SQL, with
// the arguments passed through to the backend driver.
func (c *clientConn) handleExecute(ctx context.Context, cmd *packet.StmtExecute) error {
	stmt, err := c.sess.Statement(cmd.StatementID)
	if err != nil {
		return err
	}
	if err := cmd.DecodeExecuteParams(stmt.ParamCount); err != nil {
		return err
	}
	if cmd.NewParamsBound {
		stmt.ParamTypes = append([]byte(nil), cmd.ParamTypes...)
	} else {
		cmd.ParamTypes = stmt.ParamTypes
	}

	args, err := cmd.Args()
	if err != nil {
		return err
	}

	if stmt.Context.StatusOnly {
		if stmt.Context.UseSchema != "" {
			c.sess.Database = stmt.Context.UseSchema
		}
		return c.writeOK(0, 0)
	}

	argValues := make([]string, len(args))
	for i, a := range args {
		argValues[i] = formatArg(a)
	}
	router := c.srv.routes.Current()
	target, err := router.Route(stmt.Context, argValues)
	if err != nil {
		return err
	}
	physical := analyzer.Rewrite(stmt.SQL, target.TableMap)

	if stmt.Context.Kind.IsWrite() {
		result, err := c.srv.backends.Exec(ctx, target.Datasource, physical, args)
		if err != nil {
			return err
		}
		metrics.BackendQueries.WithLabelValues(target.Datasource, result.Backend).Inc()
		return c.writeOK(result.AffectedRows, result.LastInsertID)
	}

	useReplica := stmt.Context.Kind == analyzer.KindSelect
	result, err := c.srv.backends.Query(ctx, target.Datasource, useReplica, physical, args)
	if err != nil {
		return err
	}
	metrics.BackendQueries.WithLabelValues(target.Datasource, result.Backend).Inc()

	enc := newResponseEncoder(c.sess.Sequence())
	enc.encodeResultSets(result.Sets, c.status, true)
	return c.writeRaw(enc.buf, enc.seq)
}
