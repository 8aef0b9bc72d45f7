package server

import (
	"context"
	"time"

	"github.com/dbmesh/dbmesh/analyzer"
	"github.com/dbmesh/dbmesh/cache"
	"github.com/dbmesh/dbmesh/metrics"
)

// handleQuery covers COM_QUERY: analyze, route, rewrite, execute, encode.
func (c *clientConn) handleQuery(ctx context.Context, sql string) error {
	hint := cache.ParseHint(sql)

	stmtCtx, err := c.srv.analyzer.Analyze(hint.Query)
	if err != nil {
		return err
	}
	if stmtCtx.StatusOnly {
		if stmtCtx.UseSchema != "" {
			c.sess.Database = stmtCtx.UseSchema
		}
		return c.writeOK(0, 0)
	}

	router := c.srv.routes.Current()
	target, err := router.Route(stmtCtx, nil)
	if err != nil {
		return err
	}
	physical := analyzer.Rewrite(hint.Query, target.TableMap)

	if stmtCtx.Kind.IsWrite() {
		result, err := c.srv.backends.Exec(ctx, target.Datasource, physical, nil)
		if err != nil {
			return err
		}
		metrics.BackendQueries.WithLabelValues(target.Datasource, result.Backend).Inc()
		return c.writeOK(result.AffectedRows, result.LastInsertID)
	}

	key := cache.Key(target.Datasource, physical)
	if hint.Cacheable() && c.srv.cache != nil {
		if cached, ok := c.srv.cache.Get(key); ok {
			metrics.CacheHits.WithLabelValues(target.Datasource).Inc()
			// Cached responses were framed after a sequence-zero
			// command, which is also where this command's cursor is.
			return c.writeRaw(cached, c.sess.Sequence()+uint8(countPackets(cached)))
		}
		metrics.CacheMisses.WithLabelValues(target.Datasource).Inc()
	}

	// Only plain reads are eligible for a replica; unclassified statements
	// may have side effects and stay on the primary.
	useReplica := stmtCtx.Kind == analyzer.KindSelect
	result, err := c.srv.backends.Query(ctx, target.Datasource, useReplica, physical, nil)
	if err != nil {
		return err
	}
	metrics.BackendQueries.WithLabelValues(target.Datasource, result.Backend).Inc()

	enc := newResponseEncoder(c.sess.Sequence())
	enc.encodeResultSets(result.Sets, c.status, false)

	if hint.Cacheable() && c.srv.cache != nil {
		c.srv.cache.Set(key, enc.buf, time.Duration(hint.TTL)*time.Second)
	}
	return c.writeRaw(enc.buf, enc.seq)
}

// countPackets counts frames in an encoded response so the cursor can be
// advanced past a cached write.
func countPackets(data []byte) int {
	n := 0
	for len(data) >= 4 {
		length := int(data[0]) | int(data[1])<<8 | int(data[2])<<16
		data = data[4+length:]
		n++
	}
	return n
}
