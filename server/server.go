// Package server terminates client connections: it speaks the wire protocol,
// runs handshake and authentication, and drives the command loop that
// analyzes, routes and executes statements.
package server

import (
	"context"
	"net"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dbmesh/dbmesh/analyzer"
	"github.com/dbmesh/dbmesh/backend"
	"github.com/dbmesh/dbmesh/cache"
	"github.com/dbmesh/dbmesh/config"
	"github.com/dbmesh/dbmesh/metrics"
	"github.com/dbmesh/dbmesh/route"
	"github.com/dbmesh/dbmesh/session"
)

// Server accepts client connections and serves each on its own goroutine.
type Server struct {
	cfg      config.ServerConfig
	log      *zap.Logger
	analyzer *analyzer.Analyzer
	routes   *route.Holder
	backends *backend.Manager
	cache    *cache.Cache

	connID   atomic.Uint32
	active   atomic.Int32
	listener net.Listener
}

// New wires a server together.
func New(cfg config.ServerConfig, log *zap.Logger, routes *route.Holder, backends *backend.Manager, c *cache.Cache) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		analyzer: analyzer.New(),
		routes:   routes,
		backends: backends,
		cache:    c,
	}
	s.connID.Store(1000)
	return s
}

// ListenAndServe accepts connections until the context is cancelled or the
// listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	s.listener = listener
	s.log.Info("listening", zap.String("addr", s.cfg.Listen))

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}
		if s.cfg.MaxConnections > 0 && int(s.active.Load()) >= s.cfg.MaxConnections {
			s.log.Warn("connection limit reached", zap.Int("limit", s.cfg.MaxConnections))
			conn.Close()
			continue
		}
		go s.handle(ctx, conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	id := s.connID.Add(1)
	s.active.Add(1)
	metrics.ActiveConnections.Inc()
	defer func() {
		s.active.Add(-1)
		metrics.ActiveConnections.Dec()
	}()

	c := &clientConn{
		conn: conn,
		srv:  s,
		sess: session.New(id),
		log:  s.log.With(zap.Uint32("conn", id), zap.String("remote", conn.RemoteAddr().String())),
	}

	if err := c.handshake(); err != nil {
		c.log.Warn("handshake failed", zap.Error(err))
		return
	}
	c.run(ctx)
}
