package backend

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// Config bounds backend connection usage.
type Config struct {
	CheckoutTimeout time.Duration
	QueryTimeout    time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type source struct {
	ds       *Datasource
	primary  *sql.DB
	replicas *ReplicaSet
}

// Manager owns one connection pool per datasource plus pools for their read
// replicas.
type Manager struct {
	log     *zap.Logger
	cfg     Config
	sources map[string]*source
}

// NewManager returns an empty manager.
func NewManager(log *zap.Logger, cfg Config) *Manager {
	return &Manager{
		log:     log,
		cfg:     cfg,
		sources: make(map[string]*source),
	}
}

// Add opens pools for a datasource and its replicas. sql.Open does not dial,
// so a dead backend surfaces on first use, not here.
func (m *Manager) Add(ds *Datasource) error {
	primary, err := m.open(ds)
	if err != nil {
		return err
	}
	s := &source{ds: ds, primary: primary}

	replicas := make([]*Replica, 0, len(ds.Replicas))
	for _, r := range ds.Replicas {
		db, err := m.open(r)
		if err != nil {
			primary.Close()
			for _, opened := range replicas {
				opened.DB.Close()
			}
			return err
		}
		replicas = append(replicas, &Replica{Name: r.Name, Addr: r.Addr, DB: db})
	}
	if len(replicas) > 0 {
		s.replicas = NewReplicaSet(m.log, replicas)
	}

	m.sources[ds.Name] = s
	m.log.Info("datasource registered",
		zap.String("datasource", ds.Name),
		zap.String("driver", ds.Driver),
		zap.Int("replicas", len(replicas)))
	return nil
}

func (m *Manager) open(ds *Datasource) (*sql.DB, error) {
	db, err := sql.Open(ds.Driver, ds.DSN)
	if err != nil {
		return nil, err
	}
	if m.cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(m.cfg.MaxOpenConns)
	}
	if m.cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(m.cfg.MaxIdleConns)
	}
	if m.cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(m.cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Has reports whether a datasource is registered.
func (m *Manager) Has(name string) bool {
	_, ok := m.sources[name]
	return ok
}

// Close shuts every pool down.
func (m *Manager) Close() {
	for _, s := range m.sources {
		s.primary.Close()
		if s.replicas != nil {
			for _, r := range s.replicas.replicas {
				r.DB.Close()
			}
		}
	}
}

// StartHealthChecks runs replica health checking for every datasource until
// the context is cancelled.
func (m *Manager) StartHealthChecks(ctx context.Context, interval time.Duration) {
	for _, s := range m.sources {
		if s.replicas != nil {
			go s.replicas.StartHealthChecks(ctx, interval)
		}
	}
}

func (m *Manager) pick(name string, useReplica bool) (*sql.DB, string, error) {
	s, ok := m.sources[name]
	if !ok {
		return nil, "", errUnknownDatasource(name)
	}
	if useReplica && s.replicas != nil {
		if r := s.replicas.Next(); r != nil {
			return r.DB, r.Name, nil
		}
	}
	return s.primary, name, nil
}

// Query runs a statement that produces result sets. Reads may be served by a
// replica; everything else goes to the primary.
func (m *Manager) Query(ctx context.Context, name string, useReplica bool, query string, args []interface{}) (*Result, error) {
	db, picked, err := m.pick(name, useReplica)
	if err != nil {
		return nil, err
	}

	conn, err := m.checkout(ctx, db)
	if err != nil {
		return nil, convertError(err)
	}
	defer conn.Close()

	queryCtx := ctx
	if m.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, m.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := conn.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, convertError(err)
	}
	defer rows.Close()

	result := &Result{Backend: picked, HasRows: true}
	for {
		set, err := readResultSet(rows)
		if err != nil {
			return nil, convertError(err)
		}
		result.Sets = append(result.Sets, set)
		if !rows.NextResultSet() {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, convertError(err)
	}
	return result, nil
}

// Exec runs a statement without result sets on the primary.
func (m *Manager) Exec(ctx context.Context, name, query string, args []interface{}) (*Result, error) {
	db, picked, err := m.pick(name, false)
	if err != nil {
		return nil, err
	}

	conn, err := m.checkout(ctx, db)
	if err != nil {
		return nil, convertError(err)
	}
	defer conn.Close()

	queryCtx := ctx
	if m.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, m.cfg.QueryTimeout)
		defer cancel()
	}

	res, err := conn.ExecContext(queryCtx, query, args...)
	if err != nil {
		return nil, convertError(err)
	}
	affected, _ := res.RowsAffected()
	lastID, _ := res.LastInsertId()
	return &Result{
		Backend:      picked,
		AffectedRows: uint64(affected),
		LastInsertID: uint64(lastID),
	}, nil
}

// checkout takes a connection from the pool, bounded by the checkout timeout
// so a saturated pool fails fast instead of queueing forever.
func (m *Manager) checkout(ctx context.Context, db *sql.DB) (*sql.Conn, error) {
	if m.cfg.CheckoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.CheckoutTimeout)
		defer cancel()
	}
	return db.Conn(ctx)
}

func readResultSet(rows *sql.Rows) (*ResultSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	set := &ResultSet{Columns: columnDefinitions(types)}

	values := make([]sql.RawBytes, len(types))
	ptrs := make([]interface{}, len(types))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([][]byte, len(values))
		for i, v := range values {
			if v == nil {
				continue // NULL
			}
			row[i] = append([]byte(nil), v...)
		}
		set.Rows = append(set.Rows, row)
	}
	return set, nil
}
