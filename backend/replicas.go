package backend

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Replica is one read replica handle.
type Replica struct {
	Name string
	Addr string
	DB   *sql.DB
}

// ReplicaSet hands out healthy read replicas round-robin and falls back to
// nothing when all are down, in which case the caller uses the primary.
type ReplicaSet struct {
	log      *zap.Logger
	mu       sync.RWMutex
	replicas []*Replica
	healthy  map[string]bool
	current  int
}

// NewReplicaSet wraps a list of replica handles. All start out healthy.
func NewReplicaSet(log *zap.Logger, replicas []*Replica) *ReplicaSet {
	s := &ReplicaSet{
		log:      log,
		replicas: replicas,
		healthy:  make(map[string]bool, len(replicas)),
	}
	for _, r := range replicas {
		s.healthy[r.Name] = true
	}
	return s
}

// Next returns the next healthy replica, or nil when none is available.
func (s *ReplicaSet) Next() *Replica {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempts := 0; attempts < len(s.replicas); attempts++ {
		r := s.replicas[s.current]
		s.current = (s.current + 1) % len(s.replicas)
		if s.healthy[r.Name] {
			return r
		}
	}
	return nil
}

// MarkUnhealthy takes a replica out of rotation.
func (s *ReplicaSet) MarkUnhealthy(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.healthy[name] {
		s.healthy[name] = false
		s.log.Warn("replica marked unhealthy", zap.String("replica", name))
	}
}

// MarkHealthy puts a replica back into rotation.
func (s *ReplicaSet) MarkHealthy(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.healthy[name]; ok && !s.healthy[name] {
		s.healthy[name] = true
		s.log.Info("replica marked healthy", zap.String("replica", name))
	}
}

// HealthyCount reports how many replicas are in rotation.
func (s *ReplicaSet) HealthyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, h := range s.healthy {
		if h {
			n++
		}
	}
	return n
}

// StartHealthChecks pings every replica on the given interval until the
// context is cancelled. The first check runs immediately.
func (s *ReplicaSet) StartHealthChecks(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.checkAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

func (s *ReplicaSet) checkAll(ctx context.Context) {
	s.mu.RLock()
	replicas := make([]*Replica, len(s.replicas))
	copy(replicas, s.replicas)
	s.mu.RUnlock()

	for _, r := range replicas {
		go s.check(ctx, r)
	}
}

func (s *ReplicaSet) check(ctx context.Context, r *Replica) {
	pingCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := r.DB.PingContext(pingCtx); err != nil {
		s.MarkUnhealthy(r.Name)
		return
	}
	s.MarkHealthy(r.Name)
}
