// Package route maps logical tables to physical tables and datasources using
// sharding rules loaded from a YAML file.
package route

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/dbmesh/dbmesh/analyzer"
	"github.com/dbmesh/dbmesh/packet"
)

// Rule shards one logical table across physical tables. The shard index picks
// the actual table, and the datasource list is indexed by the same shard
// (modulo its length, so a single datasource can hold every shard).
type Rule struct {
	Table          string   `yaml:"table"`
	ShardingColumn string   `yaml:"sharding_column"`
	Algorithm      string   `yaml:"algorithm"` // mod or hash
	Datasources    []string `yaml:"datasources"`
	ActualTables   []string `yaml:"actual_tables"`
}

// Rules is the on-disk rule file.
type Rules struct {
	Rules             []Rule `yaml:"rules"`
	DefaultDatasource string `yaml:"default_datasource"`
}

// Target is a fully resolved destination for one statement.
type Target struct {
	Datasource string
	TableMap   map[string]string // logical name -> physical name
}

// Router resolves statements against a fixed rule set. Routers are immutable;
// reloading builds a new one.
type Router struct {
	rules     map[string]*Rule
	defaultDS string
}

// Load reads and parses a rule file.
func Load(path string) (*Router, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse builds a Router from YAML rule data.
func Parse(data []byte) (*Router, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if rules.DefaultDatasource == "" {
		return nil, fmt.Errorf("rules: default_datasource is required")
	}
	r := &Router{
		rules:     make(map[string]*Rule, len(rules.Rules)),
		defaultDS: rules.DefaultDatasource,
	}
	for i := range rules.Rules {
		rule := &rules.Rules[i]
		if rule.Table == "" || rule.ShardingColumn == "" {
			return nil, fmt.Errorf("rules: rule %d needs table and sharding_column", i)
		}
		if len(rule.ActualTables) == 0 {
			return nil, fmt.Errorf("rules: table %s has no actual_tables", rule.Table)
		}
		if len(rule.Datasources) == 0 {
			return nil, fmt.Errorf("rules: table %s has no datasources", rule.Table)
		}
		switch rule.Algorithm {
		case "", "mod", "hash":
		default:
			return nil, fmt.Errorf("rules: table %s has unknown algorithm %q", rule.Table, rule.Algorithm)
		}
		if _, dup := r.rules[rule.Table]; dup {
			return nil, fmt.Errorf("rules: duplicate rule for table %s", rule.Table)
		}
		r.rules[rule.Table] = rule
	}
	return r, nil
}

// DefaultDatasource is where unrouted statements go.
func (r *Router) DefaultDatasource() string {
	return r.defaultDS
}

// Sharded reports whether a rule exists for the logical table.
func (r *Router) Sharded(table string) bool {
	_, ok := r.rules[table]
	return ok
}

// Route resolves a statement context to a single target. args carries the
// execute-time parameter values, used when a sharding predicate is bound to a
// placeholder. Identity mappings are emitted for unsharded tables so the
// rewriter leaves them alone.
func (r *Router) Route(ctx *analyzer.StatementContext, args []string) (*Target, error) {
	target := &Target{TableMap: make(map[string]string, len(ctx.Tables))}

	// Unclassified statements (set operations, SHOW, EXPLAIN) are not shard
	// resolved; they run as written on the default datasource.
	if ctx.Kind == analyzer.KindDefault {
		for table := range ctx.Tables {
			target.TableMap[table] = table
		}
		target.Datasource = r.defaultDS
		return target, nil
	}

	for table, alias := range ctx.Tables {
		rule, ok := r.rules[table]
		if !ok {
			target.TableMap[table] = table
			continue
		}
		value, err := shardValue(rule, ctx, table, alias, args)
		if err != nil {
			return nil, err
		}
		shard, err := rule.shard(value)
		if err != nil {
			return nil, err
		}
		ds := rule.Datasources[shard%len(rule.Datasources)]
		if target.Datasource != "" && target.Datasource != ds {
			return nil, packet.NewSQLError(packet.ClassRouting, packet.ER_UNKNOWN_ERROR, "HY000",
				"statement spans datasources %s and %s", target.Datasource, ds)
		}
		target.Datasource = ds
		target.TableMap[table] = rule.ActualTables[shard]
	}

	if target.Datasource == "" {
		target.Datasource = r.defaultDS
	}
	return target, nil
}

// shardValue finds the sharding column's value among the statement's
// equality predicates.
func shardValue(rule *Rule, ctx *analyzer.StatementContext, table, alias string, args []string) (string, error) {
	for _, p := range ctx.Predicates {
		if p.Column != rule.ShardingColumn {
			continue
		}
		// A qualified column must name the table or its alias. An
		// unqualified one matches any table, which is how single-table
		// statements are written.
		if p.Table != "" && p.Table != table && p.Table != alias {
			continue
		}
		if p.ParamIndex < 0 {
			return p.Value, nil
		}
		if p.ParamIndex >= len(args) {
			return "", packet.NewSQLError(packet.ClassRouting, packet.ER_UNKNOWN_ERROR, "HY000",
				"sharding value for %s.%s bound to missing parameter %d", table, rule.ShardingColumn, p.ParamIndex)
		}
		return args[p.ParamIndex], nil
	}
	return "", packet.NewSQLError(packet.ClassRouting, packet.ER_UNKNOWN_ERROR, "HY000",
		"no sharding value for table %s: add an equality on %s", table, rule.ShardingColumn)
}

// shard computes the shard index for a sharding value.
func (rule *Rule) shard(value string) (int, error) {
	n := len(rule.ActualTables)
	switch rule.Algorithm {
	case "hash":
		h := fnv.New32a()
		h.Write([]byte(value))
		return int(h.Sum32() % uint32(n)), nil
	default: // mod
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, packet.NewSQLError(packet.ClassRouting, packet.ER_UNKNOWN_ERROR, "HY000",
				"sharding value %q for table %s is not an integer", value, rule.Table)
		}
		idx := v % int64(n)
		if idx < 0 {
			idx += int64(n)
		}
		return int(idx), nil
	}
}

// Holder publishes the active router to every connection and lets a reload
// swap it atomically.
type Holder struct {
	router atomic.Pointer[Router]
}

// NewHolder wraps an initial router.
func NewHolder(r *Router) *Holder {
	h := &Holder{}
	h.router.Store(r)
	return h
}

// Current returns the active router.
func (h *Holder) Current() *Router {
	return h.router.Load()
}

// Swap installs a new router.
func (h *Holder) Swap(r *Router) {
	h.router.Store(r)
}
