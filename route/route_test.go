package route

import (
	"testing"

	"github.com/dbmesh/dbmesh/analyzer"
	"github.com/dbmesh/dbmesh/packet"
)

const testRules = `
default_datasource: ds0
rules:
  - table: t_order
    sharding_column: user_id
    algorithm: mod
    datasources: [ds0, ds1]
    actual_tables: [t_order_0, t_order_1]
  - table: t_log
    sharding_column: trace_id
    algorithm: hash
    datasources: [ds0]
    actual_tables: [t_log_0, t_log_1, t_log_2]
`

func testRouter(t *testing.T) *Router {
	t.Helper()
	r, err := Parse([]byte(testRules))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return r
}

func selectCtx(table, column, value string, paramIndex int) *analyzer.StatementContext {
	return &analyzer.StatementContext{
		Kind:   analyzer.KindSelect,
		Tables: map[string]string{table: ""},
		Predicates: []analyzer.Predicate{
			{Column: column, Value: value, ParamIndex: paramIndex},
		},
	}
}

func TestRoute_ModSharding(t *testing.T) {
	r := testRouter(t)
	tests := []struct {
		value      string
		wantDS     string
		wantActual string
	}{
		{"0", "ds0", "t_order_0"},
		{"1", "ds1", "t_order_1"},
		{"2", "ds0", "t_order_0"},
		{"7", "ds1", "t_order_1"},
		{"-3", "ds1", "t_order_1"},
	}
	for _, tc := range tests {
		target, err := r.Route(selectCtx("t_order", "user_id", tc.value, -1), nil)
		if err != nil {
			t.Fatalf("Route(user_id=%s): %v", tc.value, err)
		}
		if target.Datasource != tc.wantDS {
			t.Errorf("Route(user_id=%s).Datasource = %s, want %s", tc.value, target.Datasource, tc.wantDS)
		}
		if target.TableMap["t_order"] != tc.wantActual {
			t.Errorf("Route(user_id=%s) table = %s, want %s", tc.value, target.TableMap["t_order"], tc.wantActual)
		}
	}
}

func TestRoute_Deterministic(t *testing.T) {
	r := testRouter(t)
	ctx := selectCtx("t_log", "trace_id", "abc-123", -1)
	first, err := r.Route(ctx, nil)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.Route(ctx, nil)
		if err != nil {
			t.Fatalf("Route: %v", err)
		}
		if again.TableMap["t_log"] != first.TableMap["t_log"] {
			t.Fatalf("hash routing not deterministic: %s vs %s", again.TableMap["t_log"], first.TableMap["t_log"])
		}
	}
}

func TestRoute_PlaceholderValue(t *testing.T) {
	r := testRouter(t)
	target, err := r.Route(selectCtx("t_order", "user_id", "", 0), []string{"3"})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if target.TableMap["t_order"] != "t_order_1" {
		t.Errorf("table = %s, want t_order_1", target.TableMap["t_order"])
	}
}

func TestRoute_MissingShardingValue(t *testing.T) {
	r := testRouter(t)
	ctx := &analyzer.StatementContext{
		Kind:   analyzer.KindSelect,
		Tables: map[string]string{"t_order": ""},
	}
	_, err := r.Route(ctx, nil)
	if err == nil {
		t.Fatal("routing without a sharding value should fail")
	}
	if packet.ToSQLError(err).Class != packet.ClassRouting {
		t.Errorf("error class = %v, want routing", packet.ToSQLError(err).Class)
	}
}

func TestRoute_UnshardedTable(t *testing.T) {
	r := testRouter(t)
	ctx := &analyzer.StatementContext{
		Kind:   analyzer.KindSelect,
		Tables: map[string]string{"t_user": ""},
	}
	target, err := r.Route(ctx, nil)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if target.Datasource != "ds0" {
		t.Errorf("Datasource = %s, want default ds0", target.Datasource)
	}
	if target.TableMap["t_user"] != "t_user" {
		t.Errorf("TableMap = %v, want identity for unsharded table", target.TableMap)
	}
}

func TestRoute_DefaultKindIsUnrouted(t *testing.T) {
	r := testRouter(t)
	// A set operation over a sharded table carries no usable predicates;
	// it must still execute, as written, on the default datasource.
	ctx := &analyzer.StatementContext{
		Kind:   analyzer.KindDefault,
		Tables: map[string]string{"t_order": ""},
	}
	target, err := r.Route(ctx, nil)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if target.Datasource != "ds0" {
		t.Errorf("Datasource = %s, want default ds0", target.Datasource)
	}
	if target.TableMap["t_order"] != "t_order" {
		t.Errorf("TableMap = %v, want identity mapping", target.TableMap)
	}
}

func TestRoute_QualifiedPredicate(t *testing.T) {
	r := testRouter(t)
	ctx := &analyzer.StatementContext{
		Kind:   analyzer.KindSelect,
		Tables: map[string]string{"t_order": "o", "t_user": "u"},
		Predicates: []analyzer.Predicate{
			{Table: "o", Column: "user_id", Value: "2", ParamIndex: -1},
		},
	}
	target, err := r.Route(ctx, nil)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if target.TableMap["t_order"] != "t_order_0" {
		t.Errorf("t_order mapped to %s, want t_order_0", target.TableMap["t_order"])
	}
	if target.TableMap["t_user"] != "t_user" {
		t.Errorf("t_user mapped to %s, want identity", target.TableMap["t_user"])
	}
}

func TestRoute_NonIntegerModValue(t *testing.T) {
	r := testRouter(t)
	_, err := r.Route(selectCtx("t_order", "user_id", "abc", -1), nil)
	if err == nil {
		t.Fatal("mod sharding on a non-integer value should fail")
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing default", "rules: []"},
		{"missing actual tables", `
default_datasource: ds0
rules:
  - table: t
    sharding_column: id
    datasources: [ds0]
`},
		{"unknown algorithm", `
default_datasource: ds0
rules:
  - table: t
    sharding_column: id
    algorithm: range
    datasources: [ds0]
    actual_tables: [t_0]
`},
		{"duplicate table", `
default_datasource: ds0
rules:
  - table: t
    sharding_column: id
    datasources: [ds0]
    actual_tables: [t_0]
  - table: t
    sharding_column: id
    datasources: [ds0]
    actual_tables: [t_1]
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.yaml)); err == nil {
				t.Errorf("Parse should reject %s", tc.name)
			}
		})
	}
}

func TestHolder_Swap(t *testing.T) {
	r1 := testRouter(t)
	h := NewHolder(r1)
	if h.Current() != r1 {
		t.Fatal("Current should return the initial router")
	}
	r2, err := Parse([]byte("default_datasource: ds9"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	h.Swap(r2)
	if h.Current().DefaultDatasource() != "ds9" {
		t.Errorf("after Swap, DefaultDatasource = %s, want ds9", h.Current().DefaultDatasource())
	}
}
