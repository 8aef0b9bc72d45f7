// Package analyzer parses SQL into a statement context: the statement kind,
// the tables it touches, and the equality predicates the router can use to
// pick a shard.
package analyzer

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	driver "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/dbmesh/dbmesh/packet"
)

// StatementKind classifies a statement for routing and result handling.
type StatementKind int

const (
	KindDefault StatementKind = iota
	KindSelect
	KindInsert
	KindUpdate
	KindDelete
)

func (k StatementKind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return "default"
	}
}

// IsWrite reports whether the statement is answered with an affected-rows OK.
// Everything else, including unclassified statements such as set operations,
// SHOW and EXPLAIN, may produce result sets and is executed through the
// row-returning path.
func (k StatementKind) IsWrite() bool {
	return k == KindInsert || k == KindUpdate || k == KindDelete
}

// Predicate is one column = value term usable for shard selection. Value holds
// the literal text; ParamIndex is the placeholder ordinal when the value is a
// ? marker, -1 otherwise.
type Predicate struct {
	Table      string
	Column     string
	Value      string
	ParamIndex int
}

// StatementContext is the analysis result for a single statement.
type StatementContext struct {
	SQL        string
	Kind       StatementKind
	Tables     map[string]string // table name -> alias, "" when unaliased
	Predicates []Predicate
	ParamCount int
	StatusOnly bool   // answered with a bare OK, never sent to a backend
	UseSchema  string // set for USE, the schema the session switches to
}

// Analyzer turns SQL text into statement contexts. Parser instances are not
// safe for concurrent use, so they are pooled.
type Analyzer struct {
	pool sync.Pool
}

// New returns an Analyzer.
func New() *Analyzer {
	return &Analyzer{
		pool: sync.Pool{
			New: func() interface{} { return parser.New() },
		},
	}
}

// Analyze parses sql and extracts the statement context. Multi-statement
// input is rejected.
func (a *Analyzer) Analyze(sql string) (*StatementContext, error) {
	p := a.pool.Get().(*parser.Parser)
	defer a.pool.Put(p)

	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, packet.NewSQLError(packet.ClassParse, packet.ER_PARSE_ERROR, "42000", "%v", err)
	}
	if len(stmts) == 0 {
		return nil, packet.NewSQLError(packet.ClassParse, packet.ER_PARSE_ERROR, "42000", "empty statement")
	}
	if len(stmts) > 1 {
		return nil, packet.NewSQLError(packet.ClassParse, packet.ER_PARSE_ERROR, "42000", "multi-statement input is not supported")
	}
	return buildContext(sql, stmts[0]), nil
}

func buildContext(sql string, stmt ast.StmtNode) *StatementContext {
	ctx := &StatementContext{
		SQL:    sql,
		Kind:   KindDefault,
		Tables: make(map[string]string),
	}

	switch s := stmt.(type) {
	case *ast.SetStmt:
		ctx.StatusOnly = true
		return ctx
	case *ast.UseStmt:
		ctx.StatusOnly = true
		ctx.UseSchema = s.DBName
		return ctx
	case *ast.SavepointStmt:
		ctx.StatusOnly = true
		return ctx
	case *ast.BeginStmt:
		ctx.StatusOnly = true
		return ctx
	case *ast.CommitStmt:
		ctx.StatusOnly = true
		return ctx
	case *ast.RollbackStmt:
		// ROLLBACK TO SAVEPOINT is session-local, a plain ROLLBACK
		// still reaches the backend.
		if s.SavepointName != "" {
			ctx.StatusOnly = true
			return ctx
		}
	}

	v := &visitor{ctx: ctx}
	stmt.Accept(v)

	var where ast.ExprNode
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		ctx.Kind = KindSelect
		where = s.Where
	case *ast.UpdateStmt:
		ctx.Kind = KindUpdate
		where = s.Where
	case *ast.DeleteStmt:
		ctx.Kind = KindDelete
		where = s.Where
	case *ast.InsertStmt:
		ctx.Kind = KindInsert
		v.insertPredicates(s)
	}
	if where != nil {
		v.wherePredicates(where)
	}
	v.finish()
	return ctx
}

// visitor walks the AST collecting tables and placeholder markers. Predicates
// are extracted separately from the WHERE clause so that equality expressions
// in projections do not leak into routing.
type visitor struct {
	ctx     *StatementContext
	markers []*driver.ParamMarkerExpr
	pending []pendingPredicate
}

type pendingPredicate struct {
	pred   Predicate
	marker *driver.ParamMarkerExpr
}

func (v *visitor) Enter(n ast.Node) (ast.Node, bool) {
	switch node := n.(type) {
	case *ast.TableSource:
		if tn, ok := node.Source.(*ast.TableName); ok {
			v.ctx.Tables[tn.Name.O] = node.AsName.O
		}
	case *ast.TableName:
		if _, ok := v.ctx.Tables[node.Name.O]; !ok {
			v.ctx.Tables[node.Name.O] = ""
		}
	case *driver.ParamMarkerExpr:
		v.markers = append(v.markers, node)
	}
	return n, false
}

func (v *visitor) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

// wherePredicates collects column = value terms from the AND-connected top
// level of a WHERE clause.
func (v *visitor) wherePredicates(expr ast.ExprNode) {
	switch e := expr.(type) {
	case *ast.BinaryOperationExpr:
		switch e.Op {
		case opcode.LogicAnd:
			v.wherePredicates(e.L)
			v.wherePredicates(e.R)
		case opcode.EQ:
			v.equality(e.L, e.R)
		}
	case *ast.ParenthesesExpr:
		v.wherePredicates(e.Expr)
	}
}

func (v *visitor) equality(l, r ast.ExprNode) {
	col, ok := l.(*ast.ColumnNameExpr)
	if !ok {
		if col, ok = r.(*ast.ColumnNameExpr); !ok {
			return
		}
		l, r = r, l
	}
	pred := Predicate{
		Table:      col.Name.Table.O,
		Column:     col.Name.Name.O,
		ParamIndex: -1,
	}
	switch val := r.(type) {
	case *driver.ParamMarkerExpr:
		v.pending = append(v.pending, pendingPredicate{pred: pred, marker: val})
	case ast.ValueExpr:
		pred.Value = formatValue(val.GetValue())
		v.pending = append(v.pending, pendingPredicate{pred: pred})
	}
}

// insertPredicates pairs the column list with the first VALUES row, so an
// INSERT routes on its sharding column like a WHERE equality would.
func (v *visitor) insertPredicates(stmt *ast.InsertStmt) {
	if len(stmt.Lists) == 0 || len(stmt.Columns) == 0 {
		return
	}
	row := stmt.Lists[0]
	for i, col := range stmt.Columns {
		if i >= len(row) {
			break
		}
		pred := Predicate{
			Table:      col.Table.O,
			Column:     col.Name.O,
			ParamIndex: -1,
		}
		switch val := row[i].(type) {
		case *driver.ParamMarkerExpr:
			v.pending = append(v.pending, pendingPredicate{pred: pred, marker: val})
		case ast.ValueExpr:
			pred.Value = formatValue(val.GetValue())
			v.pending = append(v.pending, pendingPredicate{pred: pred})
		}
	}
}

// finish assigns placeholder ordinals by text position and flushes pending
// predicates into the context.
func (v *visitor) finish() {
	sort.Slice(v.markers, func(i, j int) bool {
		return v.markers[i].Offset < v.markers[j].Offset
	})
	order := make(map[*driver.ParamMarkerExpr]int, len(v.markers))
	for i, m := range v.markers {
		order[m] = i
	}
	v.ctx.ParamCount = len(v.markers)

	for _, p := range v.pending {
		pred := p.pred
		if p.marker != nil {
			pred.ParamIndex = order[p.marker]
		}
		v.ctx.Predicates = append(v.ctx.Predicates, pred)
	}
}

func formatValue(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
