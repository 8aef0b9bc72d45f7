package analyzer

import "testing"

func TestRewrite(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		mapping map[string]string
		want    string
	}{
		{
			name:    "simple table",
			sql:     "SELECT * FROM t_order WHERE user_id = 1",
			mapping: map[string]string{"t_order": "t_order_1"},
			want:    "SELECT * FROM t_order_1 WHERE user_id = 1",
		},
		{
			name:    "identity returns input unchanged",
			sql:     "SELECT a, b, 123, myfunc(b) FROM t_order WHERE user_id = 1 AND a > b AND b < 100 ORDER BY a DESC, b",
			mapping: map[string]string{"t_order": "t_order"},
			want:    "SELECT a, b, 123, myfunc(b) FROM t_order WHERE user_id = 1 AND a > b AND b < 100 ORDER BY a DESC, b",
		},
		{
			name:    "table name inside string literal untouched",
			sql:     "SELECT 't_order' FROM t_order",
			mapping: map[string]string{"t_order": "t_order_0"},
			want:    "SELECT 't_order' FROM t_order_0",
		},
		{
			name:    "table name inside comment untouched",
			sql:     "SELECT * /* from t_order */ FROM t_order",
			mapping: map[string]string{"t_order": "t_order_0"},
			want:    "SELECT * /* from t_order */ FROM t_order_0",
		},
		{
			name:    "table name inside line comment untouched",
			sql:     "SELECT * FROM t_order -- t_order trailing",
			mapping: map[string]string{"t_order": "t_order_0"},
			want:    "SELECT * FROM t_order_0 -- t_order trailing",
		},
		{
			name:    "prefix word not replaced",
			sql:     "SELECT * FROM t_order_archive, t_order",
			mapping: map[string]string{"t_order": "t_order_1"},
			want:    "SELECT * FROM t_order_archive, t_order_1",
		},
		{
			name:    "qualified column named like the table untouched",
			sql:     "SELECT o.t_order FROM t_order o WHERE o.user_id = 1",
			mapping: map[string]string{"t_order": "t_order_1"},
			want:    "SELECT o.t_order FROM t_order_1 o WHERE o.user_id = 1",
		},
		{
			name:    "multiple occurrences",
			sql:     "INSERT INTO t_order SELECT * FROM t_order",
			mapping: map[string]string{"t_order": "t_order_3"},
			want:    "INSERT INTO t_order_3 SELECT * FROM t_order_3",
		},
		{
			name:    "escaped quote in literal",
			sql:     `SELECT 'it\'s t_order' FROM t_order`,
			mapping: map[string]string{"t_order": "t_order_0"},
			want:    `SELECT 'it\'s t_order' FROM t_order_0`,
		},
		{
			name:    "doubled quote in literal",
			sql:     "SELECT 'a''t_order' FROM t_order",
			mapping: map[string]string{"t_order": "t_order_0"},
			want:    "SELECT 'a''t_order' FROM t_order_0",
		},
		{
			name:    "no mapping",
			sql:     "SELECT 1",
			mapping: nil,
			want:    "SELECT 1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Rewrite(tc.sql, tc.mapping)
			if got != tc.want {
				t.Errorf("Rewrite(%q)\n got %q\nwant %q", tc.sql, got, tc.want)
			}
		})
	}
}
