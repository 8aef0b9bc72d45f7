package backend

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/dbmesh/dbmesh/packet"
)

// Result is what a statement produced: result sets for reads, counters for
// writes.
type Result struct {
	Backend      string // datasource or replica that served the statement
	HasRows      bool
	Sets         []*ResultSet
	AffectedRows uint64
	LastInsertID uint64
}

// ResultSet is one decoded result set. A nil cell is NULL.
type ResultSet struct {
	Columns []packet.ColumnDefinition
	Rows    [][][]byte
}

const (
	charsetUTF8   = 0x21
	charsetBinary = 0x3f
)

// columnDefinitions maps database/sql column metadata onto wire column
// definitions.
func columnDefinitions(types []*sql.ColumnType) []packet.ColumnDefinition {
	cols := make([]packet.ColumnDefinition, len(types))
	for i, t := range types {
		col := packet.ColumnDefinition{
			Name:    t.Name(),
			OrgName: t.Name(),
		}
		col.Type, col.Charset = mapColumnType(t.DatabaseTypeName())
		if length, ok := t.Length(); ok && length > 0 {
			col.ColumnLength = uint32(length)
		} else {
			col.ColumnLength = 0xffffffff
		}
		if _, scale, ok := t.DecimalSize(); ok {
			col.Decimals = uint8(scale)
		}
		if nullable, ok := t.Nullable(); ok && !nullable {
			col.Flags |= packet.NOT_NULL_FLAG
		}
		cols[i] = col
	}
	return cols
}

func mapColumnType(dbType string) (uint8, uint16) {
	switch dbType {
	case "TINYINT", "BOOL":
		return packet.MYSQL_TYPE_TINY, charsetBinary
	case "SMALLINT", "INT2":
		return packet.MYSQL_TYPE_SHORT, charsetBinary
	case "MEDIUMINT":
		return packet.MYSQL_TYPE_INT24, charsetBinary
	case "INT", "INTEGER", "INT4", "SERIAL":
		return packet.MYSQL_TYPE_LONG, charsetBinary
	case "BIGINT", "INT8", "BIGSERIAL":
		return packet.MYSQL_TYPE_LONGLONG, charsetBinary
	case "FLOAT", "FLOAT4", "REAL":
		return packet.MYSQL_TYPE_FLOAT, charsetBinary
	case "DOUBLE", "FLOAT8", "DOUBLE PRECISION":
		return packet.MYSQL_TYPE_DOUBLE, charsetBinary
	case "DECIMAL", "NUMERIC":
		return packet.MYSQL_TYPE_NEWDECIMAL, charsetBinary
	case "YEAR":
		return packet.MYSQL_TYPE_YEAR, charsetBinary
	case "DATE":
		return packet.MYSQL_TYPE_DATE, charsetUTF8
	case "TIME":
		return packet.MYSQL_TYPE_TIME, charsetUTF8
	case "DATETIME":
		return packet.MYSQL_TYPE_DATETIME, charsetUTF8
	case "TIMESTAMP", "TIMESTAMPTZ":
		return packet.MYSQL_TYPE_TIMESTAMP, charsetUTF8
	case "BIT", "VARBIT":
		return packet.MYSQL_TYPE_BIT, charsetBinary
	case "CHAR", "BPCHAR":
		return packet.MYSQL_TYPE_STRING, charsetUTF8
	case "VARCHAR", "NVARCHAR", "NAME":
		return packet.MYSQL_TYPE_VAR_STRING, charsetUTF8
	case "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "JSON", "JSONB":
		return packet.MYSQL_TYPE_BLOB, charsetUTF8
	case "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB", "BINARY", "VARBINARY", "BYTEA":
		return packet.MYSQL_TYPE_BLOB, charsetBinary
	default:
		return packet.MYSQL_TYPE_VAR_STRING, charsetUTF8
	}
}

func errUnknownDatasource(name string) error {
	return packet.NewSQLError(packet.ClassRouting, packet.ER_UNKNOWN_ERROR, "HY000",
		"unknown datasource %q", name)
}

// convertError maps driver errors onto wire errors, keeping the backend's
// own error code and state when the driver exposes them.
func convertError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		state := string(myErr.SQLState[:])
		if state == "\x00\x00\x00\x00\x00" {
			state = "HY000"
		}
		return &packet.SQLError{
			Class:   packet.ClassBackend,
			Code:    myErr.Number,
			State:   state,
			Message: myErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return packet.NewSQLError(packet.ClassBackend, packet.ER_UNKNOWN_ERROR, "HY000",
			"backend error %s: %s", pqErr.Code, pqErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return packet.NewSQLError(packet.ClassBackend, packet.ER_UNKNOWN_ERROR, "HY000",
			"backend timed out")
	}
	return packet.NewSQLError(packet.ClassBackend, packet.ER_UNKNOWN_ERROR, "HY000", "%v", err)
}
