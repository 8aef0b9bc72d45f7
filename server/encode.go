package server

import (
	"strconv"

	"github.com/dbmesh/dbmesh/backend"
	"github.com/dbmesh/dbmesh/packet"
)

// responseEncoder frames result-set packets into one buffer so a response is
// written, and cached, as a unit.
type responseEncoder struct {
	buf []byte
	seq uint8
}

func newResponseEncoder(seq uint8) *responseEncoder {
	return &responseEncoder{seq: seq}
}

func (e *responseEncoder) append(payload []byte) {
	data, next := packet.EncodePacket(payload, e.seq)
	e.buf = append(e.buf, data...)
	e.seq = next
}

// encodeResultSets frames a query result. Every set is column count, column
// definitions, EOF, rows, EOF; a set with no columns is pure status and is a
// single OK instead. The terminating packet of a non-final set carries the
// more-results flag.
func (e *responseEncoder) encodeResultSets(sets []*backend.ResultSet, status uint16, binary bool) {
	for i, set := range sets {
		if len(set.Columns) == 0 {
			flags := status
			if i < len(sets)-1 {
				flags |= packet.SERVER_MORE_RESULTS_EXISTS
			}
			e.append((&packet.OK{StatusFlags: flags}).Marshal())
			continue
		}

		fc := &packet.FieldCount{Count: uint64(len(set.Columns))}
		e.append(fc.Marshal())
		for j := range set.Columns {
			e.append(set.Columns[j].Marshal())
		}
		e.append((&packet.EOF{StatusFlags: status}).Marshal())

		for _, row := range set.Rows {
			if binary {
				br := &packet.BinaryRow{Columns: set.Columns, Values: row}
				e.append(br.Marshal())
			} else {
				tr := &packet.TextRow{Values: row}
				e.append(tr.Marshal())
			}
		}

		trailing := status
		if i < len(sets)-1 {
			trailing |= packet.SERVER_MORE_RESULTS_EXISTS
		}
		e.append((&packet.EOF{StatusFlags: trailing}).Marshal())
	}
}

// encodePrepareAck frames the COM_STMT_PREPARE response: the acknowledgement
// plus one placeholder definition per parameter, EOF-terminated.
func (e *responseEncoder) encodePrepareAck(stmtID uint32, paramCount int, status uint16) {
	ack := &packet.StmtPrepareOK{
		StatementID: stmtID,
		ParamCount:  uint16(paramCount),
	}
	e.append(ack.Marshal())

	if paramCount > 0 {
		for i := 0; i < paramCount; i++ {
			def := &packet.ColumnDefinition{
				Name:    "?",
				Charset: 0x3f,
				Type:    packet.MYSQL_TYPE_VAR_STRING,
			}
			e.append(def.Marshal())
		}
		e.append((&packet.EOF{StatusFlags: status}).Marshal())
	}
}

// formatArg renders an execute argument for shard resolution.
func formatArg(arg interface{}) string {
	switch v := arg.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return ""
	}
}
