package packet

import (
	"fmt"
	"math"
)

// Args decodes the parameter values of a COM_STMT_EXECUTE into driver
// arguments. DecodeExecuteParams must have run first, and ParamTypes must be
// populated, either from this execute or from the types the statement bound
// earlier.
func (e *StmtExecute) Args() ([]interface{}, error) {
	if e.ParamCount == 0 {
		return nil, nil
	}
	if len(e.ParamTypes) < e.ParamCount*2 {
		return nil, NewSQLError(ClassSession, ER_MALFORMED_PACKET, "HY000",
			"statement %d executed without bound parameter types", e.StatementID)
	}

	args := make([]interface{}, e.ParamCount)
	p := NewPayload(e.ParamValues)
	for i := 0; i < e.ParamCount; i++ {
		if e.ParamNull(i) {
			continue
		}
		paramType := e.ParamTypes[i*2]
		unsigned := e.ParamTypes[i*2+1]&0x80 > 0

		switch paramType {
		case MYSQL_TYPE_NULL:
			// NULL type without a bitmap bit, nothing to read
		case MYSQL_TYPE_TINY:
			v, err := p.ReadByte()
			if err != nil {
				return nil, err
			}
			if unsigned {
				args[i] = uint64(v)
			} else {
				args[i] = int64(int8(v))
			}
		case MYSQL_TYPE_SHORT, MYSQL_TYPE_YEAR:
			v, err := p.ReadUint16()
			if err != nil {
				return nil, err
			}
			if unsigned {
				args[i] = uint64(v)
			} else {
				args[i] = int64(int16(v))
			}
		case MYSQL_TYPE_INT24, MYSQL_TYPE_LONG:
			v, err := p.ReadUint32()
			if err != nil {
				return nil, err
			}
			if unsigned {
				args[i] = uint64(v)
			} else {
				args[i] = int64(int32(v))
			}
		case MYSQL_TYPE_LONGLONG:
			v, err := p.ReadUint64()
			if err != nil {
				return nil, err
			}
			if unsigned {
				args[i] = v
			} else {
				args[i] = int64(v)
			}
		case MYSQL_TYPE_FLOAT:
			v, err := p.ReadUint32()
			if err != nil {
				return nil, err
			}
			args[i] = float64(math.Float32frombits(v))
		case MYSQL_TYPE_DOUBLE:
			v, err := p.ReadUint64()
			if err != nil {
				return nil, err
			}
			args[i] = math.Float64frombits(v)
		case MYSQL_TYPE_DATE, MYSQL_TYPE_DATETIME, MYSQL_TYPE_TIMESTAMP:
			s, err := readBinaryTimestamp(p)
			if err != nil {
				return nil, err
			}
			args[i] = s
		case MYSQL_TYPE_TIME:
			s, err := readBinaryDuration(p)
			if err != nil {
				return nil, err
			}
			args[i] = s
		default:
			// decimals, strings and blobs are length-encoded
			v, null, err := p.ReadLengthEncodedBytes()
			if err != nil {
				return nil, err
			}
			if !null {
				args[i] = string(v)
			}
		}
	}
	return args, nil
}

// readBinaryTimestamp decodes the length-prefixed wire form of DATE,
// DATETIME and TIMESTAMP values.
func readBinaryTimestamp(p *Payload) (string, error) {
	n, err := p.ReadByte()
	if err != nil {
		return "", err
	}
	switch n {
	case 0:
		return "0000-00-00", nil
	case 4, 7, 11:
	default:
		return "", NewSQLError(ClassProtocol, ER_MALFORMED_PACKET, "HY000",
			"invalid timestamp length %d", n)
	}
	year, err := p.ReadUint16()
	if err != nil {
		return "", err
	}
	rest, err := p.ReadBytes(int(n) - 2)
	if err != nil {
		return "", err
	}
	month, day := rest[0], rest[1]
	if n == 4 {
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
	}
	hour, minute, second := rest[2], rest[3], rest[4]
	if n == 7 {
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", year, month, day, hour, minute, second), nil
	}
	micro := uint32(rest[5]) | uint32(rest[6])<<8 | uint32(rest[7])<<16 | uint32(rest[8])<<24
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%06d", year, month, day, hour, minute, second, micro), nil
}

// readBinaryDuration decodes the length-prefixed wire form of TIME values.
func readBinaryDuration(p *Payload) (string, error) {
	n, err := p.ReadByte()
	if err != nil {
		return "", err
	}
	switch n {
	case 0:
		return "00:00:00", nil
	case 8, 12:
	default:
		return "", NewSQLError(ClassProtocol, ER_MALFORMED_PACKET, "HY000",
			"invalid time length %d", n)
	}
	rest, err := p.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	sign := ""
	if rest[0] == 1 {
		sign = "-"
	}
	days := uint32(rest[1]) | uint32(rest[2])<<8 | uint32(rest[3])<<16 | uint32(rest[4])<<24
	hour := uint32(rest[5]) + days*24
	minute, second := rest[6], rest[7]
	if n == 8 {
		return fmt.Sprintf("%s%02d:%02d:%02d", sign, hour, minute, second), nil
	}
	micro := uint32(rest[8]) | uint32(rest[9])<<8 | uint32(rest[10])<<16 | uint32(rest[11])<<24
	return fmt.Sprintf("%s%02d:%02d:%02d.%06d", sign, hour, minute, second, micro), nil
}
