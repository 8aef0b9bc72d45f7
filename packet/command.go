package packet

// Command is one decoded client command. Exactly one concrete type exists per
// recognized command byte; anything else decodes to Unknown.
type Command interface {
	CommandType() byte
}

// Query is COM_QUERY: run SQL over the text protocol.
type Query struct {
	SQL string
}

func (Query) CommandType() byte { return COM_QUERY }

// InitDB is COM_INIT_DB: switch the session's default database.
type InitDB struct {
	Schema string
}

func (InitDB) CommandType() byte { return COM_INIT_DB }

// StmtPrepare is COM_STMT_PREPARE.
type StmtPrepare struct {
	SQL string
}

func (StmtPrepare) CommandType() byte { return COM_STMT_PREPARE }

// StmtExecute is COM_STMT_EXECUTE. Parameter values stay undecoded here:
// their types are only known to the session that prepared the statement, so
// the handler finishes decoding against the statement's parameter types.
type StmtExecute struct {
	StatementID    uint32
	Flags          uint8
	NullBitmap     []byte
	NewParamsBound bool
	ParamTypes     []byte // 2 bytes per parameter, present when NewParamsBound
	ParamValues    []byte
	ParamCount     int
}

func (StmtExecute) CommandType() byte { return COM_STMT_EXECUTE }

// StmtClose is COM_STMT_CLOSE. The client expects no response.
type StmtClose struct {
	StatementID uint32
}

func (StmtClose) CommandType() byte { return COM_STMT_CLOSE }

// StmtReset is COM_STMT_RESET.
type StmtReset struct {
	StatementID uint32
}

func (StmtReset) CommandType() byte { return COM_STMT_RESET }

// Quit is COM_QUIT.
type Quit struct{}

func (Quit) CommandType() byte { return COM_QUIT }

// Ping is COM_PING.
type Ping struct{}

func (Ping) CommandType() byte { return COM_PING }

// Unknown carries an unrecognized command byte.
type Unknown struct {
	Type byte
}

func (u Unknown) CommandType() byte { return u.Type }

// ParseCommand decodes a command payload. For COM_STMT_EXECUTE only the
// fixed head is decoded; the handler calls DecodeExecuteParams once it has
// looked up the statement's parameter count.
func ParseCommand(payload []byte) (Command, error) {
	if len(payload) == 0 {
		return nil, NewSQLError(ClassProtocol, ER_MALFORMED_PACKET, "HY000", "empty command packet")
	}
	p := NewPayload(payload[1:])
	switch payload[0] {
	case COM_QUIT:
		return Quit{}, nil
	case COM_PING:
		return Ping{}, nil
	case COM_QUERY:
		return Query{SQL: string(p.ReadRest())}, nil
	case COM_INIT_DB:
		return InitDB{Schema: string(p.ReadRest())}, nil
	case COM_STMT_PREPARE:
		return StmtPrepare{SQL: string(p.ReadRest())}, nil
	case COM_STMT_EXECUTE:
		// Only the fixed head is decoded here; see StmtExecute.
		id, err := p.ReadUint32()
		if err != nil {
			return nil, err
		}
		flags, err := p.ReadByte()
		if err != nil {
			return nil, err
		}
		if err := p.Skip(4); err != nil { // iteration count, always 1
			return nil, err
		}
		return StmtExecute{StatementID: id, Flags: flags, ParamValues: p.ReadRest()}, nil
	case COM_STMT_CLOSE:
		id, err := p.ReadUint32()
		if err != nil {
			return nil, err
		}
		return StmtClose{StatementID: id}, nil
	case COM_STMT_RESET:
		id, err := p.ReadUint32()
		if err != nil {
			return nil, err
		}
		return StmtReset{StatementID: id}, nil
	default:
		return Unknown{Type: payload[0]}, nil
	}
}

// DecodeExecuteParams splits the undecoded tail of a COM_STMT_EXECUTE into
// null bitmap, parameter types and parameter values, given the statement's
// parameter count.
func (e *StmtExecute) DecodeExecuteParams(paramCount int) error {
	e.ParamCount = paramCount
	if paramCount == 0 {
		return nil
	}
	p := NewPayload(e.ParamValues)
	bitmapLen := (paramCount + 7) >> 3
	bitmap, err := p.ReadBytes(bitmapLen)
	if err != nil {
		return err
	}
	e.NullBitmap = bitmap
	bound, err := p.ReadByte()
	if err != nil {
		return err
	}
	if bound == 1 {
		e.NewParamsBound = true
		types, err := p.ReadBytes(paramCount * 2)
		if err != nil {
			return err
		}
		e.ParamTypes = types
	}
	e.ParamValues = p.ReadRest()
	return nil
}

// ParamNull reports whether parameter i is NULL per the null bitmap.
func (e *StmtExecute) ParamNull(i int) bool {
	if len(e.NullBitmap) <= i>>3 {
		return false
	}
	return e.NullBitmap[i>>3]&(1<<(uint(i)%8)) > 0
}
