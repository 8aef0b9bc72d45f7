package packet

// MySQL protocol constants
const (
	OK_HEADER   = 0x00
	ERR_HEADER  = 0xff
	EOF_HEADER  = 0xfe
	NULL_MARKER = 0xfb

	// MaxPayloadSize is the largest payload a single physical packet can
	// carry; longer payloads are split across packets.
	MaxPayloadSize = 0xffffff

	// Command types
	COM_QUIT         = 0x01
	COM_INIT_DB      = 0x02
	COM_QUERY        = 0x03
	COM_PING         = 0x0e
	COM_STMT_PREPARE = 0x16
	COM_STMT_EXECUTE = 0x17
	COM_STMT_CLOSE   = 0x19
	COM_STMT_RESET   = 0x1a

	// Client/server capabilities
	CLIENT_LONG_PASSWORD                  = 0x00000001
	CLIENT_FOUND_ROWS                     = 0x00000002
	CLIENT_LONG_FLAG                      = 0x00000004
	CLIENT_CONNECT_WITH_DB                = 0x00000008
	CLIENT_NO_SCHEMA                      = 0x00000010
	CLIENT_COMPRESS                       = 0x00000020
	CLIENT_ODBC                           = 0x00000040
	CLIENT_LOCAL_FILES                    = 0x00000080
	CLIENT_IGNORE_SPACE                   = 0x00000100
	CLIENT_PROTOCOL_41                    = 0x00000200
	CLIENT_INTERACTIVE                    = 0x00000400
	CLIENT_SSL                            = 0x00000800
	CLIENT_IGNORE_SIGPIPE                 = 0x00001000
	CLIENT_TRANSACTIONS                   = 0x00002000
	CLIENT_RESERVED                       = 0x00004000
	CLIENT_SECURE_CONNECTION              = 0x00008000
	CLIENT_MULTI_STATEMENTS               = 0x00010000
	CLIENT_MULTI_RESULTS                  = 0x00020000
	CLIENT_PS_MULTI_RESULTS               = 0x00040000
	CLIENT_PLUGIN_AUTH                    = 0x00080000
	CLIENT_CONNECT_ATTRS                  = 0x00100000
	CLIENT_PLUGIN_AUTH_LENENC_CLIENT_DATA = 0x00200000
	CLIENT_CAN_HANDLE_EXPIRED_PASSWORDS   = 0x00400000
	CLIENT_SESSION_TRACK                  = 0x00800000
	CLIENT_DEPRECATE_EOF                  = 0x01000000

	// Default server capability
	DEFAULT_CAPABILITY = CLIENT_LONG_PASSWORD | CLIENT_LONG_FLAG |
		CLIENT_CONNECT_WITH_DB | CLIENT_PROTOCOL_41 |
		CLIENT_TRANSACTIONS | CLIENT_SECURE_CONNECTION |
		CLIENT_MULTI_RESULTS | CLIENT_PLUGIN_AUTH

	// Server status flags
	SERVER_STATUS_IN_TRANS             = 0x0001
	SERVER_STATUS_AUTOCOMMIT           = 0x0002
	SERVER_MORE_RESULTS_EXISTS         = 0x0008
	SERVER_STATUS_NO_GOOD_INDEX_USED   = 0x0010
	SERVER_STATUS_NO_INDEX_USED        = 0x0020
	SERVER_STATUS_CURSOR_EXISTS        = 0x0040
	SERVER_STATUS_LAST_ROW_SENT        = 0x0080
	SERVER_STATUS_DB_DROPPED           = 0x0100
	SERVER_STATUS_NO_BACKSLASH_ESCAPES = 0x0200
	SERVER_STATUS_METADATA_CHANGED     = 0x0400
	SERVER_QUERY_WAS_SLOW              = 0x0800
	SERVER_PS_OUT_PARAMS               = 0x1000

	// Column types
	MYSQL_TYPE_DECIMAL    = 0x00
	MYSQL_TYPE_TINY       = 0x01
	MYSQL_TYPE_SHORT      = 0x02
	MYSQL_TYPE_LONG       = 0x03
	MYSQL_TYPE_FLOAT      = 0x04
	MYSQL_TYPE_DOUBLE     = 0x05
	MYSQL_TYPE_NULL       = 0x06
	MYSQL_TYPE_TIMESTAMP  = 0x07
	MYSQL_TYPE_LONGLONG   = 0x08
	MYSQL_TYPE_INT24      = 0x09
	MYSQL_TYPE_DATE       = 0x0a
	MYSQL_TYPE_TIME       = 0x0b
	MYSQL_TYPE_DATETIME   = 0x0c
	MYSQL_TYPE_YEAR       = 0x0d
	MYSQL_TYPE_VARCHAR    = 0x0f
	MYSQL_TYPE_BIT        = 0x10
	MYSQL_TYPE_NEWDECIMAL = 0xf6
	MYSQL_TYPE_BLOB       = 0xfc
	MYSQL_TYPE_VAR_STRING = 0xfd
	MYSQL_TYPE_STRING     = 0xfe
	MYSQL_TYPE_GEOMETRY   = 0xff

	// Column flags
	NOT_NULL_FLAG = 0x0001
	PRI_KEY_FLAG  = 0x0002
	UNSIGNED_FLAG = 0x0020

	// Error codes used by the proxy itself; backend errors are forwarded
	// with the backend's own code.
	ER_ACCESS_DENIED_ERROR      = 1045
	ER_UNKNOWN_COM_ERROR        = 1047
	ER_PARSE_ERROR              = 1064
	ER_UNKNOWN_ERROR            = 1105
	ER_NET_PACKETS_OUT_OF_ORDER = 1156
	ER_UNKNOWN_STMT_HANDLER     = 1243
	ER_MALFORMED_PACKET         = 1835
)

// CommandName returns a readable name for a command byte, for logging.
func CommandName(cmd byte) string {
	switch cmd {
	case COM_QUIT:
		return "COM_QUIT"
	case COM_INIT_DB:
		return "COM_INIT_DB"
	case COM_QUERY:
		return "COM_QUERY"
	case COM_PING:
		return "COM_PING"
	case COM_STMT_PREPARE:
		return "COM_STMT_PREPARE"
	case COM_STMT_EXECUTE:
		return "COM_STMT_EXECUTE"
	case COM_STMT_CLOSE:
		return "COM_STMT_CLOSE"
	case COM_STMT_RESET:
		return "COM_STMT_RESET"
	default:
		return "COM_UNKNOWN"
	}
}
