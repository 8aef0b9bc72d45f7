package packet

// Handshake is the server greeting (protocol version 10) sent on accept.
type Handshake struct {
	ProtocolVersion uint8
	ServerVersion   string
	ConnectionID    uint32
	Salt            []byte // 20 bytes, split 8 + 12 on the wire
	Capabilities    uint32
	Charset         uint8
	StatusFlags     uint16
	AuthPluginName  string
}

// Marshal encodes the greeting payload.
func (h *Handshake) Marshal() []byte {
	w := NewWriter()
	w.WriteUint8(h.ProtocolVersion)
	w.WriteNulString(h.ServerVersion)
	w.WriteUint32(h.ConnectionID)
	w.WriteBytes(h.Salt[:8])
	w.WriteUint8(0) // filler
	w.WriteUint16(uint16(h.Capabilities))
	w.WriteUint8(h.Charset)
	w.WriteUint16(h.StatusFlags)
	w.WriteUint16(uint16(h.Capabilities >> 16))
	if h.Capabilities&CLIENT_PLUGIN_AUTH > 0 {
		w.WriteUint8(uint8(len(h.Salt) + 1))
	} else {
		w.WriteUint8(0)
	}
	w.WriteZero(10) // reserved
	if h.Capabilities&CLIENT_SECURE_CONNECTION > 0 {
		w.WriteBytes(h.Salt[8:])
		w.WriteUint8(0)
	}
	if h.Capabilities&CLIENT_PLUGIN_AUTH > 0 {
		w.WriteNulString(h.AuthPluginName)
	}
	return w.Bytes()
}

// UnmarshalHandshake decodes a greeting payload. Only used by tests and
// diagnostic tooling; the proxy itself only sends greetings.
func UnmarshalHandshake(payload []byte) (*Handshake, error) {
	p := NewPayload(payload)
	h := &Handshake{}
	var err error
	if h.ProtocolVersion, err = p.ReadByte(); err != nil {
		return nil, err
	}
	if h.ServerVersion, err = p.ReadNulString(); err != nil {
		return nil, err
	}
	if h.ConnectionID, err = p.ReadUint32(); err != nil {
		return nil, err
	}
	saltLow, err := p.ReadBytes(8)
	if err != nil {
		return nil, err
	}
	if err = p.Skip(1); err != nil {
		return nil, err
	}
	capLow, err := p.ReadUint16()
	if err != nil {
		return nil, err
	}
	if h.Charset, err = p.ReadByte(); err != nil {
		return nil, err
	}
	if h.StatusFlags, err = p.ReadUint16(); err != nil {
		return nil, err
	}
	capHigh, err := p.ReadUint16()
	if err != nil {
		return nil, err
	}
	h.Capabilities = uint32(capLow) | uint32(capHigh)<<16
	saltLen, err := p.ReadByte()
	if err != nil {
		return nil, err
	}
	if err = p.Skip(10); err != nil {
		return nil, err
	}
	h.Salt = append([]byte{}, saltLow...)
	if h.Capabilities&CLIENT_SECURE_CONNECTION > 0 {
		rest := 12
		if int(saltLen)-9 > rest {
			rest = int(saltLen) - 9
		}
		saltHigh, err := p.ReadBytes(rest)
		if err != nil {
			return nil, err
		}
		if err = p.Skip(1); err != nil {
			return nil, err
		}
		h.Salt = append(h.Salt, saltHigh...)
	}
	if h.Capabilities&CLIENT_PLUGIN_AUTH > 0 {
		if h.AuthPluginName, err = p.ReadNulString(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// HandshakeResponse is the client's reply to the greeting.
type HandshakeResponse struct {
	Capabilities   uint32
	MaxPacketSize  uint32
	Charset        uint8
	Username       string
	AuthResponse   []byte
	Database       string
	AuthPluginName string
}

// UnmarshalHandshakeResponse decodes the client's handshake response. Clients
// that do not speak protocol 4.1 are rejected; every driver in current use
// sets CLIENT_PROTOCOL_41.
func UnmarshalHandshakeResponse(payload []byte) (*HandshakeResponse, error) {
	p := NewPayload(payload)
	r := &HandshakeResponse{}
	var err error
	if r.Capabilities, err = p.ReadUint32(); err != nil {
		return nil, err
	}
	if r.Capabilities&CLIENT_PROTOCOL_41 == 0 {
		return nil, NewSQLError(ClassProtocol, ER_UNKNOWN_ERROR, "08S01",
			"client does not support protocol 4.1")
	}
	if r.MaxPacketSize, err = p.ReadUint32(); err != nil {
		return nil, err
	}
	if r.Charset, err = p.ReadByte(); err != nil {
		return nil, err
	}
	if err = p.Skip(23); err != nil {
		return nil, err
	}
	if r.Username, err = p.ReadNulString(); err != nil {
		return nil, err
	}
	switch {
	case r.Capabilities&CLIENT_PLUGIN_AUTH_LENENC_CLIENT_DATA > 0:
		auth, _, err := p.ReadLengthEncodedBytes()
		if err != nil {
			return nil, err
		}
		r.AuthResponse = auth
	case r.Capabilities&CLIENT_SECURE_CONNECTION > 0:
		n, err := p.ReadByte()
		if err != nil {
			return nil, err
		}
		if r.AuthResponse, err = p.ReadBytes(int(n)); err != nil {
			return nil, err
		}
	default:
		s, err := p.ReadNulString()
		if err != nil {
			return nil, err
		}
		r.AuthResponse = []byte(s)
	}
	if r.Capabilities&CLIENT_CONNECT_WITH_DB > 0 && p.Len() > 0 {
		if r.Database, err = p.ReadNulString(); err != nil {
			return nil, err
		}
	}
	if r.Capabilities&CLIENT_PLUGIN_AUTH > 0 && p.Len() > 0 {
		if r.AuthPluginName, err = p.ReadNulString(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Marshal encodes a handshake response, for tests and client tooling.
func (r *HandshakeResponse) Marshal() []byte {
	w := NewWriter()
	w.WriteUint32(r.Capabilities)
	w.WriteUint32(r.MaxPacketSize)
	w.WriteUint8(r.Charset)
	w.WriteZero(23)
	w.WriteNulString(r.Username)
	switch {
	case r.Capabilities&CLIENT_PLUGIN_AUTH_LENENC_CLIENT_DATA > 0:
		w.WriteLengthEncodedBytes(r.AuthResponse)
	case r.Capabilities&CLIENT_SECURE_CONNECTION > 0:
		w.WriteUint8(uint8(len(r.AuthResponse)))
		w.WriteBytes(r.AuthResponse)
	default:
		w.WriteBytes(r.AuthResponse)
		w.WriteUint8(0)
	}
	if r.Capabilities&CLIENT_CONNECT_WITH_DB > 0 {
		w.WriteNulString(r.Database)
	}
	if r.Capabilities&CLIENT_PLUGIN_AUTH > 0 {
		w.WriteNulString(r.AuthPluginName)
	}
	return w.Bytes()
}
