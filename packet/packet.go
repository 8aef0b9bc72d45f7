package packet

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Header is the 4-byte packet header: 3-byte little-endian payload length
// plus a sequence id.
type Header struct {
	Length     uint32
	SequenceID uint8
}

// ReadHeader reads one packet header.
func ReadHeader(r io.Reader) (Header, error) {
	var raw [4]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		if err == io.EOF {
			return Header{}, err
		}
		return Header{}, fmt.Errorf("short packet header: %w", err)
	}
	return Header{
		Length:     uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16,
		SequenceID: raw[3],
	}, nil
}

// ReadPacket reads one logical packet, reassembling payloads that were split
// across physical packets of MaxPayloadSize bytes. It returns the payload and
// the sequence id of the first physical packet. io.EOF is returned unwrapped
// when the peer closed the connection cleanly between packets.
func ReadPacket(r io.Reader) ([]byte, uint8, error) {
	header, err := ReadHeader(r)
	if err != nil {
		return nil, 0, err
	}
	seq := header.SequenceID

	payload := make([]byte, header.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, 0, fmt.Errorf("short packet payload: %w", err)
	}
	if header.Length < MaxPayloadSize {
		return payload, seq, nil
	}

	// Continuation packets follow until one shorter than MaxPayloadSize,
	// possibly zero-length.
	for {
		header, err = ReadHeader(r)
		if err != nil {
			if err == io.EOF {
				return nil, 0, fmt.Errorf("connection closed mid-packet: %w", io.ErrUnexpectedEOF)
			}
			return nil, 0, err
		}
		chunk := make([]byte, header.Length)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, 0, fmt.Errorf("short packet payload: %w", err)
		}
		payload = append(payload, chunk...)
		if header.Length < MaxPayloadSize {
			return payload, seq, nil
		}
	}
}

// WritePacket writes one logical payload, splitting it into physical packets
// of at most MaxPayloadSize bytes. Sequence ids increment per physical packet
// starting at seq; the next unused sequence id is returned. A payload whose
// final chunk is exactly MaxPayloadSize bytes is terminated by an extra
// zero-length packet.
func WritePacket(w io.Writer, payload []byte, seq uint8) (uint8, error) {
	for {
		chunk := payload
		if len(chunk) > MaxPayloadSize {
			chunk = chunk[:MaxPayloadSize]
		}
		var header [4]byte
		header[0] = byte(len(chunk))
		header[1] = byte(len(chunk) >> 8)
		header[2] = byte(len(chunk) >> 16)
		header[3] = seq
		if _, err := w.Write(header[:]); err != nil {
			return seq, err
		}
		if len(chunk) > 0 {
			if _, err := w.Write(chunk); err != nil {
				return seq, err
			}
		}
		seq++
		payload = payload[len(chunk):]
		if len(chunk) < MaxPayloadSize {
			return seq, nil
		}
		// A chunk of exactly MaxPayloadSize keeps the loop going; an
		// empty remainder then emits the terminating zero-length packet.
	}
}

// EncodePacket frames a payload into a byte slice instead of writing it to a
// stream, for callers that batch response packets.
func EncodePacket(payload []byte, seq uint8) ([]byte, uint8) {
	out := make([]byte, 0, len(payload)+4)
	for {
		chunk := payload
		if len(chunk) > MaxPayloadSize {
			chunk = chunk[:MaxPayloadSize]
		}
		var header [4]byte
		binary.LittleEndian.PutUint32(header[:], uint32(len(chunk)))
		header[3] = seq
		out = append(out, header[:]...)
		out = append(out, chunk...)
		seq++
		payload = payload[len(chunk):]
		if len(chunk) < MaxPayloadSize {
			return out, seq
		}
	}
}
