// Package wsproto implements the server side of RFC 6455 WebSocket framing,
// the upgrade handshake, and the ping/pong liveness discipline described in
// spec §4.8 (Component F, WebSocket Link). Framing and the handshake are
// grounded on the from-scratch RFC 6455 servers retrieved alongside the
// teacher (github.com/pepnova-9/go-websocket-server, nats-io/nats-server's
// server/websocket.go) since the teacher module (badu/http, a net/http
// clone) never implements WebSocket at all.
package wsproto

import "encoding/binary"

// Opcode identifies a WebSocket frame's payload interpretation.
type Opcode byte

const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

func (o Opcode) isControl() bool { return o >= OpClose }

// Frame is one decoded WebSocket frame.
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Payload []byte
}

// parseFrames walks buf extracting as many complete frames as possible,
// unmasking each payload into a fresh copy. It returns the frames found and the offset into buf
// where parsing stopped (the caller keeps buf[offset:] for the next call);
// it never copies the leftover itself so the caller controls buffer
// ownership across incremental Transport reads.
func parseFrames(buf []byte) (frames []Frame, offset int, err error) {
	for len(buf)-offset >= 2 {
		b0 := buf[offset]
		b1 := buf[offset+1]
		fin := b0&0x80 != 0
		opcode := Opcode(b0 & 0x0F)
		masked := b1&0x80 != 0
		length := int(b1 & 0x7F)
		pos := offset + 2

		switch length {
		case 126:
			if len(buf)-pos < 2 {
				return frames, offset, nil
			}
			length = int(binary.BigEndian.Uint16(buf[pos : pos+2]))
			pos += 2
		case 127:
			if len(buf)-pos < 8 {
				return frames, offset, nil
			}
			hi := binary.BigEndian.Uint32(buf[pos : pos+4])
			lo := binary.BigEndian.Uint32(buf[pos+4 : pos+8])
			pos += 8
			if hi != 0 {
				return nil, offset, errFrameTooLarge
			}
			length = int(lo)
		}

		var maskKey [4]byte
		if masked {
			if len(buf)-pos < 4 {
				return frames, offset, nil
			}
			copy(maskKey[:], buf[pos:pos+4])
			pos += 4
		} else if !masked {
			// RFC 6455 §5.1: client frames MUST be masked.
			return nil, offset, errUnmaskedClientFrame
		}

		if len(buf)-pos < length {
			return frames, offset, nil
		}

		payload := make([]byte, length)
		copy(payload, buf[pos:pos+length])
		for i := range payload {
			payload[i] ^= maskKey[i%4]
		}

		frames = append(frames, Frame{Fin: fin, Opcode: opcode, Payload: payload})
		pos += length
		offset = pos
	}
	return frames, offset, nil
}

// buildFrame assembles an unmasked, single-fragment server-to-client frame
// (spec §4.8: "Outgoing frames are unmasked, single-fragment per message in
// this implementation").
func buildFrame(opcode Opcode, payload []byte) []byte {
	fin := byte(0x80)
	first := fin | byte(opcode&0x0F)
	n := len(payload)
	switch {
	case n < 126:
		out := make([]byte, 2, 2+n)
		out[0] = first
		out[1] = byte(n)
		return append(out, payload...)
	case n <= 0xFFFF:
		out := make([]byte, 4, 4+n)
		out[0] = first
		out[1] = 126
		binary.BigEndian.PutUint16(out[2:], uint16(n))
		return append(out, payload...)
	default:
		out := make([]byte, 10, 10+n)
		out[0] = first
		out[1] = 127
		binary.BigEndian.PutUint32(out[2:6], 0)
		binary.BigEndian.PutUint32(out[6:10], uint32(n))
		return append(out, payload...)
	}
}

type frameError string

func (e frameError) Error() string { return string(e) }

const (
	errFrameTooLarge       frameError = "websocket: frame larger than 4GiB not supported"
	errUnmaskedClientFrame frameError = "websocket: client frame not masked"
)
