package wsproto

import (
	"bytes"
	"testing"
)

func maskedTextFrame(payload []byte, mask [4]byte) []byte {
	out := []byte{0x80 | byte(OpText), 0x80 | byte(len(payload))}
	out = append(out, mask[:]...)
	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b ^ mask[i%4]
	}
	return append(out, masked...)
}

func TestHandshakeAcceptKey(t *testing.T) {
	// RFC 6455 §1.3 worked example.
	got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("AcceptKey() = %q, want %q", got, want)
	}
}

func TestEchoRoundTrip(t *testing.T) {
	var events []EventCode
	var texts [][]byte
	l := &Link{}
	l.Setup(func(code EventCode, payload []byte) {
		events = append(events, code)
		if code == EventText || code == EventBinary {
			texts = append(texts, append([]byte(nil), payload...))
		}
	}, 0, true, 0)

	l.UpgradeReceived("dGhlIHNhbXBsZSBub25jZQ==")
	resp := l.GetTxData(1 << 16)
	if !bytes.HasPrefix(resp, []byte("HTTP/1.1 101 Switching Protocols\r\n")) {
		t.Fatalf("unexpected handshake response: %q", resp)
	}

	frame := maskedTextFrame([]byte("hi"), [4]byte{1, 2, 3, 4})
	l.HandleRxData(frame)
	if len(texts) != 1 || string(texts[0]) != "hi" {
		t.Fatalf("expected to decode 'hi', got %v", texts)
	}

	if !l.SendMsg(OpBinary, []byte("HI")) {
		t.Fatal("expected send to succeed while open")
	}
	out := l.GetTxData(1 << 16)
	frames, _, err := parseFramesForTest(out)
	if err != nil {
		t.Fatalf("parse outbound frame: %v", err)
	}
	if len(frames) != 1 || frames[0].Opcode != OpBinary || string(frames[0].Payload) != "HI" {
		t.Fatalf("unexpected outbound frame: %+v", frames)
	}
}

// parseFramesForTest parses unmasked server frames (parseFrames rejects
// unmasked frames since it is written for client->server traffic); this
// helper decodes server->client frames without requiring a mask.
func parseFramesForTest(buf []byte) ([]Frame, int, error) {
	var frames []Frame
	offset := 0
	for len(buf)-offset >= 2 {
		b0 := buf[offset]
		b1 := buf[offset+1]
		fin := b0&0x80 != 0
		opcode := Opcode(b0 & 0x0F)
		length := int(b1 & 0x7F)
		pos := offset + 2
		payload := make([]byte, length)
		copy(payload, buf[pos:pos+length])
		frames = append(frames, Frame{Fin: fin, Opcode: opcode, Payload: payload})
		offset = pos + length
	}
	return frames, offset, nil
}

func TestFragmentedMessageReassembly(t *testing.T) {
	var texts [][]byte
	l := &Link{}
	l.Setup(func(code EventCode, payload []byte) {
		if code == EventText {
			texts = append(texts, append([]byte(nil), payload...))
		}
	}, 0, true, 0)
	l.state = Open

	mask := [4]byte{9, 9, 9, 9}
	first := []byte{0x00 | byte(OpText), 0x80 | 2, mask[0], mask[1], mask[2], mask[3]}
	firstPayload := []byte{'h', 'e'}
	for i, b := range firstPayload {
		first = append(first, b^mask[i%4])
	}
	last := []byte{0x80 | byte(OpContinuation), 0x80 | 2, mask[0], mask[1], mask[2], mask[3]}
	lastPayload := []byte{'l', 'o'}
	for i, b := range lastPayload {
		last = append(last, b^mask[i%4])
	}

	l.HandleRxData(first)
	l.HandleRxData(last)

	if len(texts) != 1 || string(texts[0]) != "helo" {
		t.Fatalf("expected reassembled 'helo', got %v", texts)
	}
}

func TestSplitAcrossReads(t *testing.T) {
	var texts [][]byte
	l := &Link{}
	l.Setup(func(code EventCode, payload []byte) {
		if code == EventText {
			texts = append(texts, append([]byte(nil), payload...))
		}
	}, 0, true, 0)
	l.state = Open

	frame := maskedTextFrame([]byte("split-me"), [4]byte{5, 6, 7, 8})
	l.HandleRxData(frame[:3])
	l.HandleRxData(frame[3:])
	if len(texts) != 1 || string(texts[0]) != "split-me" {
		t.Fatalf("expected 'split-me', got %v", texts)
	}
}
