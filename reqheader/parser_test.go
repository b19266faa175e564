package reqheader

import (
	"strings"
	"testing"
)

func feedAll(t *testing.T, chunks []string) *Header {
	t.Helper()
	p := NewParser()
	for _, c := range chunks {
		data := []byte(c)
		for len(data) > 0 {
			n, _, err := p.Feed(data)
			if err != nil {
				t.Fatalf("feed error: %v", err)
			}
			if n == 0 {
				t.Fatalf("parser made no progress")
			}
			data = data[n:]
		}
		if p.Header().Complete {
			break
		}
	}
	return p.Header()
}

func TestParseSimpleGet(t *testing.T) {
	req := "GET /status?x=1 HTTP/1.1\r\nHost: example.com\r\nAccept-Encoding: gzip\r\n\r\n"
	h := feedAll(t, []string{req})
	if !h.Complete {
		t.Fatal("expected complete header")
	}
	if h.Method != GET || h.URL != "/status" || h.Query != "x=1" || h.Host != "example.com" {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestFragmentIndependence(t *testing.T) {
	full := "GET /a/b?c=d HTTP/1.1\r\nHost: x\r\nContent-Type: text/json\r\nContent-Length: 11\r\n\r\n"
	// Split at every byte position and check the result is identical.
	var want *Header
	for split := 1; split < len(full)-1; split++ {
		h := feedAll(t, []string{full[:split], full[split:]})
		if want == nil {
			want = h
			continue
		}
		if h.Method != want.Method || h.URL != want.URL || h.Query != want.Query ||
			h.Host != want.Host || h.ContentType != want.ContentType || h.ContentLength != want.ContentLength {
			t.Fatalf("split at %d diverged: %+v vs %+v", split, h, want)
		}
	}
}

func TestMultipartBoundary(t *testing.T) {
	req := "POST /api/upload HTTP/1.1\r\nContent-Type: multipart/form-data; boundary=XYZ\r\nContent-Length: 4\r\n\r\n"
	h := feedAll(t, []string{req})
	if !h.IsMultipart || h.MultipartBoundary != "XYZ" {
		t.Fatalf("expected multipart boundary XYZ, got %+v", h)
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	req := "GET /ws HTTP/1.1\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\nSec-WebSocket-Version: 13\r\n\r\n"
	h := feedAll(t, []string{req})
	if h.ConnKind != KindWebSocket {
		t.Fatalf("expected websocket connection kind")
	}
	if h.WebSocketKey != "dGhlIHNhbXBsZSBub25jZQ==" || h.WebSocketVersion != "13" {
		t.Fatalf("unexpected ws header fields: %+v", h)
	}
}

func TestUnknownMethodFails(t *testing.T) {
	p := NewParser()
	_, _, err := p.Feed([]byte("FOO / HTTP/1.1\r\n\r\n"))
	if err == nil {
		t.Fatal("expected parse error for unknown method")
	}
}

func TestExpectContinue(t *testing.T) {
	req := "POST /x HTTP/1.1\r\nHost: x\r\nContent-Length: 3\r\nExpect: 100-continue\r\n\r\nabc"
	p := NewParser()
	data := []byte(req)
	var sawContinue bool
	for len(data) > 0 {
		n, needsContinue, err := p.Feed(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if needsContinue {
			sawContinue = true
		}
		data = data[n:]
		if p.Header().Complete {
			break
		}
	}
	if !sawContinue {
		t.Fatal("expected 100-continue signal")
	}
	if !strings.HasPrefix(string(data), "abc") {
		t.Fatalf("expected body leftover 'abc', got %q", data)
	}
}

func TestDecodeURLLeftInverse(t *testing.T) {
	for c := 0x20; c <= 0x7E; c++ {
		s := string(rune(c))
		enc := encodeForTest(s)
		got, err := DecodeURL(enc)
		if err != nil {
			t.Fatalf("decode(%q) error: %v", enc, err)
		}
		if got != s && !(s == " " && got == " ") {
			t.Fatalf("decode(encode(%q)) = %q", s, got)
		}
	}
}

func encodeForTest(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' {
			b.WriteByte('+')
			continue
		}
		b.WriteByte('%')
		const hex = "0123456789ABCDEF"
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0xF])
	}
	return b.String()
}
