package slot

import (
	"strings"
	"testing"

	"github.com/robdobsn/rdweb/reqheader"
	"github.com/robdobsn/rdweb/responder"
	"github.com/robdobsn/rdweb/transport/transporttest"
)

type stubResponder struct {
	body        string
	cursor      int
	active      bool
	leaveOpen   bool
	headerNeed  bool
	contentType string
	encoding    string
}

func newStubResponder(body string) *stubResponder {
	return &stubResponder{body: body, active: true, headerNeed: true, contentType: "text/json"}
}

func (r *stubResponder) HandleData([]byte) bool       { return true }
func (r *stubResponder) StartResponding(responder.RawSend) bool { return true }
func (r *stubResponder) GetResponseNext(maxLen int) []byte {
	if r.cursor >= len(r.body) {
		r.active = false
		return nil
	}
	end := r.cursor + maxLen
	if end > len(r.body) {
		end = len(r.body)
	}
	out := []byte(r.body[r.cursor:end])
	r.cursor = end
	if r.cursor >= len(r.body) {
		r.active = false
	}
	return out
}
func (r *stubResponder) Service()                      {}
func (r *stubResponder) IsActive() bool                { return r.active }
func (r *stubResponder) IsStdHeaderRequired() bool     { return r.headerNeed }
func (r *stubResponder) GetContentType() string        { return r.contentType }
func (r *stubResponder) GetContentLength() int         { return len(r.body) }
func (r *stubResponder) LeaveConnOpen() bool            { return r.leaveOpen }
func (r *stubResponder) ReadyForData() bool            { return true }
func (r *stubResponder) GetResponderType() responder.Type { return responder.TypeRESTAPI }

// GetContentEncoding implements responder.ContentEncoder so stubResponder
// can stand in for the File responder's gzip-sibling behavior (spec §8
// scenario 1); "" (the zero value) means no header is emitted.
func (r *stubResponder) GetContentEncoding() string { return r.encoding }

type stubDispatcher struct {
	resp   responder.Responder
	status int
}

func (d *stubDispatcher) GetNewResponder(*reqheader.Header) (responder.Responder, int) {
	return d.resp, d.status
}

func TestSlotServesRESTResponse(t *testing.T) {
	ft := transporttest.New("c1")
	ft.Feed([]byte("GET /api/status HTTP/1.1\r\nHost: x\r\n\r\n"))
	d := &stubDispatcher{resp: newStubResponder(`{"ok":true}`)}
	s := New(ft, d, nil, 1024)

	for i := 0; i < 10 && s.State() != Closed; i++ {
		s.Tick()
	}

	got := string(ft.FromClient)
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("unexpected response prefix: %q", got)
	}
	if !strings.Contains(got, "Content-Length: 11") {
		t.Fatalf("expected content-length 11: %q", got)
	}
	if !strings.HasSuffix(got, `{"ok":true}`) {
		t.Fatalf("expected body suffix: %q", got)
	}
	if !ft.Closed {
		t.Fatal("expected transport closed after non-persistent response")
	}
}

// TestSlotGzipFileServesContentEncodingHeader reproduces spec §8 scenario 1
// byte-for-byte: a File responder that served a gzip sibling must have its
// Content-Encoding surfaced through sendStandardHeaders.
func TestSlotGzipFileServesContentEncodingHeader(t *testing.T) {
	body := strings.Repeat("G", 42)
	ft := transporttest.New("c4")
	ft.Feed([]byte("GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n"))
	r := newStubResponder(body)
	r.contentType = "text/html"
	r.encoding = "gzip"
	d := &stubDispatcher{resp: r}
	s := New(ft, d, nil, 1024)

	for i := 0; i < 10 && s.State() != Closed; i++ {
		s.Tick()
	}

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/html\r\n" +
		"Content-Encoding: gzip\r\n" +
		"Content-Length: 42\r\n" +
		"Connection: close\r\n\r\n" + body
	if got := string(ft.FromClient); got != want {
		t.Fatalf("got  %q\nwant %q", got, want)
	}
}

func TestSlotNoHandlerReturns404(t *testing.T) {
	ft := transporttest.New("c2")
	ft.Feed([]byte("GET /nope HTTP/1.1\r\nHost: x\r\n\r\n"))
	d := &stubDispatcher{resp: nil, status: 0}
	s := New(ft, d, nil, 1024)

	for i := 0; i < 10 && s.State() != Closed; i++ {
		s.Tick()
	}
	if !strings.HasPrefix(string(ft.FromClient), "HTTP/1.1 404") {
		t.Fatalf("expected 404, got %q", ft.FromClient)
	}
}

func TestSlotBadRequestReturns400(t *testing.T) {
	ft := transporttest.New("c3")
	ft.Feed([]byte("FOO / HTTP/1.1\r\n\r\n"))
	d := &stubDispatcher{}
	s := New(ft, d, nil, 1024)

	for i := 0; i < 10 && s.State() != Closed; i++ {
		s.Tick()
	}
	if !strings.HasPrefix(string(ft.FromClient), "HTTP/1.1 400") {
		t.Fatalf("expected 400, got %q", ft.FromClient)
	}
}
