package manager

import (
	"strings"
	"testing"

	"github.com/robdobsn/rdweb/reqheader"
	"github.com/robdobsn/rdweb/responder"
	"github.com/robdobsn/rdweb/transport/transporttest"
)

func matchFn(path string, method reqheader.Method) (responder.RESTEndpoint, bool) {
	if path == "/api/status" && method == reqheader.GET {
		return responder.RESTEndpoint{
			Fn: func(string, responder.SourceInfo) (string, error) { return `{"ok":true}`, nil },
		}, true
	}
	return responder.RESTEndpoint{}, false
}

func TestHandoffAndServiceRESTRequest(t *testing.T) {
	m := New(1, 1024, nil)
	rest := &RESTHandler{
		Prefix: "/api",
		Match: matchFn,
	}
	m.AddHandler(rest)

	ft := transporttest.New("c1")
	ft.Feed([]byte("GET /api/status HTTP/1.1\r\nHost: x\r\n\r\n"))
	if !m.HandoffNewConn(ft) {
		t.Fatal("expected handoff to succeed")
	}

	for i := 0; i < 10; i++ {
		m.Service()
	}

	if !strings.HasPrefix(string(ft.FromClient), "HTTP/1.1 200 OK") {
		t.Fatalf("unexpected response: %q", ft.FromClient)
	}
	if !strings.Contains(string(ft.FromClient), `{"ok":true}`) {
		t.Fatalf("expected body in response: %q", ft.FromClient)
	}
}

func TestSlotExhaustionRejectsThirdConn(t *testing.T) {
	m := New(2, 1024, nil)
	a := transporttest.New("a")
	b := transporttest.New("b")
	c := transporttest.New("c")
	if !m.HandoffNewConn(a) || !m.HandoffNewConn(b) {
		t.Fatal("expected first two handoffs to succeed")
	}
	if m.HandoffNewConn(c) {
		t.Fatal("expected third handoff to be rejected")
	}
	if m.NumLiveSlots() > 2 {
		t.Fatalf("numLiveSlots = %d, want <= 2", m.NumLiveSlots())
	}
}
