package responder

import (
	"testing"

	"github.com/robdobsn/rdweb/multipart"
)

func TestRESTGetRunsEndpointOnce(t *testing.T) {
	calls := 0
	ep := RESTEndpoint{
		Fn: func(reqStr string, src SourceInfo) (string, error) {
			calls++
			return `{"ok":true}`, nil
		},
	}
	r := NewREST(ep, "GET /api/status HTTP/1.1", -1, false, "", SourceInfo{ChannelID: 1})
	r.StartResponding(nil)

	if got := r.GetContentLength(); got != len(`{"ok":true}`) {
		t.Fatalf("content length = %d", got)
	}
	out := r.GetResponseNext(1024)
	if string(out) != `{"ok":true}` {
		t.Fatalf("unexpected body: %q", out)
	}
	if r.IsActive() {
		t.Fatal("expected inactive after full body served")
	}
	if calls != 1 {
		t.Fatalf("endpoint called %d times, want 1", calls)
	}
}

func TestRESTBodyStreamsToFnBody(t *testing.T) {
	var gotBody []byte
	ep := RESTEndpoint{
		FnBody: func(reqStr string, buf []byte, cursor, total int, src SourceInfo) {
			gotBody = append(gotBody, buf...)
		},
		Fn: func(reqStr string, src SourceInfo) (string, error) { return "{}", nil },
	}
	r := NewREST(ep, "POST /api/x HTTP/1.1", 5, false, "", SourceInfo{})
	r.StartResponding(nil)
	r.HandleData([]byte("hel"))
	r.HandleData([]byte("lo"))
	if string(gotBody) != "hello" {
		t.Fatalf("got %q", gotBody)
	}
}

func TestRESTMultipartChunks(t *testing.T) {
	var fileNames []string
	ep := RESTEndpoint{
		FnChunk: func(reqStr string, c multipart.Chunk, src SourceInfo) {
			if c.Header.FileName != "" {
				fileNames = append(fileNames, c.Header.FileName)
			}
		},
		Fn: func(string, SourceInfo) (string, error) { return "{}", nil },
	}
	body := "--XYZ\r\nContent-Disposition: form-data; name=\"f\"; filename=\"a.txt\"\r\n\r\ndata\r\n--XYZ--\r\n"
	r := NewREST(ep, "POST /api/upload HTTP/1.1", len(body), true, "XYZ", SourceInfo{})
	r.StartResponding(nil)
	r.HandleData([]byte(body[:10]))
	r.HandleData([]byte(body[10:]))
	if len(fileNames) == 0 || fileNames[0] != "a.txt" {
		t.Fatalf("expected filename a.txt, got %v", fileNames)
	}
}
