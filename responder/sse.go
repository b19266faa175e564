package responder

import (
	"time"

	"github.com/robdobsn/rdweb/queue"
	"github.com/robdobsn/rdweb/sse"
)

// NowFunc stamps SSE event IDs (spec §4.4.4 "id: <epoch-seconds>"). A var so
// tests can pin it.
var NowFunc = func() int64 { return time.Now().Unix() }

// sseHeader is the literal header block spec §4.4.4 requires on the first
// GetResponseNext call.
const sseHeader = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/event-stream\r\n" +
	"Cache-Control: no-cache\r\n" +
	"Connection: keep-alive\r\n" +
	"Access-Control-Allow-Origin: *\r\n" +
	"Accept-Ranges: none\r\n\r\n"

// SSE implements the Server-Sent Events Responder variant (spec §4.4.4).
type SSE struct {
	outbound            *queue.Bounded[sse.Event]
	initialResponseSent bool
	active              bool
	send                RawSend
}

// NewSSE allocates the bounded outbound event queue (EVENT_TX_QUEUE_SIZE).
func NewSSE(queueDepth int) *SSE {
	return &SSE{
		outbound: queue.New[sse.Event](queueDepth),
		active:   true,
	}
}

func (s *SSE) HandleData([]byte) bool { return true }

func (s *SSE) StartResponding(send RawSend) bool {
	s.send = send
	return true
}

// GetResponseNext serves the literal event-stream header block exactly
// once (spec §4.4.4); subsequent calls return nothing since events are
// pushed from Service via the raw-send callback, not pulled here.
func (s *SSE) GetResponseNext(maxLen int) []byte {
	if s.initialResponseSent {
		return nil
	}
	s.initialResponseSent = true
	out := []byte(sseHeader)
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

// Service dequeues one event and writes its formatted form through the
// raw-send callback (spec §4.4.4).
func (s *SSE) Service() {
	if !s.initialResponseSent || s.send == nil {
		return
	}
	ev, ok := s.outbound.Get()
	if !ok {
		return
	}
	formatted := sse.Format(ev, NowFunc())
	if _, err := s.send([]byte(formatted)); err != nil {
		s.active = false
	}
}

func (s *SSE) IsActive() bool { return s.active }

func (s *SSE) IsStdHeaderRequired() bool { return false }

func (s *SSE) GetContentType() string { return "text/event-stream" }

func (s *SSE) GetContentLength() int { return -1 }

func (s *SSE) LeaveConnOpen() bool { return true }

func (s *SSE) ReadyForData() bool { return true }

func (s *SSE) GetResponderType() Type { return TypeSSE }

// SendEvent enqueues (content, group) for delivery on a future Service tick
// (spec §4.4.4).
func (s *SSE) SendEvent(content, group string) bool {
	return s.outbound.Put(sse.Event{Group: group, Content: content}, defaultQueuePutWait)
}
