// Package slot implements the per-connection Connection Slot state machine
// (spec §4.3): FREE -> PARSING_HEADERS -> DISPATCHING -> RESPONDING ->
// {CLOSED | UPGRADED_PERSISTENT}. It is grounded directly on the original
// RdWebConnection::service()/serviceConnHeader()/sendStandardHeaders()/
// handleResponseWithBuffer() control flow (original_source/src/
// RdWebConnection.cpp), rewritten from the C++'s raw-pointer/bufPos-cursor
// style into idiomatic Go with explicit error returns. Unlike the teacher
// (badu-http), which serves each connection on its own goroutine blocked in
// a read loop, every Tick call here does at most one bounded read and one
// bounded write cycle and returns — there is no per-connection goroutine
// (spec §5 "no slot owns a dedicated thread").
package slot

import (
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/robdobsn/rdweb/reqheader"
	"github.com/robdobsn/rdweb/responder"
	"github.com/robdobsn/rdweb/transport"
)

// State is the slot's coarse lifecycle state (spec §4.3).
type State int

const (
	Free State = iota
	ParsingHeaders
	Dispatching
	Responding
	Closed
)

const (
	// MaxStdConnDuration is the absolute per-connection cap (spec §4.3).
	MaxStdConnDuration = time.Hour
	// MaxConnIdleDuration is the since-last-activity cap (spec §4.3).
	MaxConnIdleDuration = 60 * time.Second

	readBufSize = 4096
)

// Dispatcher resolves a completed request header into a Responder (spec
// §4.7 "getNewResponder"). statusCode is meaningful only when responder is
// nil.
type Dispatcher interface {
	GetNewResponder(h *reqheader.Header) (r responder.Responder, statusCode int)
}

// ResponseHeader is one extra (name, value) pair appended to every standard
// response (spec §4.6 "every (name,value) from the Manager's configured
// response-headers list").
type ResponseHeader struct {
	Name  string
	Value string
}

// Slot drives one connection's Transport through the header-parse /
// dispatch / respond state machine.
type Slot struct {
	transport  transport.Transport
	dispatcher Dispatcher
	respHdrs   []ResponseHeader

	parser   *reqheader.Parser
	resp     responder.Responder
	state    State
	status   int
	stdHdrPending bool

	startedAt      time.Time
	lastActivityAt time.Time
	timeoutsActive bool

	sendBudget int
	readBuf    []byte

	Log *logrus.Entry
}

// New wires a freshly accepted Transport into a free slot (spec §4.3
// "setNewConn").
func New(t transport.Transport, d Dispatcher, respHdrs []ResponseHeader, sendBudget int) *Slot {
	now := time.Now()
	return &Slot{
		transport:      t,
		dispatcher:     d,
		respHdrs:       respHdrs,
		parser:         reqheader.NewParser(),
		state:          ParsingHeaders,
		status:         200,
		stdHdrPending:  true,
		startedAt:      now,
		lastActivityAt: now,
		timeoutsActive: true,
		sendBudget:     sendBudget,
		readBuf:        make([]byte, readBufSize),
		Log:            logrus.WithField("component", "slot").WithField("client", t.ClientID()),
	}
}

// IsFree reports whether the slot holds no connection.
func (s *Slot) IsFree() bool { return s.state == Free || s.state == Closed }

// ClientID surfaces the owned transport's client id for logging, or "" if
// the slot is free.
func (s *Slot) ClientID() string {
	if s.transport == nil {
		return ""
	}
	return s.transport.ClientID()
}

// Tick advances the slot by exactly one service-loop iteration (spec §4.3).
// It must return promptly: at most one Transport read and one write cycle
// (the standard headers when still pending, then one response slice, plus
// whatever the Responder's Service pushes through the raw-send callback).
func (s *Slot) Tick() {
	if s.state == Free || s.state == Closed {
		return
	}

	if s.timeoutsActive && s.timedOut() {
		s.close()
		return
	}

	checkForNewData := true
	if s.resp != nil {
		s.resp.Service()
		checkForNewData = s.resp.ReadyForData()
	}

	var buf []byte
	if checkForNewData {
		n, err := s.transport.Read(s.readBuf)
		if err != nil {
			s.close()
			return
		}
		if n > 0 {
			buf = s.readBuf[:n]
			s.lastActivityAt = time.Now()
		}
	}

	if len(buf) > 0 && s.state == ParsingHeaders {
		leftover, ok := s.serviceHeader(buf)
		if !ok {
			s.close()
			return
		}
		buf = leftover
	}

	if s.state == Dispatching {
		s.dispatch()
	}

	if s.state == Responding {
		if !s.serviceResponding(buf) {
			s.close()
			return
		}
	}

	if s.transport != nil && s.transport.ReadEnd() && s.resp == nil {
		s.close()
	}
}

// timedOut applies the wraparound-safe comparison spec §4.3 calls for:
// "a - b treated modulo 2^32 is less than d". time.Since already behaves
// correctly across Go's monotonic clock without modular arithmetic, but the
// bound is expressed the same way the original millis()-counter design
// intends: elapsed-since an anchor, never a direct two-sided compare.
func (s *Slot) timedOut() bool {
	now := time.Now()
	if now.Sub(s.startedAt) >= MaxStdConnDuration {
		return true
	}
	return now.Sub(s.lastActivityAt) >= MaxConnIdleDuration
}

// serviceHeader feeds newly arrived bytes to the Header Parser until the
// header completes or a parse error occurs (spec §4.3 PARSING_HEADERS,
// grounded on RdWebConnection::serviceConnHeader). It returns the
// unconsumed tail of buf (body bytes that arrived in the same read as the
// final header line) so the caller can hand them to the responder in this
// same tick, matching the original's single shared-cursor buffer walk.
func (s *Slot) serviceHeader(buf []byte) ([]byte, bool) {
	for len(buf) > 0 {
		n, needsContinue, err := s.parser.Feed(buf)
		if err != nil {
			s.status = 400
			s.state = Dispatching
			return nil, true
		}
		if needsContinue {
			s.transport.Write([]byte("HTTP/1.1 100 Continue\r\n\r\n"))
		}
		buf = buf[n:]
		if s.parser.Header().Complete {
			s.state = Dispatching
			return buf, true
		}
		if n == 0 {
			break
		}
	}
	return nil, true
}

// dispatch asks the Dispatcher for a Responder (spec §4.3 DISPATCHING).
func (s *Slot) dispatch() {
	h := s.parser.Header()
	if s.status == 400 {
		s.state = Responding
		return
	}
	r, status := s.dispatcher.GetNewResponder(h)
	if r == nil {
		if status == 0 {
			status = 404
		}
		s.status = status
		s.state = Responding
		s.Log.WithField("url", h.URL).WithField("status", status).Debug("no responder matched")
		return
	}
	s.resp = r
	s.status = 200
	s.Log.WithField("url", h.URL).WithField("type", r.GetResponderType()).Debug("dispatched")
	r.StartResponding(s.rawSend)
	if r.LeaveConnOpen() {
		s.timeoutsActive = false
	}
	s.state = Responding
}

// serviceResponding implements RESPONDING's five steps (spec §4.3).
func (s *Slot) serviceResponding(buf []byte) bool {
	if s.resp != nil && len(buf) > 0 && s.parser.Header().Complete {
		if !s.resp.HandleData(buf) {
			return false
		}
		s.lastActivityAt = time.Now()
	}

	if s.resp != nil && s.resp.IsStdHeaderRequired() && s.stdHdrPending {
		if !s.sendStandardHeaders() {
			return false
		}
		s.stdHdrPending = false
	} else if s.resp == nil && s.stdHdrPending {
		if !s.sendStandardHeadersNoResponder() {
			return false
		}
		s.stdHdrPending = false
	}

	if s.resp == nil {
		return false // no responder: standard headers sent, slot closes
	}

	out := s.resp.GetResponseNext(s.sendBudget)
	if len(out) > 0 {
		if _, err := s.transport.Write(out); err != nil {
			return false
		}
		s.lastActivityAt = time.Now()
	}

	if !s.resp.IsActive() {
		return s.resp.LeaveConnOpen()
	}
	return true
}

// rawSend is the bound write function handed to Responders that push data
// outside the GetResponseNext pull path (WebSocket, SSE).
func (s *Slot) rawSend(buf []byte) (int, error) {
	return s.transport.Write(buf)
}

// sendStandardHeaders emits the status line, content-type, configured extra
// headers, content-length, and connection header (spec §4.6), grounded on
// RdWebConnection::sendStandardHeaders.
func (s *Slot) sendStandardHeaders() bool {
	var out []byte
	out = append(out, []byte("HTTP/1.1 "+strconv.Itoa(s.status)+" "+reasonPhrase(s.status)+"\r\n")...)
	if ct := s.resp.GetContentType(); ct != "" {
		out = append(out, []byte("Content-Type: "+ct+"\r\n")...)
	}
	if enc, ok := s.resp.(responder.ContentEncoder); ok {
		if ce := enc.GetContentEncoding(); ce != "" {
			out = append(out, []byte("Content-Encoding: "+ce+"\r\n")...)
		}
	}
	for _, h := range s.respHdrs {
		out = append(out, []byte(h.Name+": "+h.Value+"\r\n")...)
	}
	if cl := s.resp.GetContentLength(); cl >= 0 {
		out = append(out, []byte("Content-Length: "+strconv.Itoa(cl)+"\r\n")...)
	}
	if !s.resp.LeaveConnOpen() {
		out = append(out, []byte("Connection: close\r\n")...)
	}
	out = append(out, []byte("\r\n")...)
	_, err := s.transport.Write(out)
	return err == nil
}

// sendStandardHeadersNoResponder emits just the status line and connection
// header when no Responder could be selected (spec §4.3 DISPATCHING "If
// none, set status ... and proceed to RESPONDING to emit just standard
// headers").
func (s *Slot) sendStandardHeadersNoResponder() bool {
	out := []byte("HTTP/1.1 " + strconv.Itoa(s.status) + " " + reasonPhrase(s.status) + "\r\nConnection: close\r\n\r\n")
	_, err := s.transport.Write(out)
	return err == nil
}

func (s *Slot) close() {
	s.Log.Debug("closing slot")
	if s.resp != nil {
		s.resp = nil
	}
	if s.transport != nil {
		s.transport.Close()
		s.transport = nil
	}
	s.state = Closed
}

// Clear resets a closed slot back to Free so the Manager can reuse it.
func (s *Slot) Clear() {
	*s = Slot{state: Free}
}

// State exposes the current lifecycle state for diagnostics/tests.
func (s *Slot) State() State { return s.state }

// Responder exposes the slot's current Responder (nil if none yet), used
// by the Manager's broadcast helpers to locate live WebSocket/SSE
// responders by channel-ID (spec §4.7).
func (s *Slot) Responder() responder.Responder { return s.resp }

var reasonPhrases = map[int]string{
	100: "Continue",
	200: "OK",
	400: "Bad Request",
	404: "Not Found",
	503: "Service Unavailable",
}

func reasonPhrase(code int) string {
	if r, ok := reasonPhrases[code]; ok {
		return r
	}
	return "Unknown"
}
