// Package manager implements the Connection Manager (spec §4.7): the fixed
// slot pool, the ordered handler list, routing of completed headers to a
// Responder, and the broadcast helpers producers use to push WebSocket
// frames and SSE events into live Responders. It is grounded on
// original_source/src/RdWebConnManager.h's handler-iteration and
// channel-ID-table design, reworked around Go's responder.Responder
// interface and transport.Transport rather than raw pointers.
package manager

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/robdobsn/rdweb/reqheader"
	"github.com/robdobsn/rdweb/responder"
	"github.com/robdobsn/rdweb/slot"
	"github.com/robdobsn/rdweb/transport"
)

// Handler matches a completed request header against whatever criteria it
// owns (URL prefix, method, Upgrade kind, ...) and produces a Responder
// (spec §4.7 "Handler set").
type Handler interface {
	// GetNewResponder returns (nil, 0) to decline the request so the
	// Manager tries the next handler; a non-zero status overrides the
	// eventual 404 default (503 for WS channel exhaustion).
	GetNewResponder(h *reqheader.Header) (responder.Responder, int)
}

// Manager owns the fixed-size slot pool and the ordered handler list (spec
// §4.7).
type Manager struct {
	mu       sync.Mutex
	slots    []*slot.Slot
	handlers []Handler
	respHdrs []slot.ResponseHeader
	sendBudget int

	Log *logrus.Entry

	// OnWSQueueDrop, if set, is called once per outbound WebSocket message
	// dropped because a responder's queue was full (wired to
	// metrics.Metrics.IncWSQueueDrop when metrics are enabled).
	OnWSQueueDrop func()
}

// New builds a Manager with numConnSlots free slots (spec §6
// "numConnSlots").
func New(numConnSlots int, sendBudget int, respHdrs []slot.ResponseHeader) *Manager {
	return &Manager{
		slots:      make([]*slot.Slot, numConnSlots),
		respHdrs:   respHdrs,
		sendBudget: sendBudget,
		Log:        logrus.WithField("component", "manager"),
	}
}

// AddHandler appends to the ordered handler list (spec §4.7 "addHandler").
func (m *Manager) AddHandler(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, h)
}

// HandoffNewConn finds a free slot for t and returns true, or returns false
// if every slot is occupied so the Listener destroys the Transport (spec
// §4.2, §4.7 "handoffNewConn").
func (m *Manager) HandoffNewConn(t transport.Transport) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.slots {
		if s == nil || s.IsFree() {
			m.slots[i] = slot.New(t, m, m.respHdrs, m.sendBudget)
			m.Log.WithField("client", t.ClientID()).WithField("slot", i).Debug("accepted connection")
			return true
		}
	}
	m.Log.WithField("client", t.ClientID()).Warn("no free slot, rejecting connection")
	return false
}

// Service round-robin ticks every occupied slot (spec §4.7 "service()").
func (m *Manager) Service() {
	m.mu.Lock()
	slots := make([]*slot.Slot, len(m.slots))
	copy(slots, m.slots)
	m.mu.Unlock()

	for i, s := range slots {
		if s == nil {
			continue
		}
		s.Tick()
		if s.State() == slot.Closed {
			m.mu.Lock()
			m.slots[i] = nil
			m.mu.Unlock()
		}
	}
}

// NumLiveSlots reports the currently occupied slot count (spec §8
// "numLiveSlots <= numConnSlots").
func (m *Manager) NumLiveSlots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.slots {
		if s != nil && !s.IsFree() {
			n++
		}
	}
	return n
}

// GetNewResponder implements slot.Dispatcher: it iterates handlers in
// order, returning the first non-nil Responder (spec §4.7
// "getNewResponder"), defaulting to 404 when none match.
func (m *Manager) GetNewResponder(h *reqheader.Header) (responder.Responder, int) {
	m.mu.Lock()
	handlers := make([]Handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, handler := range handlers {
		if r, status := handler.GetNewResponder(h); r != nil {
			return r, status
		} else if status != 0 {
			return nil, status
		}
	}
	return nil, 404
}

// liveWebSockets returns every currently active WebSocket responder,
// optionally filtered to one channelID.
func (m *Manager) liveWebSockets(wantChannelID int, allChannels bool) []responder.FrameSender {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []responder.FrameSender
	for _, s := range m.slots {
		if s == nil {
			continue
		}
		fs, ok := s.Responder().(responder.FrameSender)
		if !ok {
			continue
		}
		co, ok := s.Responder().(responder.ChannelOwner)
		if !ok {
			continue
		}
		if allChannels || co.GetChannelID() == wantChannelID {
			out = append(out, fs)
		}
	}
	return out
}

// SendMsg broadcasts buf to one WebSocket channel, or to all of them when
// allChannels is true (spec §4.7 "sendMsg").
func (m *Manager) SendMsg(buf []byte, allChannels bool, channelID int) bool {
	sent := false
	for _, fs := range m.liveWebSockets(channelID, allChannels) {
		if fs.SendFrame(buf) {
			sent = true
		} else if m.OnWSQueueDrop != nil {
			m.OnWSQueueDrop()
		}
	}
	return sent
}

// ServerSideEventsSendMsg broadcasts an SSE event to every live SSE
// responder (spec §4.7 "serverSideEventsSendMsg").
func (m *Manager) ServerSideEventsSendMsg(content, group string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := false
	for _, s := range m.slots {
		if s == nil {
			continue
		}
		if es, ok := s.Responder().(responder.EventSender); ok {
			if es.SendEvent(content, group) {
				sent = true
			}
		}
	}
	return sent
}

// CanSend reports whether a live WebSocket Responder owns channelID (spec
// §4.7 "canSend"); noConn is true when none does. It does not check whether
// that Responder's outbound queue has room, so a later SendMsg can still
// fail with ok == true here.
func (m *Manager) CanSend(channelID int) (ok bool, noConn bool) {
	fsList := m.liveWebSockets(channelID, false)
	if len(fsList) == 0 {
		return false, true
	}
	return true, false
}
