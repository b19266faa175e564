package responder

import (
	"time"

	"github.com/robdobsn/rdweb/queue"
	"github.com/robdobsn/rdweb/wsproto"
)

// defaultQueuePutWait is the bounded-queue blocking-put timeout shared by
// WebSocket and SSE outbound queues (spec §4.4.3 "blocking with 2 ms
// timeout").
const defaultQueuePutWait = 2 * time.Millisecond

// WSHandlerHost is the set of host callbacks a WebSocket Responder
// defers to (spec §6 "canAcceptRxMsgCB", "rxMsgCB").
type WSHandlerHost interface {
	CanAcceptRxMsg(channelID int) bool
	OnRxMsg(channelID int, buf []byte)
}

// WebSocket implements the WebSocket Responder variant (spec §4.4.3).
type WebSocket struct {
	channelID     int
	link          wsproto.Link
	outbound      *queue.Bounded[[]byte]
	packetMaxBytes int
	host          WSHandlerHost
	releaseChannel func()

	active bool
	send   RawSend
}

// NewWebSocket allocates the outbound queue and link for one accepted
// upgrade. releaseChannel is called exactly once, when the responder
// becomes inactive, to free the channel-ID table entry (spec §3
// "destruction releases it").
func NewWebSocket(channelID int, pingIntervalMs int, disconnIfNoPongMs int, queueDepth int, packetMaxBytes int, host WSHandlerHost, releaseChannel func()) *WebSocket {
	w := &WebSocket{
		channelID:      channelID,
		outbound:       queue.New[[]byte](queueDepth),
		packetMaxBytes: packetMaxBytes,
		host:           host,
		releaseChannel: releaseChannel,
		active:         true,
	}
	w.link.Setup(w.onEvent, pingIntervalMs, true, disconnIfNoPongMs)
	return w
}

func (w *WebSocket) onEvent(code wsproto.EventCode, payload []byte) {
	switch code {
	case wsproto.EventText, wsproto.EventBinary:
		if w.host != nil {
			w.host.OnRxMsg(w.channelID, payload)
		}
	case wsproto.EventDisconnectExternal, wsproto.EventDisconnectInternal, wsproto.EventDisconnectError:
		w.deactivate()
	}
}

func (w *WebSocket) deactivate() {
	if !w.active {
		return
	}
	w.active = false
	if w.releaseChannel != nil {
		w.releaseChannel()
	}
}

// StartResponding stores the raw-send callback used by Service. The 101
// handshake is already queued by then: the handler calls UpgradeReceived
// with the Sec-WebSocket-Key right after constructing the responder.
func (w *WebSocket) StartResponding(send RawSend) bool {
	w.send = send
	return true
}

// UpgradeReceived is called by the caller (the handler constructing this
// responder) once it has the parsed header's WebSocket key.
func (w *WebSocket) UpgradeReceived(key string) {
	w.link.UpgradeReceived(key)
}

func (w *WebSocket) HandleData(buf []byte) bool {
	w.link.HandleRxData(buf)
	return w.link.IsActive() || w.active
}

func (w *WebSocket) GetResponseNext(maxLen int) []byte {
	return w.link.GetTxData(maxLen)
}

// Service drains at most one queued outbound message per tick into the
// Link, advances ping/pong liveness, then flushes wire bytes through the
// raw-send callback (spec §4.4.3 "service() dequeues one and calls
// Link.sendMsg").
func (w *WebSocket) Service() {
	w.link.Service()
	if !w.link.IsActive() {
		w.deactivate()
	}
	if msg, ok := w.outbound.Get(); ok {
		if !w.link.SendMsg(wsproto.OpBinary, msg) {
			w.deactivate()
		}
	}
	if w.send == nil {
		return
	}
	for {
		out := w.link.GetTxData(4096)
		if len(out) == 0 {
			return
		}
		if _, err := w.send(out); err != nil {
			w.deactivate()
			return
		}
	}
}

func (w *WebSocket) IsActive() bool { return w.active || w.link.IsActive() }

func (w *WebSocket) IsStdHeaderRequired() bool { return false }

func (w *WebSocket) GetContentType() string { return "" }

func (w *WebSocket) GetContentLength() int { return -1 }

func (w *WebSocket) LeaveConnOpen() bool { return true }

func (w *WebSocket) ReadyForData() bool {
	if w.host != nil {
		return w.host.CanAcceptRxMsg(w.channelID)
	}
	return true
}

func (w *WebSocket) GetResponderType() Type { return TypeWebSocket }

func (w *WebSocket) GetChannelID() int { return w.channelID }

// SendFrame enqueues one outbound message, rejecting it if it exceeds
// packetMaxBytes (spec §4.4.3).
func (w *WebSocket) SendFrame(buf []byte) bool {
	if len(buf) > w.packetMaxBytes {
		return false
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	return w.outbound.Put(cp, defaultQueuePutWait)
}
