package wsproto

import (
	"time"

	"golang.org/x/time/rate"
)

// State is the Link's lifecycle state (spec §4.8).
type State int

const (
	AwaitingUpgrade State = iota
	Open
	Closing
	Closed
)

// EventCode is the inbound event taxonomy a Link reports to its owner
// (spec §4.4.3: "emits events {CONNECT, DISCONNECT_EXTERNAL,
// DISCONNECT_INTERNAL, DISCONNECT_ERROR, TEXT, BINARY, PING, PONG}").
type EventCode int

const (
	EventConnect EventCode = iota
	EventDisconnectExternal
	EventDisconnectInternal
	EventDisconnectError
	EventText
	EventBinary
	EventPing
	EventPong
)

// EventCB receives Link lifecycle and message events. payload is nil for
// the connect/disconnect events.
type EventCB func(code EventCode, payload []byte)

// Link is one WebSocket connection's framing and liveness state machine.
// Outbound frames are accumulated into an internal byte buffer drained by
// GetTxData (mirroring the original RdWebSocketLink::getTxData pull model
// the Responder layers on top of); inbound bytes are fed via HandleRxData.
type Link struct {
	state State
	cb    EventCB

	rxBuf []byte // accumulator across partial Transport reads
	fragOpcode Opcode
	fragPayload []byte
	haveFrag bool

	txBuf []byte

	pingLimiter      *rate.Limiter
	pingEnabled      bool
	disconnIfNoPongD time.Duration
	lastPongAt       time.Time
	awaitingPong     bool
}

// Setup wires the event callback and the ping/pong liveness parameters
// (spec §4.8 "Pings at pingIntervalMs; absence of pong beyond
// disconnIfNoPongMs drives a disconnect event").
func (l *Link) Setup(cb EventCB, pingIntervalMs int, serverSide bool, disconnIfNoPongMs int) {
	l.cb = cb
	l.state = AwaitingUpgrade
	if pingIntervalMs > 0 {
		l.pingEnabled = true
		l.pingLimiter = rate.NewLimiter(rate.Every(time.Duration(pingIntervalMs)*time.Millisecond), 1)
	}
	l.disconnIfNoPongD = time.Duration(disconnIfNoPongMs) * time.Millisecond
	l.lastPongAt = time.Now()
}

// UpgradeReceived transitions AwaitingUpgrade -> Open and enqueues the 101
// response built from the client's Sec-WebSocket-Key (spec §4.8). The
// Sec-WebSocket-Version value is not inspected.
func (l *Link) UpgradeReceived(key string) {
	l.txBuf = append(l.txBuf, HandshakeResponse(key)...)
	l.state = Open
	if l.cb != nil {
		l.cb(EventConnect, nil)
	}
}

// IsActive reports whether the link can still send/receive.
func (l *Link) IsActive() bool { return l.state == Open || l.state == Closing }

// HandleRxData feeds newly received bytes to the frame parser, reassembles
// fragmented messages, auto-responds to PING with PONG, and reports events
// via the callback given to Setup.
func (l *Link) HandleRxData(buf []byte) {
	if l.state != Open && l.state != Closing {
		return
	}
	l.rxBuf = append(l.rxBuf, buf...)
	frames, offset, err := parseFrames(l.rxBuf)
	if err != nil {
		l.state = Closed
		if l.cb != nil {
			l.cb(EventDisconnectError, nil)
		}
		l.rxBuf = nil
		return
	}
	// Keep only the unconsumed tail.
	if offset > 0 {
		remaining := len(l.rxBuf) - offset
		copy(l.rxBuf, l.rxBuf[offset:])
		l.rxBuf = l.rxBuf[:remaining]
	}

	for _, f := range frames {
		l.handleFrame(f)
		if l.state == Closed {
			return
		}
	}
}

func (l *Link) handleFrame(f Frame) {
	switch f.Opcode {
	case OpText, OpBinary:
		if !f.Fin {
			l.haveFrag = true
			l.fragOpcode = f.Opcode
			l.fragPayload = append([]byte(nil), f.Payload...)
			return
		}
		l.deliverMessage(f.Opcode, f.Payload)
	case OpContinuation:
		if !l.haveFrag {
			return
		}
		l.fragPayload = append(l.fragPayload, f.Payload...)
		if f.Fin {
			opcode := l.fragOpcode
			payload := l.fragPayload
			l.haveFrag = false
			l.fragPayload = nil
			l.deliverMessage(opcode, payload)
		}
	case OpPing:
		l.txBuf = append(l.txBuf, buildFrame(OpPong, f.Payload)...)
		if l.cb != nil {
			l.cb(EventPing, f.Payload)
		}
	case OpPong:
		l.lastPongAt = time.Now()
		l.awaitingPong = false
		if l.cb != nil {
			l.cb(EventPong, nil)
		}
	case OpClose:
		l.txBuf = append(l.txBuf, buildFrame(OpClose, f.Payload)...)
		l.state = Closed
		if l.cb != nil {
			l.cb(EventDisconnectExternal, nil)
		}
	}
}

func (l *Link) deliverMessage(opcode Opcode, payload []byte) {
	if l.cb == nil {
		return
	}
	if opcode == OpText {
		l.cb(EventText, payload)
	} else {
		l.cb(EventBinary, payload)
	}
}

// SendMsg enqueues one unmasked, single-fragment outbound message (spec
// §4.8 "Outgoing frames are unmasked, single-fragment per message").
func (l *Link) SendMsg(opcode Opcode, payload []byte) bool {
	if l.state != Open {
		return false
	}
	l.txBuf = append(l.txBuf, buildFrame(opcode, payload)...)
	return true
}

// Service advances the ping timer, sending a ping frame when due and
// raising DISCONNECT_INTERNAL when the pong deadline has passed (spec §4.8).
func (l *Link) Service() {
	if l.state != Open {
		return
	}
	if l.awaitingPong && l.disconnIfNoPongD > 0 && time.Since(l.lastPongAt) > l.disconnIfNoPongD {
		l.state = Closed
		if l.cb != nil {
			l.cb(EventDisconnectInternal, nil)
		}
		return
	}
	if l.pingEnabled && l.pingLimiter.Allow() {
		l.txBuf = append(l.txBuf, buildFrame(OpPing, nil)...)
		l.awaitingPong = true
	}
}

// GetTxData drains up to bufMaxLen bytes of pending outbound wire data.
func (l *Link) GetTxData(bufMaxLen int) []byte {
	if len(l.txBuf) == 0 {
		return nil
	}
	n := len(l.txBuf)
	if n > bufMaxLen {
		n = bufMaxLen
	}
	out := l.txBuf[:n]
	l.txBuf = l.txBuf[n:]
	return out
}
