// Package responder implements the four Responder variants (spec §4.4): a
// REST-API JSON endpoint adapter, a static-file streamer, a WebSocket
// channel, and a Server-Sent Events channel. The shared contract is kept as
// a plain Go interface rather than a class hierarchy — the spec calls for a
// tagged variant (a sum type) rather than virtual dispatch (§9 "Polymorphism
// over Responder variants"); GetResponderType() reports the tag, and
// variant-specific capabilities (SendFrame, SendEvent, GetContentEncoding)
// are reached through the optional interfaces below, which the Manager and
// the Connection Slot type-assert.
package responder

// Type tags which Responder variant a Slot is currently driving.
type Type int

const (
	TypeRESTAPI Type = iota
	TypeFile
	TypeWebSocket
	TypeSSE
)

func (t Type) String() string {
	switch t {
	case TypeRESTAPI:
		return "rest-api"
	case TypeFile:
		return "file"
	case TypeWebSocket:
		return "websocket"
	case TypeSSE:
		return "sse"
	default:
		return "unknown"
	}
}

// RawSend is the bound write function a Responder uses to push bytes
// through its Slot's Transport without knowing the Transport variant (spec
// §9 "Raw-send callback"). It returns the number of bytes accepted.
type RawSend func(buf []byte) (int, error)

// Responder is the common contract every variant satisfies (spec §4.4).
type Responder interface {
	// HandleData feeds received body bytes. Returning false forces the
	// slot to close the connection.
	HandleData(buf []byte) bool

	// StartResponding latches the responder into its active state. send
	// is the raw-send callback bound to the owning slot's Transport,
	// used by variants (WebSocket, SSE) that push data outside the
	// normal GetResponseNext pull path.
	StartResponding(send RawSend) bool

	// GetResponseNext produces up to maxLen bytes of response body, not
	// including standard headers. Zero bytes does not imply inactive.
	GetResponseNext(maxLen int) []byte

	// Service advances internal timers/queues, draining outbound buffers
	// through the raw-send callback given to StartResponding.
	Service()

	IsActive() bool
	IsStdHeaderRequired() bool
	GetContentType() string
	// GetContentLength returns -1 if unknown.
	GetContentLength() int
	LeaveConnOpen() bool
	ReadyForData() bool
	GetResponderType() Type
}

// ChannelOwner is implemented by Responders that occupy a channel-ID table
// entry (WebSocket today; SSE may in the future).
type ChannelOwner interface {
	GetChannelID() int
}

// FrameSender is the optional WebSocket broadcast capability (spec §4.4
// "optional sendFrame(bytes)").
type FrameSender interface {
	SendFrame(buf []byte) bool
}

// EventSender is the optional SSE broadcast capability (spec §4.4 "optional
// sendEvent(content, group)").
type EventSender interface {
	SendEvent(content, group string) bool
}

// ContentEncoder is the optional capability a Responder implements when it
// may need to add a Content-Encoding header (File, when it served a ".gz"
// sibling instead of the requested file verbatim — spec §4.4.2). Returning
// "" means no Content-Encoding header is emitted.
type ContentEncoder interface {
	GetContentEncoding() string
}
