package responder

import (
	"github.com/robdobsn/rdweb/multipart"
)

// RESTEndpoint is the host-provided descriptor matched by the REST-API
// handler (spec §4.4.1, §6 "matchEndpointCB(path, method) -> endpoint").
// Every function field is optional except Fn.
type RESTEndpoint struct {
	// Fn is called exactly once, after the full body has arrived, and
	// produces the JSON response string.
	Fn func(requestStr string, sourceInfo SourceInfo) (response string, err error)

	// FnBody is called once per inbound non-multipart body chunk as it
	// arrives.
	FnBody func(requestStr string, buf []byte, cursor, totalLen int, sourceInfo SourceInfo)

	// FnChunk is called once per (part, fragment) tuple for multipart
	// bodies.
	FnChunk func(requestStr string, chunk multipart.Chunk, sourceInfo SourceInfo)

	// FnIsReady, if set, gates ReadyForData.
	FnIsReady func() bool
}

// SourceInfo identifies the channel a REST request arrived on (spec §6
// "restAPIChannelID"), plus the raw Authorization header value so an
// endpoint can extract Basic/Digest/Bearer credentials without needing
// access to the full request header.
type SourceInfo struct {
	ChannelID     int
	Authorization string
}

// REST implements the REST-API Responder variant (spec §4.4.1).
type REST struct {
	endpoint    RESTEndpoint
	requestStr  string
	source      SourceInfo
	contentLen  int // -1 if unknown
	isMultipart bool
	mp          *multipart.Parser

	received int
	response []byte
	cursor   int
	ranFn    bool
	active   bool
	fnErr    bool
}

// NewREST constructs a REST-API responder for one request.
func NewREST(ep RESTEndpoint, requestStr string, contentLen int, isMultipart bool, boundary string, source SourceInfo) *REST {
	r := &REST{
		endpoint:    ep,
		requestStr:  requestStr,
		source:      source,
		contentLen:  contentLen,
		isMultipart: isMultipart,
		active:      true,
	}
	if isMultipart {
		r.mp = multipart.NewParser(boundary, r.onChunk)
	}
	return r
}

func (r *REST) onChunk(c multipart.Chunk) {
	if r.endpoint.FnChunk != nil {
		r.endpoint.FnChunk(r.requestStr, c, r.source)
	}
}

func (r *REST) HandleData(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if r.isMultipart {
		if err := r.mp.Feed(buf); err != nil {
			r.active = false
			return false
		}
	} else if r.endpoint.FnBody != nil {
		r.endpoint.FnBody(r.requestStr, buf, r.received, r.contentLen, r.source)
	}
	r.received += len(buf)
	if r.contentLen >= 0 && r.received >= r.contentLen {
		r.runEndpoint()
	}
	return true
}

func (r *REST) runEndpoint() {
	if r.ranFn {
		return
	}
	r.ranFn = true
	if r.endpoint.Fn == nil {
		r.response = []byte("{}")
		return
	}
	resp, err := r.endpoint.Fn(r.requestStr, r.source)
	if err != nil {
		r.fnErr = true
		r.active = false
		return
	}
	r.response = []byte(resp)
}

func (r *REST) StartResponding(RawSend) bool {
	if r.contentLen <= 0 {
		r.runEndpoint()
	}
	return true
}

func (r *REST) GetResponseNext(maxLen int) []byte {
	if !r.ranFn {
		r.runEndpoint()
	}
	if r.cursor >= len(r.response) {
		r.active = false
		return nil
	}
	end := r.cursor + maxLen
	if end > len(r.response) {
		end = len(r.response)
	}
	out := r.response[r.cursor:end]
	r.cursor = end
	if r.cursor >= len(r.response) {
		r.active = false
	}
	return out
}

func (r *REST) Service() {}

func (r *REST) IsActive() bool { return r.active }

func (r *REST) IsStdHeaderRequired() bool { return true }

func (r *REST) GetContentType() string { return "text/json" }

// GetContentLength lazily runs the endpoint if it has not been run yet
// (spec §4.4.1 "getContentLength lazily invokes the endpoint if not yet
// called"), since the response length isn't known until Fn has produced it.
func (r *REST) GetContentLength() int {
	if !r.ranFn {
		r.runEndpoint()
	}
	if r.fnErr {
		return -1
	}
	return len(r.response)
}

func (r *REST) LeaveConnOpen() bool { return false }

func (r *REST) ReadyForData() bool {
	if r.endpoint.FnIsReady != nil {
		return r.endpoint.FnIsReady()
	}
	return true
}

func (r *REST) GetResponderType() Type { return TypeRESTAPI }
