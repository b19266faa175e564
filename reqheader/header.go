// Package reqheader implements the incremental HTTP/1.1 request-line and
// header parser (spec §4.5) and the Request Header data model (spec §3,
// "Request Header").
//
// Grounded on the teacher's github.com/badu/http method/line constants
// (types_http.go) and header-name canonicalization (hdr package), adapted
// from the teacher's goroutine-per-connection textproto.Reader model to the
// original RdWebConnection::handleHeaderData / parseHeaderLine incremental
// line accumulator, which this package follows line for line.
package reqheader

import "strings"

// Method is one of the seven methods the spec recognizes; an unrecognized
// method fails parsing (spec §4.5 rule 2).
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	DELETE  Method = "DELETE"
	PATCH   Method = "PATCH"
	HEAD    Method = "HEAD"
	OPTIONS Method = "OPTIONS"
)

var methods = map[string]Method{
	"GET": GET, "POST": POST, "PUT": PUT, "DELETE": DELETE,
	"PATCH": PATCH, "HEAD": HEAD, "OPTIONS": OPTIONS,
}

// ConnKind classifies the connection per spec §3.
type ConnKind int

const (
	KindHTTP ConnKind = iota
	KindWebSocket
	KindEvent
)

// MaxHeaderPairs is the fixed cap on stored (name, value) pairs (spec §3,
// §4.5 rule 4).
const MaxHeaderPairs = 16

// NameValue is one parsed header line, stored verbatim for pass-through to
// handlers that need headers the parser doesn't derive a field for.
type NameValue struct {
	Name  string
	Value string
}

// Header is the per-connection parsed request header. Once Complete is
// true, no field is mutated again (spec §3 invariant).
type Header struct {
	Method         Method
	URIAndParams   string // URL-decoded
	URL            string
	Query          string
	Version        string
	NameValues     []NameValue // capped at MaxHeaderPairs

	Host               string
	ContentType        string
	ContentLength      int // -1 if absent
	IsMultipart        bool
	MultipartBoundary  string
	Authorization      string
	IsDigestAuth       bool
	ExpectContinue     bool
	WebSocketKey       string
	WebSocketVersion   string
	ConnKind           ConnKind

	gotFirstLine bool
	Complete     bool
}

func newHeader() *Header {
	return &Header{ContentLength: -1}
}

// Get returns the first stored value for name (case-insensitive), whether
// or not it is one of the derived fields; empty string if absent.
func (h *Header) Get(name string) string {
	for _, nv := range h.NameValues {
		if strings.EqualFold(nv.Name, name) {
			return nv.Value
		}
	}
	return ""
}
