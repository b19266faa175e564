package reqheader

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser is the incremental header parser driven by spec §4.5. One Parser
// is owned by a single Connection Slot for the lifetime of one request; it
// accumulates partial lines across any number of Feed calls, matching the
// original RdWebConnection::handleHeaderData/_parseHeaderStr accumulator.
type Parser struct {
	header *Header
	accum  strings.Builder
}

// NewParser returns a fresh parser for one connection.
func NewParser() *Parser {
	return &Parser{header: newHeader()}
}

// Header returns the header being built. Fields are only final once
// Header().Complete is true.
func (p *Parser) Header() *Header { return p.header }

// ErrBadRequest is returned by Feed when the request line or a header is
// malformed (spec §7 "Parse error").
type ErrBadRequest struct{ Reason string }

func (e ErrBadRequest) Error() string { return "bad request: " + e.Reason }

// Feed hands the parser the next slice of bytes read from the Transport.
// It returns the number of bytes consumed from data; any trailing bytes
// (consumed < len(data)) are either more header bytes for the next Feed
// call (if the header isn't complete yet) or the start of the request
// body (if Header().Complete became true on this call) — the caller
// (the connection slot) is responsible for routing those trailing bytes
// to the Responder in the same service tick, exactly as
// RdWebConnection::serviceConnHeader hands its leftover curBufPos on to
// responderHandleData.
//
// needsContinue is true exactly once, the instant the blank line
// terminating the headers is seen and the request carried
// "Expect: 100-continue" (spec §4.5 rule 5) — the caller must write the
// literal "HTTP/1.1 100 Continue\r\n\r\n" bytes before doing anything else.
func (p *Parser) Feed(data []byte) (consumed int, needsContinue bool, err error) {
	h := p.header
	pos := 0
	for {
		lfPos := -1
		for i := pos; i < len(data); i++ {
			if data[i] == '\n' {
				lfPos = i
				break
			}
		}
		if lfPos < 0 {
			// No newline in the remainder: stash it and wait for more.
			p.accum.Write(data[pos:])
			return len(data), false, nil
		}

		p.accum.Write(data[pos:lfPos])
		line := strings.TrimRight(p.accum.String(), "\r")
		p.accum.Reset()
		pos = lfPos + 1

		cont, lineErr := p.parseLine(line)
		if lineErr != nil {
			return pos, false, lineErr
		}
		if cont {
			needsContinue = true
		}
		if h.Complete || pos >= len(data) {
			return pos, needsContinue, nil
		}
	}
}

func (p *Parser) parseLine(line string) (needsContinue bool, err error) {
	h := p.header
	if !h.gotFirstLine {
		if line == "" {
			return false, ErrBadRequest{"empty request line"}
		}
		if err := p.parseRequestLine(line); err != nil {
			return false, err
		}
		h.gotFirstLine = true
		return false, nil
	}

	if line == "" {
		h.Complete = true
		return h.ExpectContinue, nil
	}
	p.parseNameValueLine(line)
	return false, nil
}

func (p *Parser) parseRequestLine(line string) error {
	h := p.header
	sp1 := strings.IndexByte(line, ' ')
	if sp1 < 0 {
		return ErrBadRequest{"missing method separator"}
	}
	method := line[:sp1]
	m, ok := methods[strings.ToUpper(method)]
	if !ok {
		return ErrBadRequest{"unknown method " + method}
	}
	h.Method = m

	rest := line[sp1+1:]
	sp2 := strings.IndexByte(rest, ' ')
	if sp2 < 0 {
		return ErrBadRequest{"missing version"}
	}
	uri := rest[:sp2]
	h.Version = rest[sp2+1:]

	decoded, err := DecodeURL(uri)
	if err != nil {
		return ErrBadRequest{"bad URL encoding"}
	}
	h.URIAndParams = decoded
	h.URL = decoded
	h.Query = ""
	if qPos := strings.IndexByte(decoded, '?'); qPos >= 0 {
		h.URL = decoded[:qPos]
		h.Query = decoded[qPos+1:]
	}
	return nil
}

func (p *Parser) parseNameValueLine(line string) {
	h := p.header
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return
	}
	name := line[:colon]
	val := strings.TrimPrefix(line[colon+1:], " ")

	if len(h.NameValues) < MaxHeaderPairs {
		h.NameValues = append(h.NameValues, NameValue{Name: name, Value: val})
	}

	switch {
	case strings.EqualFold(name, "Host"):
		h.Host = val
	case strings.EqualFold(name, "Content-Type"):
		ct := val
		if semi := strings.IndexByte(ct, ';'); semi >= 0 {
			ct = ct[:semi]
		}
		h.ContentType = strings.TrimSpace(ct)
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(val)), "multipart/") {
			h.IsMultipart = true
			if eq := strings.IndexByte(val, '='); eq >= 0 {
				h.MultipartBoundary = strings.Trim(val[eq+1:], `"`)
			}
		}
	case strings.EqualFold(name, "Content-Length"):
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			h.ContentLength = n
		}
	case strings.EqualFold(name, "Expect") && strings.EqualFold(strings.TrimSpace(val), "100-continue"):
		h.ExpectContinue = true
	case strings.EqualFold(name, "Authorization"):
		parseAuthorization(h, val)
	case strings.EqualFold(name, "Upgrade") && strings.EqualFold(strings.TrimSpace(val), "websocket"):
		h.ConnKind = KindWebSocket
	case strings.EqualFold(name, "Accept"):
		if strings.Contains(strings.ToLower(val), "text/event-stream") {
			h.ConnKind = KindEvent
		}
	case strings.EqualFold(name, "Sec-WebSocket-Key"):
		h.WebSocketKey = val
	case strings.EqualFold(name, "Sec-WebSocket-Version"):
		h.WebSocketVersion = val
	}
}

func parseAuthorization(h *Header, val string) {
	const basicPrefix = "basic "
	const digestPrefix = "digest "
	lower := strings.ToLower(val)
	switch {
	case strings.HasPrefix(lower, basicPrefix):
		h.Authorization = val[len(basicPrefix):]
	case strings.HasPrefix(lower, digestPrefix):
		h.IsDigestAuth = true
		h.Authorization = val[len(digestPrefix):]
	}
}

// DecodeURL implements the RFC 3986 percent-decoding plus '+'-as-space
// rule of the original decodeURL (spec §4.5 rule 2, §8 left-inverse
// property). It is a left inverse of percent-encoding on the printable
// ASCII subset 0x20..0x7E.
func DecodeURL(in string) (string, error) {
	var b strings.Builder
	b.Grow(len(in))
	for i := 0; i < len(in); i++ {
		c := in[i]
		switch c {
		case '%':
			if i+2 >= len(in) {
				return "", fmt.Errorf("truncated percent-escape")
			}
			hi, ok1 := hexVal(in[i+1])
			lo, ok2 := hexVal(in[i+2])
			if !ok1 || !ok2 {
				return "", fmt.Errorf("invalid percent-escape")
			}
			b.WriteByte(byte(hi<<4 | lo))
			i += 2
		case '+':
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
