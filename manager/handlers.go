package manager

import (
	"strings"
	"sync"

	"github.com/robdobsn/rdweb/reqheader"
	"github.com/robdobsn/rdweb/responder"
)

// RESTHandler matches requests by URL prefix and forwards to a
// per-method-and-path endpoint table (spec §4.7 "REST-API handler (URL
// prefix match + method mapping)"), grounded on
// original_source/src/RdWebHandlerRestAPI.h's prefix+endpoint matching.
type RESTHandler struct {
	Prefix    string
	ChannelID int
	Match     func(path string, method reqheader.Method) (responder.RESTEndpoint, bool)
}

func (h *RESTHandler) GetNewResponder(hdr *reqheader.Header) (responder.Responder, int) {
	if hdr.ConnKind != reqheader.KindHTTP {
		return nil, 0
	}
	if h.Prefix != "" && !strings.HasPrefix(hdr.URL, h.Prefix) {
		return nil, 0
	}
	ep, ok := h.Match(hdr.URL, hdr.Method)
	if !ok {
		return nil, 0
	}
	requestStr := string(hdr.Method) + " " + hdr.URL
	if hdr.Query != "" {
		requestStr += "?" + hdr.Query
	}
	source := responder.SourceInfo{ChannelID: h.ChannelID, Authorization: hdr.Get("Authorization")}
	r := responder.NewREST(ep, requestStr, hdr.ContentLength, hdr.IsMultipart, hdr.MultipartBoundary, source)
	return r, 200
}

// FileHandler serves static files under a base folder, mapping "/" to
// DefaultPath (spec §9 "File handler's default-path behavior").
type FileHandler struct {
	BaseFolder  string
	DefaultPath string
	SendBudget  int
	NewChunker  func() responder.Chunker
	resolve     func(urlPath string) (fsPath string, ok bool)
}

func NewFileHandler(baseFolder, defaultPath string, sendBudget int, resolve func(string) (string, bool)) *FileHandler {
	return &FileHandler{BaseFolder: baseFolder, DefaultPath: defaultPath, SendBudget: sendBudget, resolve: resolve}
}

func (h *FileHandler) GetNewResponder(hdr *reqheader.Header) (responder.Responder, int) {
	if hdr.ConnKind != reqheader.KindHTTP || hdr.Method != reqheader.GET {
		return nil, 0
	}
	urlPath := hdr.URL
	if urlPath == "/" {
		urlPath = h.DefaultPath
	}
	path, ok := h.resolve(urlPath)
	if !ok {
		return nil, 0
	}
	acceptGzip := strings.Contains(hdr.Get("Accept-Encoding"), "gzip")
	r := responder.NewFile(path, acceptGzip, h.SendBudget, h.NewChunker)
	if !r.IsActive() {
		return nil, 0
	}
	return r, 200
}

// channelSlot tracks one WebSocket channel-ID table entry (spec §3
// "Channel-ID table (G-owned)"), grounded on RdWebHandlerWS's
// _channelIDUsage vector.
type channelSlot struct {
	channelID int
	inUse     bool
}

// WSHandler matches WebSocket upgrade requests by URL prefix and allocates
// channel-IDs from a fixed-capacity table (spec §4.4.3, §4.7), grounded on
// original_source/src/RdWebHandlerWS.h.
type WSHandler struct {
	Prefix            string
	PingIntervalMs    int
	DisconnIfNoPongMs int
	TxQueueMax        int
	PktMaxBytes       int
	Host              responder.WSHandlerHost

	mu       sync.Mutex
	channels []channelSlot
}

// NewWSHandler builds a handler with maxConn channel-ID table entries
// (spec §6 "maxConn").
func NewWSHandler(prefix string, maxConn, pktMaxBytes, txQueueMax, pingIntervalMs, disconnIfNoPongMs int, host responder.WSHandlerHost) *WSHandler {
	channels := make([]channelSlot, maxConn)
	for i := range channels {
		channels[i].channelID = i
	}
	return &WSHandler{
		Prefix:            prefix,
		PingIntervalMs:    pingIntervalMs,
		DisconnIfNoPongMs: disconnIfNoPongMs,
		TxQueueMax:        txQueueMax,
		PktMaxBytes:       pktMaxBytes,
		Host:              host,
		channels:          channels,
	}
}

func (h *WSHandler) GetNewResponder(hdr *reqheader.Header) (responder.Responder, int) {
	if hdr.ConnKind != reqheader.KindWebSocket {
		return nil, 0
	}
	prefix := h.Prefix
	if prefix == "" {
		prefix = "ws"
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasPrefix(hdr.URL, prefix) {
		return nil, 0
	}

	h.mu.Lock()
	idx := -1
	for i := range h.channels {
		if !h.channels[i].inUse {
			idx = i
			break
		}
	}
	if idx < 0 {
		h.mu.Unlock()
		return nil, 503
	}
	h.channels[idx].inUse = true
	channelID := h.channels[idx].channelID
	h.mu.Unlock()

	release := func() {
		h.mu.Lock()
		h.channels[idx].inUse = false
		h.mu.Unlock()
	}

	r := responder.NewWebSocket(channelID, h.PingIntervalMs, h.DisconnIfNoPongMs, h.TxQueueMax, h.PktMaxBytes, h.Host, release)
	r.UpgradeReceived(hdr.WebSocketKey)
	return r, 101
}

// SSEHandler matches text/event-stream upgrade requests by URL prefix
// (spec §4.4.4, §4.7).
type SSEHandler struct {
	Prefix     string
	QueueDepth int
}

func (h *SSEHandler) GetNewResponder(hdr *reqheader.Header) (responder.Responder, int) {
	if hdr.ConnKind != reqheader.KindEvent {
		return nil, 0
	}
	if h.Prefix != "" && !strings.HasPrefix(hdr.URL, h.Prefix) {
		return nil, 0
	}
	return responder.NewSSE(h.QueueDepth), 200
}
