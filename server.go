// Package rdweb wires the Listener and Manager into one running service
// (spec §5 "two cooperating tasks"): a dedicated listener goroutine loops
// on accept, and a dedicated service goroutine repeatedly ticks every slot.
// Grounded on original_source/src/RdWebServer.cpp's begin()/service() split,
// translated to Go's goroutine-plus-errgroup idiom rather than the
// original's FreeRTOS task pair.
package rdweb

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/robdobsn/rdweb/config"
	"github.com/robdobsn/rdweb/listener"
	"github.com/robdobsn/rdweb/manager"
	"github.com/robdobsn/rdweb/metrics"
	"github.com/robdobsn/rdweb/responder"
	"github.com/robdobsn/rdweb/slot"
	"github.com/robdobsn/rdweb/webroot"
)

// serviceTick is how often the service goroutine ticks every slot when none
// of them have work pending. The original FreeRTOS task yields with a
// vTaskDelay of a few ms between service() calls; this is that delay's Go
// equivalent.
const serviceTick = 2 * time.Millisecond

// Server bundles a Manager, its Listener, and (optionally) a Prometheus
// metrics exporter into the unit spec §5 describes as "the web server".
type Server struct {
	Config   *config.Config
	Manager  *manager.Manager
	Listener *listener.Listener
	Metrics  *metrics.Metrics
	Log      *logrus.Entry

	resolver *webroot.Resolver
}

// New builds a Server from cfg and registers only the file handler (when
// cfg.EnableFileServer is set); callers add REST, WebSocket and SSE
// handlers via AddRESTHandler, AddWebSocketHandler and AddSSEHandler before
// calling Run.
func New(cfg *config.Config, log *logrus.Entry) (*Server, error) {
	if log == nil {
		log = logrus.WithField("component", "rdweb")
	}

	respHdrs := []slot.ResponseHeader{
		{Name: "Server", Value: "rdweb"},
	}
	mgr := manager.New(cfg.NumConnSlots, cfg.SendBufferMaxLen, respHdrs)

	s := &Server{
		Config:  cfg,
		Manager: mgr,
		Log:     log,
	}

	if cfg.EnableFileServer {
		resolver, err := webroot.NewResolver(cfg.WebRoot, cfg.DefaultPath)
		if err != nil {
			return nil, err
		}
		s.resolver = resolver
		mgr.AddHandler(manager.NewFileHandler(cfg.WebRoot, cfg.DefaultPath, cfg.SendBufferMaxLen, resolver.Resolve))
	}

	if cfg.MetricsEnabled {
		s.Metrics = metrics.New(cfg.MetricsAddr)
		mgr.OnWSQueueDrop = s.Metrics.IncWSQueueDrop
	}

	s.Listener = listener.New(cfg.ServerTCPPort, mgr.HandoffNewConn, log.WithField("component", "listener"))

	return s, nil
}

// AddRESTHandler registers a REST-API handler (spec §4.7 "addHandler").
func (s *Server) AddRESTHandler(h *manager.RESTHandler) {
	s.Manager.AddHandler(h)
}

// AddWebSocketHandler registers one of the config's configured WebSocket
// prefixes against host, which implements the application's message
// handling (spec §4.4.3, §6 "webSockets[]").
func (s *Server) AddWebSocketHandler(prefix string, host responder.WSHandlerHost) error {
	for _, w := range s.Config.WebSockets {
		if w.Prefix != prefix {
			continue
		}
		s.Manager.AddHandler(manager.NewWSHandler(w.Prefix, w.MaxConn, w.PktMaxBytes, w.TxQueueMax,
			s.Config.PingIntervalMs, s.Config.DisconnIfNoPongMs, host))
		return nil
	}
	return errUnknownWSPrefix(prefix)
}

// AddSSEHandler registers an SSE handler under prefix (spec §4.4.4).
func (s *Server) AddSSEHandler(prefix string, queueDepth int) {
	s.Manager.AddHandler(&manager.SSEHandler{Prefix: prefix, QueueDepth: queueDepth})
}

// Run blocks until ctx is cancelled, supervising the listener and service
// goroutines together: either one returning an error stops both (spec §5
// "the two tasks run for the lifetime of the server").
func (s *Server) Run(ctx context.Context) error {
	stop := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Listener.Run(stop)
	})

	if s.Metrics != nil {
		g.Go(func() error {
			return s.Metrics.Run(ctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(serviceTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(stop)
				return nil
			case <-ticker.C:
				s.Manager.Service()
				if s.Metrics != nil {
					s.Metrics.SetLiveSlots(s.Manager.NumLiveSlots())
				}
			}
		}
	})

	err := g.Wait()
	if s.resolver != nil {
		s.resolver.Close()
	}
	return err
}

type errUnknownWSPrefix string

func (e errUnknownWSPrefix) Error() string {
	return "rdweb: no configured websocket handler for prefix " + string(e)
}
