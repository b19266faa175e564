// Package listener implements the accept loop (spec §4.2, Component B):
// bind with retry backoff, construct a Transport per accepted socket, and
// offer it to the Manager via HandoffNewConn. It is grounded directly on
// original_source/src/RdClientListener.cpp's listenForClients — the
// bind-retry-on-failure outer loop, the accept-errno classification into
// transient-retry vs. non-recoverable-rebind, and the handoff-or-destroy
// pattern all carry over; only the Berkeley-sockets branch is ported (the
// LWIP netconn branch is an ESP32-only alternative with no Go analogue).
package listener

import (
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/robdobsn/rdweb/transport"
)

// RetryDelay is the backoff between bind attempts and after a
// non-recoverable accept error (spec §4.2 "RETRY_DELAY_MS" = 1s).
const RetryDelay = 1 * time.Second

// Handoff offers a freshly accepted Transport to the Manager. false means
// no free slot was available; the Listener then closes the Transport
// itself (spec §4.2).
type Handoff func(t transport.Transport) bool

// Listener runs the accept loop for one TCP port.
type Listener struct {
	Port    int
	Handoff Handoff
	Log     *logrus.Entry
}

// New constructs a Listener. log may be nil, in which case a default
// logrus logger is used.
func New(port int, handoff Handoff, log *logrus.Entry) *Listener {
	if log == nil {
		log = logrus.WithField("component", "listener")
	}
	return &Listener{Port: port, Handoff: handoff, Log: log}
}

// Run blocks until stop is closed, rebinding after any bind failure or
// non-recoverable accept error (spec §4.2). Callers typically run it in its own goroutine
// supervised by an errgroup alongside the service loop (spec §5 "two
// cooperating tasks").
func (l *Listener) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		ln, err := net.Listen("tcp", listenAddr(l.Port))
		if err != nil {
			l.Log.WithError(err).Warn("failed to bind, retrying")
			if !sleepOrStop(RetryDelay, stop) {
				return nil
			}
			continue
		}
		l.Log.WithField("port", l.Port).Info("listening")

		rebind := l.acceptLoop(ln, stop)
		ln.Close()
		if !rebind {
			return nil
		}
		if !sleepOrStop(RetryDelay, stop) {
			return nil
		}
	}
}

// acceptLoop returns true when the caller should tear down and rebind the
// socket (a non-recoverable accept error), false when stop fired.
func (l *Listener) acceptLoop(ln net.Listener, stop <-chan struct{}) bool {
	// Close the listener when stop fires so a blocked Accept returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-stop:
			ln.Close()
		case <-done:
		}
	}()

	for {
		select {
		case <-stop:
			return false
		default:
		}

		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-stop:
				return false
			default:
			}
			if isTransientAcceptError(err) {
				time.Sleep(RetryDelay)
				continue
			}
			l.Log.WithError(err).Warn("non-recoverable accept error, rebinding")
			return true
		}

		tc, ok := conn.(*net.TCPConn)
		if !ok {
			conn.Close()
			continue
		}
		t := transport.NewTCP(tc)
		if l.Handoff == nil || !l.Handoff(t) {
			l.Log.WithField("client", t.ClientID()).Debug("no free slot, rejecting connection")
			t.Close()
			continue
		}
	}
}

// isTransientAcceptError classifies the whitelisted retry-without-rebind
// errnos (spec §4.2 "EWOULDBLOCK and the transient errnos ... are retried
// with a delay but without rebinding"). Go's net package surfaces most of
// these as net.Error timeouts rather than raw errno values; a timeout is
// treated the same way the original treats EWOULDBLOCK.
func isTransientAcceptError(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func sleepOrStop(d time.Duration, stop <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	}
}

func listenAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
