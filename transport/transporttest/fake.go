// Package transporttest provides an in-memory transport.Transport usable by
// higher-level package tests (slot, responder, manager) without opening
// real sockets.
package transporttest

// Fake is an in-memory stand-in for a real transport.Transport.
type Fake struct {
	ToClient   []byte // bytes the peer has "sent", queued for the next Read
	FromClient []byte // bytes written by the code under test, accumulated
	Closed     bool
	client     string
}

func New(clientID string) *Fake { return &Fake{client: clientID} }

func (f *Fake) Read(buf []byte) (int, error) {
	if len(f.ToClient) == 0 {
		return 0, nil
	}
	n := copy(buf, f.ToClient)
	f.ToClient = f.ToClient[n:]
	return n, nil
}

func (f *Fake) Write(buf []byte) (int, error) {
	f.FromClient = append(f.FromClient, buf...)
	return len(buf), nil
}

func (f *Fake) IsActive() bool   { return !f.Closed }
func (f *Fake) Close() error     { f.Closed = true; return nil }
func (f *Fake) ClientID() string { return f.client }
func (f *Fake) StateStr() string {
	if f.Closed {
		return "closed"
	}
	return "active"
}
func (f *Fake) ReadEnd() bool { return false }

// Feed appends bytes that the next Read calls will return, simulating
// inbound data arriving fragmented across multiple service-loop ticks.
func (f *Fake) Feed(b []byte) { f.ToClient = append(f.ToClient, b...) }
