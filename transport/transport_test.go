package transport

import (
	"net"
	"testing"
	"time"
)

func TestTCPLoopbackReadWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		c, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			return
		}
		defer c.Close()
		c.Write([]byte("hello"))
		time.Sleep(20 * time.Millisecond)
	}()

	raw, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	tr := NewTCP(raw.(*net.TCPConn))
	defer tr.Close()

	var got []byte
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < 5 && time.Now().Before(deadline) {
		buf := make([]byte, 64)
		n, err := tr.Read(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
	if !tr.IsActive() {
		t.Fatal("expected transport to still be active")
	}
	<-clientDone
}
