package supervisor

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestProber_IsHealthy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	p := NewProber(ln.Addr().String(), time.Second)
	if !p.IsHealthy() {
		t.Errorf("IsHealthy() = false with a listener on %s", p.Addr())
	}
}

func TestProber_ClosedPort(t *testing.T) {
	addr := freeAddr(t)
	p := NewProber(addr, 200*time.Millisecond)
	if p.IsHealthy() {
		t.Errorf("IsHealthy() = true for closed port %s", addr)
	}
}

func TestProber_DialError(t *testing.T) {
	p := NewProber("127.0.0.1:5000", time.Second)
	var gotTimeout time.Duration
	p.dial = func(network, address string, timeout time.Duration) (net.Conn, error) {
		gotTimeout = timeout
		return nil, errors.New("i/o timeout")
	}
	if p.IsHealthy() {
		t.Error("IsHealthy() = true on dial error")
	}
	if gotTimeout != time.Second {
		t.Errorf("dial timeout = %v, want 1s", gotTimeout)
	}
}

// freeAddr returns a loopback address nothing is listening on.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}
