package supervisor

import (
	"net"
	"time"
)

// Prober checks whether the backend accepts connections on its fixed endpoint.
type Prober struct {
	addr    string
	timeout time.Duration
	dial    func(network, address string, timeout time.Duration) (net.Conn, error)
}

// NewProber returns a prober for addr (host:port).
func NewProber(addr string, timeout time.Duration) *Prober {
	return &Prober{addr: addr, timeout: timeout, dial: net.DialTimeout}
}

// Addr returns the probed endpoint.
func (p *Prober) Addr() string { return p.addr }

// IsHealthy makes one connection attempt. Any dial error means "not reachable".
func (p *Prober) IsHealthy() bool {
	conn, err := p.dial("tcp", p.addr, p.timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
