package printer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// NetworkPrinter sends raw job data to a printer's TCP port (usually 9100)
type NetworkPrinter struct {
	id      string
	name    string
	address string
	port    int
	mu      sync.Mutex
}

// NewNetworkPrinter creates a new network printer
func NewNetworkPrinter(id, name, address string, port int) *NetworkPrinter {
	return &NetworkPrinter{
		id:      id,
		name:    name,
		address: address,
		port:    port,
	}
}

func (p *NetworkPrinter) ID() string   { return p.id }
func (p *NetworkPrinter) Name() string { return p.name }
func (p *NetworkPrinter) Type() string { return "network" }

func (p *NetworkPrinter) addr() string {
	return net.JoinHostPort(p.address, fmt.Sprint(p.port))
}

// Status probes the printer port
func (p *NetworkPrinter) Status() string {
	conn, err := net.DialTimeout("tcp", p.addr(), 2*time.Second)
	if err != nil {
		return "offline"
	}
	conn.Close()
	return "online"
}

// Print sends data to the printer
func (p *NetworkPrinter) Print(ctx context.Context, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", p.addr())
	if err != nil {
		return fmt.Errorf("failed to connect to printer: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(30 * time.Second))

	if _, err := conn.Write(job.Data); err != nil {
		return fmt.Errorf("failed to send data to printer: %w", err)
	}
	return nil
}

// Close is a no-op; connections are opened per job
func (p *NetworkPrinter) Close() error {
	return nil
}
