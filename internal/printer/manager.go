package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/jetsetgo/printdesk/internal/config"
)

var ErrPrinterNotFound = errors.New("printer not found")

// Job is a document ready to be printed
type Job struct {
	Name        string
	ContentType string
	Data        []byte
	// URL is where the document can be viewed, when the printer prefers it
	URL string
}

// Printer is an output device for jobs
type Printer interface {
	ID() string
	Name() string
	Type() string
	Status() string
	Print(ctx context.Context, job Job) error
	Close() error
}

// Info describes a configured printer
type Info struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// DiscoveredPrinter represents a discovered printer
type DiscoveredPrinter struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// Manager manages printers and routes print jobs
type Manager struct {
	mu        sync.RWMutex
	printers  map[string]Printer
	defaultID string
}

// NewManager creates a new printer manager
func NewManager() *Manager {
	return &Manager{
		printers: make(map[string]Printer),
	}
}

// FromConfig builds a manager with every configured printer
func FromConfig(cfg *config.Config) (*Manager, error) {
	m := NewManager()
	for _, pc := range cfg.Printers {
		p, err := New(pc)
		if err != nil {
			return nil, err
		}
		m.AddPrinter(p)
	}
	if cfg.DefaultPrinter != "" {
		if err := m.SetDefault(cfg.DefaultPrinter); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// New creates a printer from its configuration
func New(pc config.PrinterConfig) (Printer, error) {
	name := pc.Name
	if name == "" {
		name = pc.ID
	}

	switch pc.Type {
	case "network":
		port := pc.Port
		if port == 0 {
			port = 9100
		}
		return NewNetworkPrinter(pc.ID, name, pc.Address, port), nil
	case "command":
		return NewCommandPrinter(pc.ID, name, pc.Queue, pc.Command), nil
	case "open", "":
		return NewOpenPrinter(pc.ID, name), nil
	default:
		return nil, fmt.Errorf("printer %s: unknown type %q", pc.ID, pc.Type)
	}
}

// AddPrinter adds a printer to the manager. The first one added becomes the
// default until SetDefault says otherwise.
func (m *Manager) AddPrinter(p Printer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.printers[p.ID()] = p
	if m.defaultID == "" {
		m.defaultID = p.ID()
	}
}

// SetDefault selects the printer used when no id is given
func (m *Manager) SetDefault(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.printers[id]; !ok {
		return fmt.Errorf("%w: %s", ErrPrinterNotFound, id)
	}
	m.defaultID = id
	return nil
}

// GetPrinter gets a printer by ID; an empty id selects the default
func (m *Manager) GetPrinter(id string) (Printer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id == "" {
		id = m.defaultID
	}
	p, ok := m.printers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrinterNotFound, id)
	}
	return p, nil
}

// Print sends a job to a printer
func (m *Manager) Print(ctx context.Context, printerID string, job Job) error {
	p, err := m.GetPrinter(printerID)
	if err != nil {
		return err
	}
	return p.Print(ctx, job)
}

// List returns the configured printers sorted by id
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.printers))
	for id, p := range m.printers {
		out = append(out, Info{
			ID:      id,
			Name:    p.Name(),
			Type:    p.Type(),
			Status:  p.Status(),
			Default: id == m.defaultID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TestPrint sends a test page to a printer
func (m *Manager) TestPrint(ctx context.Context, printerID string) error {
	p, err := m.GetPrinter(printerID)
	if err != nil {
		return err
	}

	return p.Print(ctx, Job{
		Name:        "printdesk-test.txt",
		ContentType: "text/plain",
		Data:        buildTestPage(time.Now()),
	})
}

// Close closes every printer
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, p := range m.printers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discover scans the given /24 prefixes (e.g. "192.168.1.") for hosts
// accepting raw print jobs on port
func Discover(ctx context.Context, subnets []string, port int, timeout time.Duration) []DiscoveredPrinter {
	discovered := make([]DiscoveredPrinter, 0)

	for _, subnet := range subnets {
		for i := 1; i <= 254; i++ {
			if ctx.Err() != nil {
				return discovered
			}
			ip := fmt.Sprintf("%s%d", subnet, i)
			if isPortOpen(ctx, ip, port, timeout) {
				discovered = append(discovered, DiscoveredPrinter{
					ID:      fmt.Sprintf("network-%s", ip),
					Name:    fmt.Sprintf("Printer at %s", ip),
					Type:    "network",
					Address: ip,
					Port:    port,
				})
			}
		}
	}

	return discovered
}

// isPortOpen checks if a port is open on a host
func isPortOpen(ctx context.Context, host string, port int, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// buildTestPage creates a plain-text test page
func buildTestPage(now time.Time) []byte {
	var data []byte

	data = append(data, []byte("PRINTDESK\n")...)
	data = append(data, []byte("-------------------\n")...)
	data = append(data, []byte("Test Print\n")...)
	data = append(data, []byte(fmt.Sprintf("Time: %s\n", now.Format("2006-01-02 15:04:05")))...)
	data = append(data, []byte("-------------------\n")...)
	data = append(data, []byte("Printer OK!\n\f")...)

	return data
}
