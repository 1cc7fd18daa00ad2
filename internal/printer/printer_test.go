package printer

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetsetgo/printdesk/internal/config"
)

func TestManager_FromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Printers = []config.PrinterConfig{
		{ID: "front", Name: "Front desk", Type: "network", Address: "10.0.0.5"},
		{ID: "office", Type: "command", Queue: "office"},
		{ID: "browser", Type: "open"},
	}
	cfg.DefaultPrinter = "office"

	m, err := FromConfig(cfg)
	require.NoError(t, err)

	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, "browser", list[0].ID)
	assert.Equal(t, "front", list[1].ID)
	assert.Equal(t, "network", list[1].Type)
	assert.Equal(t, "Front desk", list[1].Name)
	assert.True(t, list[2].Default)
	assert.Equal(t, "office", list[2].Name, "name falls back to id")

	p, err := m.GetPrinter("")
	require.NoError(t, err)
	assert.Equal(t, "office", p.ID())

	_, err = m.GetPrinter("missing")
	require.ErrorIs(t, err, ErrPrinterNotFound)
}

func TestManager_FromConfigErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Printers = []config.PrinterConfig{{ID: "x", Type: "carrier-pigeon"}}
	_, err := FromConfig(cfg)
	require.Error(t, err)

	cfg = config.Default()
	cfg.DefaultPrinter = "nope"
	_, err = FromConfig(cfg)
	require.ErrorIs(t, err, ErrPrinterNotFound)
}

func listen(t *testing.T) (net.Listener, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	return ln, host, n
}

func TestNetworkPrinter_Print(t *testing.T) {
	ln, host, port := listen(t)

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	p := NewNetworkPrinter("net", "Net", host, port)
	assert.Equal(t, "network", p.Type())

	m := NewManager()
	m.AddPrinter(p)
	require.NoError(t, m.Print(context.Background(), "net", Job{Data: []byte("%PDF-1.4")}))

	select {
	case data := <-received:
		assert.Equal(t, "%PDF-1.4", string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("printer received nothing")
	}
}

func TestNetworkPrinter_Offline(t *testing.T) {
	ln, host, port := listen(t)
	ln.Close()

	p := NewNetworkPrinter("net", "Net", host, port)
	assert.Equal(t, "offline", p.Status())
	require.Error(t, p.Print(context.Background(), Job{Data: []byte("x")}))
}

func TestCommandPrinter_Print(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.pdf")

	p := NewCommandPrinter("cp", "Copy", "", "cp {file} "+dest)
	require.NoError(t, p.Print(context.Background(), Job{Name: "a.pdf", Data: []byte("hello")}))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestCommandPrinter_Failure(t *testing.T) {
	p := NewCommandPrinter("bad", "Bad", "", "false {file}")
	require.Error(t, p.Print(context.Background(), Job{Name: "a.txt", Data: []byte("x")}))
}

func TestCommandPrinter_DefaultArgv(t *testing.T) {
	p := NewCommandPrinter("lp", "LP", "office", "")
	assert.Equal(t, []string{"lp", "-d", "office", "-t", "doc.pdf", "/tmp/x.pdf"}, p.argv("/tmp/x.pdf", "doc.pdf"))

	p = NewCommandPrinter("lp", "LP", "", "")
	assert.Equal(t, []string{"lp", "-t", "doc.pdf", "/tmp/x.pdf"}, p.argv("/tmp/x.pdf", "doc.pdf"))
}

func TestOpenPrinter(t *testing.T) {
	var opened []string
	p := NewOpenPrinter("browser", "Viewer")
	p.opener = func(_ context.Context, target string) error {
		opened = append(opened, target)
		return nil
	}

	require.NoError(t, p.Print(context.Background(), Job{Name: "scan", ContentType: "application/pdf", Data: []byte("pdf")}))
	require.NoError(t, p.Print(context.Background(), Job{URL: "http://backend/api/files/f1/view"}))

	require.Len(t, opened, 2)
	assert.Equal(t, ".pdf", filepath.Ext(opened[0]))
	data, err := os.ReadFile(opened[0])
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(data))
	assert.Equal(t, "http://backend/api/files/f1/view", opened[1])

	require.NoError(t, p.Close())
	_, err = os.Stat(opened[0])
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestManager_TestPrint(t *testing.T) {
	var got Job
	p := NewOpenPrinter("browser", "Viewer")
	p.opener = func(_ context.Context, target string) error {
		data, err := os.ReadFile(target)
		got.Data = data
		return err
	}

	m := NewManager()
	m.AddPrinter(p)
	require.NoError(t, m.TestPrint(context.Background(), ""))
	assert.Contains(t, string(got.Data), "Printer OK!")
	require.NoError(t, m.Close())
}

func TestDiscover(t *testing.T) {
	_, _, port := listen(t)

	found := Discover(context.Background(), []string{"127.0.0."}, port, 50*time.Millisecond)
	require.NotEmpty(t, found)
	assert.Equal(t, "network-127.0.0.1", found[0].ID)
	assert.Equal(t, port, found[0].Port)
}
