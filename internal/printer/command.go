package printer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// CommandPrinter hands jobs to a spooler command such as lp
type CommandPrinter struct {
	id      string
	name    string
	queue   string
	command string
}

// NewCommandPrinter creates a spooler printer. command is split on spaces
// and may use {file}, {queue} and {title} placeholders; the default is
// "lp -d {queue} -t {title} {file}" (queue omitted when empty).
func NewCommandPrinter(id, name, queue, command string) *CommandPrinter {
	return &CommandPrinter{id: id, name: name, queue: queue, command: command}
}

func (p *CommandPrinter) ID() string     { return p.id }
func (p *CommandPrinter) Name() string   { return p.name }
func (p *CommandPrinter) Type() string   { return "command" }
func (p *CommandPrinter) Status() string { return "ready" }
func (p *CommandPrinter) Close() error   { return nil }

func (p *CommandPrinter) argv(file, title string) []string {
	tmpl := p.command
	if tmpl == "" {
		tmpl = "lp -t {title} {file}"
		if p.queue != "" {
			tmpl = "lp -d {queue} -t {title} {file}"
		}
	}

	fields := strings.Fields(tmpl)
	r := strings.NewReplacer("{file}", file, "{queue}", p.queue, "{title}", title)
	for i, f := range fields {
		fields[i] = r.Replace(f)
	}
	return fields
}

// Print spools the job through the command
func (p *CommandPrinter) Print(ctx context.Context, job Job) error {
	path, cleanup, err := writeTemp(job)
	if err != nil {
		return err
	}
	defer cleanup()

	argv := p.argv(path, job.Name)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// OpenPrinter shows the document in the desktop's default viewer, where
// the operator confirms the print dialog
type OpenPrinter struct {
	id   string
	name string
	// opener is replaced in tests
	opener func(ctx context.Context, target string) error

	mu   sync.Mutex
	keep []string
}

// NewOpenPrinter creates a viewer-based printer
func NewOpenPrinter(id, name string) *OpenPrinter {
	return &OpenPrinter{id: id, name: name, opener: openWithSystem}
}

func (p *OpenPrinter) ID() string     { return p.id }
func (p *OpenPrinter) Name() string   { return p.name }
func (p *OpenPrinter) Type() string   { return "open" }
func (p *OpenPrinter) Status() string { return "ready" }

// Print opens the downloaded document, or its URL when no data was fetched
func (p *OpenPrinter) Print(ctx context.Context, job Job) error {
	if len(job.Data) == 0 && job.URL != "" {
		return p.opener(ctx, job.URL)
	}

	// The viewer reads the file after we return, so it is kept until Close
	path, _, err := writeTemp(job)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.keep = append(p.keep, path)
	p.mu.Unlock()
	return p.opener(ctx, path)
}

// Close removes documents handed to the viewer
func (p *OpenPrinter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, path := range p.keep {
		os.Remove(path)
	}
	p.keep = nil
	return nil
}

// openWithSystem opens target with the default system application
func openWithSystem(_ context.Context, target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", target)
	case "darwin":
		cmd = exec.Command("open", target)
	default: // linux, bsd, etc.
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}

func writeTemp(job Job) (string, func(), error) {
	ext := filepath.Ext(job.Name)
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(job.ContentType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	f, err := os.CreateTemp("", "printdesk-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create spool file: %w", err)
	}
	if _, err := f.Write(job.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write spool file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("write spool file: %w", err)
	}

	path := f.Name()
	return path, func() { os.Remove(path) }, nil
}
