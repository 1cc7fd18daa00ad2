// Package dashboard owns the live file view: it applies fetch results and
// pushed events to the store, re-renders after every change and runs the
// operator actions.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jetsetgo/printdesk/internal/backend"
	"github.com/jetsetgo/printdesk/internal/logging"
	"github.com/jetsetgo/printdesk/internal/models"
	"github.com/jetsetgo/printdesk/internal/printer"
	"github.com/jetsetgo/printdesk/internal/render"
	"github.com/jetsetgo/printdesk/internal/state"
)

var (
	// ErrUnknownFile is returned for actions on a file id the store does not hold
	ErrUnknownFile = errors.New("unknown file")
	// ErrStopped is returned once the controller loop has exited
	ErrStopped = errors.New("dashboard stopped")
)

// Backend is the part of the backend client the controller drives
type Backend interface {
	ListFiles(ctx context.Context) ([]models.File, error)
	CreateFolder(ctx context.Context, name string) (models.Folder, error)
	UploadFile(ctx context.Context, folder models.Folder, filename string, content io.Reader) error
	DeleteFile(ctx context.Context, id string) error
	MarkPrinted(ctx context.Context, id string) error
	ViewFile(ctx context.Context, f models.File) (backend.Document, error)
	ViewURL(f models.File) string
}

// Printers sends jobs to a printer by id; "" is the default printer
type Printers interface {
	Print(ctx context.Context, printerID string, job printer.Job) error
}

// Live is the push channel feeding HandleEvent
type Live interface {
	Run(ctx context.Context) error
	Status() backend.ConnectionStatus
	Unauthorized() bool
}

// Credentials is the stored login dropped by Logout
type Credentials interface {
	Clear() error
}

// Options configures a Controller
type Options struct {
	Backend     Backend
	Printers    Printers
	PrinterID   string
	Live        Live
	Credentials Credentials
	PrintDelay  time.Duration
	MessageTTL  time.Duration
	Location    *time.Location
	Logger      logging.Logger
	Now         func() time.Time
}

// Upload is one file handed to Upload
type Upload struct {
	Name    string
	Content io.Reader
}

type mutation struct {
	fn   func()
	done chan struct{}
}

// Controller is the single writer of the dashboard state. Every change goes
// through one queue drained by the goroutine started in Run; the view is
// re-rendered and published before the next change is taken.
type Controller struct {
	backend    Backend
	printers   Printers
	printerID  string
	live       Live
	creds      Credentials
	printDelay time.Duration
	loc        *time.Location
	log        logging.Logger
	now        func() time.Time

	store   *state.Store
	notices *NoticeBuffer
	queue   chan mutation
	done    chan struct{}

	// owned by the loop goroutine
	conn          models.ConnectionState
	loginRequired bool

	mu       sync.Mutex
	view     render.View
	subs     map[int]chan render.View
	nextSub  int
	stopLive context.CancelFunc
}

// New creates a controller. Run must be running for actions to complete.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MessageTTL <= 0 {
		opts.MessageTTL = 5 * time.Second
	}

	c := &Controller{
		backend:    opts.Backend,
		printers:   opts.Printers,
		printerID:  opts.PrinterID,
		live:       opts.Live,
		creds:      opts.Credentials,
		printDelay: opts.PrintDelay,
		loc:        opts.Location,
		log:        opts.Logger.With("component", "dashboard"),
		now:        opts.Now,
		store:      state.NewStore(),
		notices:    NewNoticeBuffer(5, opts.MessageTTL),
		queue:      make(chan mutation),
		done:       make(chan struct{}),
		conn:       models.StateDisconnected,
		subs:       make(map[int]chan render.View),
	}
	c.view = c.render()
	return c
}

// Connect builds the push channel that feeds this controller
func (c *Controller) Connect(opts backend.ChannelOptions) *backend.Channel {
	ch := backend.NewChannel(opts, c.HandleEvent)
	ch.OnState = c.SetConnectionState
	ch.OnOpen = c.Opened
	c.live = ch
	return ch
}

// Run starts the push channel and the initial fetch concurrently and applies
// changes until ctx is done
func (c *Controller) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.loop(gctx)
		return nil
	})

	if c.live != nil {
		liveCtx, stop := context.WithCancel(gctx)
		c.mu.Lock()
		c.stopLive = stop
		c.mu.Unlock()

		g.Go(func() error {
			defer stop()
			return c.live.Run(liveCtx)
		})
	}

	g.Go(func() error {
		_ = c.Refresh(gctx)
		return nil
	})

	return g.Wait()
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.done)

	var timer *time.Timer
	var expiry <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-c.queue:
			if m.fn != nil {
				m.fn()
			}
			c.publish(c.render())
			close(m.done)
		case <-expiry:
			c.publish(c.render())
		}

		if timer != nil {
			timer.Stop()
		}
		timer, expiry = nil, nil
		now := c.now()
		if next, ok := c.notices.Prune(now); ok {
			timer = time.NewTimer(next.Sub(now))
			expiry = timer.C
		}
	}
}

// apply runs fn on the loop goroutine and waits until the resulting view
// has been published
func (c *Controller) apply(ctx context.Context, fn func()) error {
	m := mutation{fn: fn, done: make(chan struct{})}

	select {
	case c.queue <- m:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

func (c *Controller) render() render.View {
	now := c.now()
	return render.Render(c.store.Snapshot(), render.Options{
		Now:           now,
		Location:      c.loc,
		State:         c.conn,
		Notices:       c.notices.Active(now),
		LoginRequired: c.loginRequired,
	})
}

func (c *Controller) publish(v render.View) {
	c.mu.Lock()
	c.view = v
	subs := make([]chan render.View, 0, len(c.subs))
	for _, ch := range c.subs {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	// Subscribers only ever see the latest view
	for _, ch := range subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// View returns the most recently published view
func (c *Controller) View() render.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Subscribe returns a channel receiving each published view. Slow readers
// skip intermediate views. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan render.View, func()) {
	ch := make(chan render.View, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.view
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Status reports the push channel state
func (c *Controller) Status() backend.ConnectionStatus {
	if c.live != nil {
		return c.live.Status()
	}
	st := c.View().Status.State
	return backend.ConnectionStatus{State: st, Connected: st == models.StateConnected}
}

// HandleEvent applies one pushed event. It returns after the view reflecting
// the event has been published.
func (c *Controller) HandleEvent(ctx context.Context, ev models.Event) {
	err := c.apply(ctx, func() {
		switch ev.Kind {
		case models.EventFileAdded:
			c.store.AddFile(ev.File)
		case models.EventFileDeleted:
			c.store.RemoveFile(ev.FileID)
		case models.EventFolderCreated:
			c.store.AddFolder(ev.Folder)
		case models.EventSnapshot:
			c.store.ReplaceAll(ev.Files)
		}
	})
	if err != nil {
		c.log.Debug(ctx, "event not applied", "type", ev.Type, "err", err)
	}
}

// SetConnectionState updates the connection indicator. A handshake the
// server rejected clears the stored credential like a REST 401 does.
func (c *Controller) SetConnectionState(s models.ConnectionState) {
	_ = c.apply(context.Background(), func() { c.conn = s })

	if s == models.StateDisconnected && c.live != nil && c.live.Unauthorized() {
		if c.creds != nil {
			if err := c.creds.Clear(); err != nil {
				c.log.Error(context.Background(), "clear token", "err", err)
			}
		}
		c.Unauthorized()
	}
}

// Opened re-fetches the file list after a reconnect
func (c *Controller) Opened(ctx context.Context, reconnect bool) {
	if !reconnect {
		return
	}
	c.log.Info(ctx, "reconnected, reloading files")
	_ = c.Refresh(ctx)
}

// Unauthorized stops the push channel and asks for a new login
func (c *Controller) Unauthorized() {
	c.mu.Lock()
	stop := c.stopLive
	c.mu.Unlock()
	if stop != nil {
		stop()
	}

	_ = c.apply(context.Background(), func() {
		if !c.loginRequired {
			c.notices.Add(LevelError, "Session expired, please log in again", c.now())
		}
		c.loginRequired = true
	})
}

// Refresh replaces the local state with the server's file list
func (c *Controller) Refresh(ctx context.Context) error {
	files, err := c.backend.ListFiles(ctx)
	if err != nil {
		c.fail(ctx, "Failed to load files", err)
		return err
	}

	return c.apply(ctx, func() {
		c.store.ReplaceAll(files)
		c.loginRequired = false
	})
}

// Print sends a known file through PrintFile and flips it to printed
func (c *Controller) Print(ctx context.Context, id string) error {
	f, ok := c.store.Find(id)
	if !ok {
		err := fmt.Errorf("print %s: %w", id, ErrUnknownFile)
		c.fail(ctx, "Print failed", err)
		return err
	}

	if err := PrintFile(ctx, c.backend, c.printers, c.printerID, f, c.printDelay); err != nil {
		if ctx.Err() != nil {
			return err
		}
		var markErr *MarkError
		if errors.As(err, &markErr) {
			c.fail(ctx, "Printed, but marking failed", markErr.Err)
		} else {
			c.fail(ctx, "Print failed", err)
		}
		return err
	}

	c.log.Info(ctx, "file printed", "file_id", id, "name", f.Name)
	return c.apply(ctx, func() {
		if cur, ok := c.store.Find(id); ok {
			cur.Processed = true
			c.store.ReplaceFile(cur)
		}
		c.notices.Add(LevelSuccess, "Sent "+f.Name+" to printer", c.now())
	})
}

// Delete removes a file on the server. The store changes when the
// deletion is pushed back.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.backend.DeleteFile(ctx, id); err != nil {
		c.fail(ctx, "Delete failed", err)
		return err
	}
	c.notify(ctx, LevelSuccess, "File deleted")
	return nil
}

// CreateFolder creates a folder on the server
func (c *Controller) CreateFolder(ctx context.Context, name string) (models.Folder, error) {
	folder, err := c.backend.CreateFolder(ctx, name)
	if err != nil {
		c.fail(ctx, "Create folder failed", err)
		return models.Folder{}, err
	}
	c.notify(ctx, LevelSuccess, "Folder "+folder.Name+" created")
	return folder, nil
}

// Upload creates the folder, then uploads each file into it in order. It
// stops at the first failed upload.
func (c *Controller) Upload(ctx context.Context, folderName string, files []Upload) error {
	if len(files) == 0 {
		return errors.New("upload: no files")
	}

	folder, err := c.backend.CreateFolder(ctx, folderName)
	switch {
	case errors.Is(err, backend.ErrUnsupported):
		folder = models.Folder{Name: folderName}
	case err != nil:
		c.fail(ctx, "Upload failed", err)
		return err
	}

	for i, u := range files {
		if err := c.backend.UploadFile(ctx, folder, u.Name, u.Content); err != nil {
			c.fail(ctx, fmt.Sprintf("Upload failed after %d file(s)", i), err)
			return err
		}
	}

	c.notify(ctx, LevelSuccess, fmt.Sprintf("Uploaded %d file(s) to %s", len(files), folder.Name))
	return nil
}

// CleanPrinted deletes every printed file one after another and returns how
// many were deleted
func (c *Controller) CleanPrinted(ctx context.Context) (int, error) {
	printed := c.store.Printed()
	if len(printed) == 0 {
		c.notify(ctx, LevelInfo, "No printed files to clean")
		return 0, nil
	}

	for i, f := range printed {
		if err := c.backend.DeleteFile(ctx, f.ID); err != nil {
			c.fail(ctx, "Clean printed failed", err)
			return i, err
		}
	}

	c.notify(ctx, LevelSuccess, fmt.Sprintf("Deleted %d printed file(s)", len(printed)))
	return len(printed), nil
}

// Logout forgets the stored credential and stops the push channel
func (c *Controller) Logout(ctx context.Context) error {
	if c.creds != nil {
		if err := c.creds.Clear(); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
	}

	c.mu.Lock()
	stop := c.stopLive
	c.mu.Unlock()
	if stop != nil {
		stop()
	}

	return c.apply(ctx, func() { c.loginRequired = true })
}

// Dismiss hides a notice before it expires
func (c *Controller) Dismiss(ctx context.Context, id string) error {
	return c.apply(ctx, func() { c.notices.Dismiss(id) })
}

func (c *Controller) notify(ctx context.Context, level, text string) {
	_ = c.apply(ctx, func() { c.notices.Add(level, text, c.now()) })
}

func (c *Controller) fail(ctx context.Context, what string, err error) {
	c.log.Error(ctx, what, "err", err)
	if errors.Is(err, backend.ErrUnauthorized) {
		// Unauthorized has already posted its own notice
		return
	}
	c.notify(ctx, LevelError, what+": "+err.Error())
}
