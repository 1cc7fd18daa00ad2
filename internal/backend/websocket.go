package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jetsetgo/printdesk/internal/logging"
	"github.com/jetsetgo/printdesk/internal/models"
)

// Dialer opens WebSocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Handler receives decoded push events in arrival order. The channel does
// not read the next frame until Handler returns.
type Handler func(ctx context.Context, ev models.Event)

// ChannelOptions configures a Channel
type ChannelOptions struct {
	URL            string
	Tokens         TokenSource
	Dialer         Dialer
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	Logger         logging.Logger
}

// Channel is the live update connection. It walks connecting -> open ->
// closed and, after a fixed delay, back to connecting, until stopped.
type Channel struct {
	url          string
	tokens       TokenSource
	dialer       Dialer
	delay        time.Duration
	pingInterval time.Duration
	log          logging.Logger
	handler      Handler

	// after schedules the reconnect timer; replaced in tests
	after func(d time.Duration) (<-chan time.Time, func() bool)

	mu        sync.Mutex
	state     models.ConnectionState
	conn      *websocket.Conn
	attempts  int
	lastError error
	lastSeen  time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	// OnState is called on every connection state change
	OnState func(models.ConnectionState)
	// OnOpen is called after each successful handshake, before the first
	// frame is read; reconnect is false only for the first one
	OnOpen func(ctx context.Context, reconnect bool)
}

// NewChannel creates a channel that hands events to handler
func NewChannel(opts ChannelOptions, handler Handler) *Channel {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	return &Channel{
		url:          opts.URL,
		tokens:       opts.Tokens,
		dialer:       opts.Dialer,
		delay:        opts.ReconnectDelay,
		pingInterval: opts.PingInterval,
		log:          opts.Logger.With("component", "channel"),
		handler:      handler,
		after:        timerAfter,
		state:        models.StateDisconnected,
	}
}

func timerAfter(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// Start runs the channel in the background until Stop or ctx is done
func (c *Channel) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
}

// Stop cancels the connection and any pending reconnect, and waits for the
// loop to exit
func (c *Channel) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run connects and reconnects until ctx is cancelled. It always returns nil
// once ctx is done; connection failures are retried, never returned.
func (c *Channel) Run(ctx context.Context) error {
	opened := false

	for {
		if ctx.Err() != nil {
			c.setState(models.StateDisconnected)
			return nil
		}

		c.setState(models.StateConnecting)

		conn, err := c.connect(ctx)
		if err != nil {
			c.setError(err)
			c.log.Warn(ctx, "websocket connection failed", "err", err, "retry_in", c.delay)
		} else {
			c.setState(models.StateConnected)
			if c.OnOpen != nil {
				c.OnOpen(ctx, opened)
			}
			opened = true

			err = c.serve(ctx, conn)
			if ctx.Err() == nil {
				c.setError(err)
				c.log.Warn(ctx, "websocket disconnected", "err", err, "retry_in", c.delay)
			}
		}

		if ctx.Err() != nil {
			c.setState(models.StateDisconnected)
			return nil
		}

		// Exactly one timer per close; it is owned here and stopped on exit
		c.setState(models.StateDisconnected)
		fire, stop := c.after(c.delay)
		select {
		case <-ctx.Done():
			stop()
			c.setState(models.StateDisconnected)
			return nil
		case <-fire:
		}
	}
}

// connect performs the handshake
func (c *Channel) connect(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	c.attempts++
	c.mu.Unlock()

	wsURL := c.url
	header := http.Header{}

	if c.tokens != nil {
		if tok, err := c.tokens.Valid(); err == nil && tok != "" {
			header.Set("Authorization", "Bearer "+tok)
			if u, err := url.Parse(wsURL); err == nil {
				q := u.Query()
				q.Set("token", tok)
				u.RawQuery = q.Encode()
				wsURL = u.String()
			}
		}
	}

	c.log.Debug(ctx, "connecting", "url", c.url)

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("dial failed: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.lastError = nil
	c.lastSeen = time.Now()
	c.mu.Unlock()

	c.log.Info(ctx, "websocket connected", "url", c.url)
	return conn, nil
}

// serve runs the read loop and the ping loop on an open connection and
// returns the error that ended it
func (c *Channel) serve(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	var wg sync.WaitGroup

	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	// Closing the connection unblocks ReadMessage on cancellation
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(ctx, conn, done)
	}()

	err := c.readLoop(ctx, conn)

	close(done)
	conn.Close()
	wg.Wait()

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	return err
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("closed by server: %w", err)
			}
			return err
		}
		c.touch()

		ev, err := models.DecodeEvent(data)
		if err != nil {
			c.log.Warn(ctx, "dropping undecodable message", "err", err, "size", len(data))
			continue
		}
		if ev.Kind == models.EventUnknown {
			c.log.Debug(ctx, "ignoring message", "type", ev.Type)
			continue
		}

		c.handler(ctx, ev)
	}
}

// writeLoop sends pings and closes the connection when ctx ends
func (c *Channel) writeLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	var tick <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			return
		case <-tick:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				c.log.Warn(ctx, "websocket ping failed", "err", err)
				conn.Close()
				return
			}
		}
	}
}

func (c *Channel) setState(s models.ConnectionState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed && c.OnState != nil {
		c.OnState(s)
	}
}

func (c *Channel) setError(err error) {
	c.mu.Lock()
	c.lastError = err
	c.mu.Unlock()
}

func (c *Channel) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// Status returns the current connection status
func (c *Channel) Status() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	errStr := ""
	if c.lastError != nil {
		errStr = c.lastError.Error()
	}

	return ConnectionStatus{
		State:        c.state,
		Connected:    c.state == models.StateConnected,
		Reconnecting: c.state != models.StateConnected && c.attempts > 0,
		Attempts:     c.attempts,
		LastError:    errStr,
		LastSeen:     c.lastSeen,
	}
}

// Unauthorized reports whether the last failure was a rejected credential
func (c *Channel) Unauthorized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Is(c.lastError, ErrUnauthorized)
}
