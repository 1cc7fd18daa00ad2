package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jetsetgo/printdesk/internal/config"
	"github.com/jetsetgo/printdesk/internal/logging"
	"github.com/jetsetgo/printdesk/internal/models"
)

// maxErrorBody caps how much of an error response is kept for messages
const maxErrorBody = 512

// TokenSource supplies and forgets the bearer credential. Valid returns an
// error when no unexpired token is stored.
type TokenSource interface {
	Valid() (string, error)
	Clear() error
}

// Client issues requests against the file-sharing backend
type Client struct {
	base    string
	variant config.Variant
	routes  Routes
	http    *http.Client
	tokens  TokenSource
	log     logging.Logger

	// OnUnauthorized is called after a 401/403 has cleared the credential
	OnUnauthorized func()
}

// NewClient creates a backend client for cfg
func NewClient(cfg *config.Config, tokens TokenSource, log logging.Logger) *Client {
	return &Client{
		base:    cfg.BaseURL(),
		variant: cfg.Backend.Variant,
		routes:  RoutesFor(cfg.Backend.Variant),
		http:    &http.Client{Timeout: cfg.Backend.RequestTimeout},
		tokens:  tokens,
		log:     log.With("component", "backend"),
	}
}

// Routes returns the endpoint table in use
func (c *Client) Routes() Routes {
	return c.routes
}

// BaseURL returns the backend root URL
func (c *Client) BaseURL() string {
	return c.base
}

// ListFiles fetches every known file
func (c *Client) ListFiles(ctx context.Context) ([]models.File, error) {
	var files []models.File
	if err := c.doJSON(ctx, "list files", c.routes.List, c.routes.List.Path, nil, &files); err != nil {
		return nil, err
	}
	if files == nil {
		files = []models.File{}
	}
	return files, nil
}

// CreateFolder creates a named folder and returns it
func (c *Client) CreateFolder(ctx context.Context, name string) (models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Folder{}, errors.New("create folder: name is required")
	}
	if !c.routes.Folder.Supported() {
		return models.Folder{}, fmt.Errorf("create folder: %w", ErrUnsupported)
	}

	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return models.Folder{}, err
	}

	var folder models.Folder
	if err := c.doJSON(ctx, "create folder", c.routes.Folder, c.routes.Folder.Path, payload, &folder); err != nil {
		return models.Folder{}, err
	}
	return folder, nil
}

// UploadFile sends one file as multipart form data into the given folder
func (c *Client) UploadFile(ctx context.Context, folder models.Folder, filename string, content io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filename, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("upload %s: read content: %w", filename, err)
	}
	if folder.ID != "" {
		_ = mw.WriteField("folder_id", folder.ID)
	}
	if folder.Name != "" {
		_ = mw.WriteField("folder_name", folder.Name)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", filename, err)
	}

	req, err := c.newRequest(ctx, c.routes.Upload, c.routes.Upload.Path, &body)
	if err != nil {
		return fmt.Errorf("upload %s: %w", filename, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send("upload "+filename, c.routes.Upload, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// legacyResult is the {success, message} body of the legacy backend
type legacyResult struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// DeleteFile removes a file on the server
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	op := "delete " + id
	req, err := c.newRequest(ctx, c.routes.Delete, c.routes.Delete.With(id), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(op, c.routes.Delete, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var res legacyResult
	if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &res) == nil && res.Success != nil && !*res.Success {
		return fmt.Errorf("%s: %s", op, res.Message)
	}
	return nil
}

// MarkPrinted tells the server a file has been sent to a printer
func (c *Client) MarkPrinted(ctx context.Context, id string) error {
	op := "mark printed " + id
	req, err := c.newRequest(ctx, c.routes.Print, c.routes.Print.With(id), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(op, c.routes.Print, req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Document is a downloaded, printable rendition of a file
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// ViewURL is where the backend renders f for viewing
func (c *Client) ViewURL(f models.File) string {
	return c.base + c.routes.View.With(c.viewKey(f))
}

func (c *Client) viewKey(f models.File) string {
	if c.variant == config.VariantLegacy && f.Path != "" {
		return f.Path
	}
	return f.ID
}

// ViewFile downloads the view rendition of f
func (c *Client) ViewFile(ctx context.Context, f models.File) (Document, error) {
	op := "view " + f.ID
	req, err := c.newRequest(ctx, c.routes.View, c.routes.View.With(c.viewKey(f)), nil)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.send(op, c.routes.View, req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("%s: read body: %w", op, err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = f.ContentType
	}
	name := f.Name
	if name == "" {
		name = f.ID
	}
	return Document{Name: name, ContentType: ct, Data: data}, nil
}

// Login exchanges admin credentials for a bearer token
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, c.routes.Login, c.routes.Login.Path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// A failed login is not a session expiry, so skip the unauthorized hook
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("login: invalid credentials: %w", ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError("login", resp)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("login: decode response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("login: response carried no token")
	}
	return out.Token, nil
}

// Token returns the current bearer token, or "" when none is stored or it
// has expired
func (c *Client) Token() string {
	if c.tokens == nil {
		return ""
	}
	tok, err := c.tokens.Valid()
	if err != nil {
		return ""
	}
	return tok
}

func (c *Client) doJSON(ctx context.Context, op string, ep Endpoint, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, ep, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(op, ep, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, ep Endpoint, path string, body io.Reader) (*http.Request, error) {
	if !ep.Supported() {
		return nil, ErrUnsupported
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

// send performs req and turns auth failures and non-2xx statuses into errors
func (c *Client) send(op string, ep Endpoint, req *http.Request) (*http.Response, error) {
	if ep.Auth && req.Header.Get("Authorization") == "" {
		c.unauthorized(req.Context(), op)
		return nil, fmt.Errorf("%s: no credential: %w", op, ErrUnauthorized)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		c.unauthorized(req.Context(), op)
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		defer resp.Body.Close()
		return nil, statusError(op, resp)
	}

	c.log.Debug(req.Context(), "request ok", "op", op, "status", resp.StatusCode,
		"request_id", req.Header.Get("X-Request-ID"))
	return resp, nil
}

func (c *Client) unauthorized(ctx context.Context, op string) {
	c.log.Warn(ctx, "credential rejected, clearing token", "op", op)
	if c.tokens != nil {
		if err := c.tokens.Clear(); err != nil {
			c.log.Error(ctx, "clear token", "err", err)
		}
	}
	if c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
