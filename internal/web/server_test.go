package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetsetgo/printdesk/internal/backend"
	"github.com/jetsetgo/printdesk/internal/dashboard"
	"github.com/jetsetgo/printdesk/internal/models"
	"github.com/jetsetgo/printdesk/internal/printer"
	"github.com/jetsetgo/printdesk/internal/render"
	"github.com/jetsetgo/printdesk/internal/state"
)

type fakeDashboard struct {
	view      render.View
	err       error
	printed   []string
	deleted   []string
	folders   []string
	uploads   []string
	refreshed int
	dismissed []string
}

func (d *fakeDashboard) View() render.View { return d.view }

func (d *fakeDashboard) Status() backend.ConnectionStatus {
	return backend.ConnectionStatus{State: models.StateConnected, Connected: true}
}

func (d *fakeDashboard) Print(_ context.Context, id string) error {
	d.printed = append(d.printed, id)
	return d.err
}

func (d *fakeDashboard) Delete(_ context.Context, id string) error {
	d.deleted = append(d.deleted, id)
	return d.err
}

func (d *fakeDashboard) CreateFolder(_ context.Context, name string) (models.Folder, error) {
	d.folders = append(d.folders, name)
	return models.Folder{ID: "d1", Name: name}, d.err
}

func (d *fakeDashboard) Upload(_ context.Context, folderName string, files []dashboard.Upload) error {
	for _, f := range files {
		data, _ := io.ReadAll(f.Content)
		d.uploads = append(d.uploads, folderName+"/"+f.Name+"="+string(data))
	}
	return d.err
}

func (d *fakeDashboard) CleanPrinted(context.Context) (int, error) { return 2, d.err }

func (d *fakeDashboard) Refresh(context.Context) error {
	d.refreshed++
	return d.err
}

func (d *fakeDashboard) Dismiss(_ context.Context, id string) error {
	d.dismissed = append(d.dismissed, id)
	return d.err
}

type fakePrinters struct{ tested []string }

func (p *fakePrinters) List() []printer.Info {
	return []printer.Info{{ID: "browser", Name: "Viewer", Type: "open", Default: true}}
}

func (p *fakePrinters) TestPrint(_ context.Context, id string) error {
	if id != "browser" {
		return fmt.Errorf("%w: %s", printer.ErrPrinterNotFound, id)
	}
	p.tested = append(p.tested, id)
	return nil
}

func newTestServer(t *testing.T, dash *fakeDashboard) (*httptest.Server, *LogBuffer) {
	t.Helper()
	logs := NewLogBuffer(10)
	s := NewServer("127.0.0.1:0", dash, &fakePrinters{}, logs, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, logs
}

func do(t *testing.T, method, url string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sampleView() render.View {
	s := state.NewStore()
	s.AddFile(models.File{ID: "f1", Name: "scan.pdf", Size: 2048, FolderID: "d1", FolderName: "Invoices"})
	return render.Render(s.Snapshot(), render.Options{})
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDashboard{})

	resp := do(t, http.MethodGet, srv.URL+"/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServer_PagesAndFragment(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDashboard{view: sampleView()})

	resp := do(t, http.MethodGet, srv.URL+"/", nil, "")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<title>Printdesk</title>")

	resp = do(t, http.MethodGet, srv.URL+"/fragment", nil, "")
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "scan.pdf")
	assert.Contains(t, string(body), `data-action="print" data-id="f1"`)
	assert.Contains(t, string(body), "2 KB")

	resp = do(t, http.MethodGet, srv.URL+"/api/view", nil, "")
	var v render.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	require.Len(t, v.Folders, 1)
	assert.Equal(t, "Invoices", v.Folders[0].Name)
}

func TestServer_FileActions(t *testing.T) {
	dash := &fakeDashboard{}
	srv, _ := newTestServer(t, dash)

	resp := do(t, http.MethodPost, srv.URL+"/api/files/f1/print", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/api/files/f2", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/folders", strings.NewReader(`{"name":"Invoices"}`), "application/json")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/folders", strings.NewReader(`{"name":"  "}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/clean-printed", nil, "")
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.EqualValues(t, 2, out["deleted"])

	resp = do(t, http.MethodPost, srv.URL+"/api/refresh", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/notices/n1/dismiss", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, []string{"f1"}, dash.printed)
	assert.Equal(t, []string{"f2"}, dash.deleted)
	assert.Equal(t, []string{"Invoices"}, dash.folders)
	assert.Equal(t, 1, dash.refreshed)
	assert.Equal(t, []string{"n1"}, dash.dismissed)
}

func TestServer_Upload(t *testing.T) {
	dash := &fakeDashboard{}
	srv, _ := newTestServer(t, dash)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("folder_name", "Scans"))
	for _, name := range []string{"a.pdf", "b.pdf"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("data-" + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp := do(t, http.MethodPost, srv.URL+"/api/upload", &body, mw.FormDataContentType())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Scans/a.pdf=data-a.pdf", "Scans/b.pdf=data-b.pdf"}, dash.uploads)

	resp = do(t, http.MethodPost, srv.URL+"/api/upload", strings.NewReader("nope"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", fmt.Errorf("list: %w", backend.ErrUnauthorized), http.StatusUnauthorized},
		{"unknown file", fmt.Errorf("print x: %w", dashboard.ErrUnknownFile), http.StatusNotFound},
		{"backend 404", &backend.StatusError{Op: "delete", Code: 404}, http.StatusNotFound},
		{"unsupported", backend.ErrUnsupported, http.StatusNotImplemented},
		{"other", &backend.StatusError{Op: "delete", Code: 500}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &fakeDashboard{err: tt.err})

			resp := do(t, http.MethodPost, srv.URL+"/api/files/x/print", nil, "")
			assert.Equal(t, tt.want, resp.StatusCode)

			var out map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, false, out["success"])
		})
	}
}

func TestServer_Printers(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDashboard{})

	resp := do(t, http.MethodGet, srv.URL+"/api/printers", nil, "")
	var out struct {
		Printers []printer.Info `json:"printers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Printers, 1)
	assert.True(t, out.Printers[0].Default)

	resp = do(t, http.MethodPost, srv.URL+"/api/printers/browser/test", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/printers/missing/test", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Logs(t *testing.T) {
	srv, logs := newTestServer(t, &fakeDashboard{})
	logs.Add("info", "started")
	logs.Add("error", "boom")

	resp := do(t, http.MethodGet, srv.URL+"/api/logs?level=error", nil, "")
	var out struct {
		Entries []LogEntry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "boom", out.Entries[0].Message)
}

func TestServer_Status(t *testing.T) {
	srv, _ := newTestServer(t, &fakeDashboard{view: sampleView()})

	resp := do(t, http.MethodGet, srv.URL+"/api/status", nil, "")
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "running", out["status"])
	assert.EqualValues(t, 1, out["files"])
	conn, ok := out["connection"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, conn["connected"])
}
