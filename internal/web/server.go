// Package web serves the operator dashboard on a local port.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jetsetgo/printdesk/internal/backend"
	"github.com/jetsetgo/printdesk/internal/dashboard"
	"github.com/jetsetgo/printdesk/internal/logging"
	"github.com/jetsetgo/printdesk/internal/models"
	"github.com/jetsetgo/printdesk/internal/printer"
	"github.com/jetsetgo/printdesk/internal/render"
)

// maxUploadMemory is held in memory per upload request; the rest spills to disk
const maxUploadMemory = 32 << 20

// Dashboard is the controller the server drives
type Dashboard interface {
	View() render.View
	Status() backend.ConnectionStatus
	Print(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CreateFolder(ctx context.Context, name string) (models.Folder, error)
	Upload(ctx context.Context, folderName string, files []dashboard.Upload) error
	CleanPrinted(ctx context.Context) (int, error)
	Refresh(ctx context.Context) error
	Dismiss(ctx context.Context, id string) error
}

// Printers lists and tests the configured printers
type Printers interface {
	List() []printer.Info
	TestPrint(ctx context.Context, printerID string) error
}

// Server represents the HTTP server
type Server struct {
	addr     string
	dash     Dashboard
	printers Printers
	logs     *LogBuffer
	log      logging.Logger
	router   chi.Router
	started  time.Time
}

// NewServer creates a new HTTP server listening on addr
func NewServer(addr string, dash Dashboard, printers Printers, logs *LogBuffer, log logging.Logger) *Server {
	if logs == nil {
		logs = NewLogBuffer(500)
	}
	if log == nil {
		log = logging.Discard()
	}

	s := &Server{
		addr:     addr,
		dash:     dash,
		printers: printers,
		logs:     logs,
		log:      log.With("component", "web"),
		router:   chi.NewRouter(),
		started:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	// Dashboard
	r.Get("/", s.handleUI)
	r.Get("/fragment", s.handleFragment)
	r.Get("/api/view", s.handleView)
	r.Get("/api/status", s.handleStatus)

	// File actions
	r.Post("/api/files/{id}/print", s.handlePrint)
	r.Delete("/api/files/{id}", s.handleDelete)
	r.Post("/api/folders", s.handleCreateFolder)
	r.Post("/api/upload", s.handleUpload)
	r.Post("/api/clean-printed", s.handleCleanPrinted)
	r.Post("/api/refresh", s.handleRefresh)
	r.Post("/api/notices/{id}/dismiss", s.handleDismiss)

	// Printers
	r.Get("/api/printers", s.handleListPrinters)
	r.Post("/api/printers/{id}/test", s.handleTestPrint)

	r.Get("/api/logs", s.handleLogs)
}

// Handler exposes the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "dashboard listening", "addr", "http://"+s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleUI serves the dashboard shell
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, shell)
}

// handleFragment serves the rendered file grid
func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	out, err := render.HTML(s.dash.View())
	if err != nil {
		s.log.Error(r.Context(), "render fragment", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(out)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.View())
}

// handleStatus returns server status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := s.dash.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "running",
		"uptime":         time.Since(s.started).Round(time.Second).String(),
		"connection":     s.dash.Status(),
		"login_required": v.LoginRequired,
		"folders":        v.Stats.Folders,
		"files":          v.Stats.Files,
		"printed":        v.Stats.Printed,
	})
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.dash.Print(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.dash.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// CreateFolderRequest is the body of POST /api/folders
type CreateFolderRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	folder, err := s.dash.CreateFolder(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// handleUpload relays a multipart form (folder_name plus one or more
// "files" parts) to the backend
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	folderName := strings.TrimSpace(r.FormValue("folder_name"))
	headers := r.MultipartForm.File["files"]
	if folderName == "" || len(headers) == 0 {
		http.Error(w, "folder_name and files are required", http.StatusBadRequest)
		return
	}

	uploads := make([]dashboard.Upload, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			http.Error(w, "Unreadable upload", http.StatusBadRequest)
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, dashboard.Upload{Name: h.Filename, Content: f})
	}

	if err := s.dash.Upload(r.Context(), folderName, uploads); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "uploaded": len(uploads)})
}

func (s *Server) handleCleanPrinted(w http.ResponseWriter, r *http.Request) {
	n, err := s.dash.CleanPrinted(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Refresh(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Dismiss(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListPrinters returns configured printers
func (s *Server) handleListPrinters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"printers": s.printers.List(),
	})
}

// handleTestPrint sends a test print to a printer
func (s *Server) handleTestPrint(w http.ResponseWriter, r *http.Request) {
	printerID := chi.URLParam(r, "id")

	if err := s.printers.TestPrint(r.Context(), printerID); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Test print sent successfully",
	})
}

// handleLogs returns buffered log lines; ?level=warn,error filters them
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	var levels []string
	if q := r.URL.Query().Get("level"); q != "" {
		levels = strings.Split(q, ",")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": s.logs.Entries(levels),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps action errors to HTTP statuses
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, backend.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrUnknownFile), errors.Is(err, printer.ErrPrinterNotFound), backend.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, backend.ErrUnsupported):
		status = http.StatusNotImplemented
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}

	s.log.Warn(r.Context(), "request failed", "path", r.URL.Path, "status", status, "err", err)
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}
