// Package render projects store snapshots into a presentation-neutral view.
package render

import (
	"fmt"
	"time"

	"github.com/jetsetgo/printdesk/internal/format"
	"github.com/jetsetgo/printdesk/internal/models"
	"github.com/jetsetgo/printdesk/internal/state"
)

// ActionKind names an operation a file card offers
type ActionKind string

const (
	ActionPrint  ActionKind = "print"
	ActionDelete ActionKind = "delete"
)

// Action is a card button bound to the file id captured at render time
type Action struct {
	Kind   ActionKind `json:"kind"`
	Label  string     `json:"label"`
	FileID string     `json:"file_id"`
}

// Card is one rendered file
type Card struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Size      string   `json:"size"`
	Kind      string   `json:"kind"`
	Uploaded  string   `json:"uploaded"`
	Age       string   `json:"age,omitempty"`
	Code      string   `json:"code,omitempty"`
	Processed bool     `json:"processed"`
	Badge     string   `json:"badge"`
	Actions   []Action `json:"actions"`
}

// FolderView is a folder header plus its grid of cards
type FolderView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FileCount int    `json:"file_count"`
	Summary   string `json:"summary"`
	Cards     []Card `json:"cards"`
}

// Placeholder is shown instead of the folder grid when nothing is known
type Placeholder struct {
	Title string `json:"title"`
	Hint  string `json:"hint"`
}

// Stats are the dashboard counters
type Stats struct {
	Folders int `json:"folders"`
	Files   int `json:"files"`
	Printed int `json:"printed"`
}

// Notice is a transient message shown above the grid
type Notice struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"` // info, success, error
	Text    string    `json:"text"`
	Expires time.Time `json:"expires"`
}

// Status is the connection indicator
type Status struct {
	State models.ConnectionState `json:"state"`
	Label string                 `json:"label"`
}

// View is the full dashboard description
type View struct {
	Stats         Stats        `json:"stats"`
	Status        Status       `json:"status"`
	Empty         *Placeholder `json:"empty,omitempty"`
	Folders       []FolderView `json:"folders"`
	Notices       []Notice     `json:"notices,omitempty"`
	LoginRequired bool         `json:"login_required,omitempty"`
	RenderedAt    time.Time    `json:"rendered_at"`
}

// Options carries the non-store inputs of a render
type Options struct {
	Now           time.Time
	Location      *time.Location
	State         models.ConnectionState
	Notices       []Notice
	LoginRequired bool
}

// EmptyState is the placeholder used when there are no files
var EmptyState = Placeholder{
	Title: "No files yet",
	Hint:  "Waiting for users to upload files...",
}

// Render builds the view for snap. It recomputes everything on each call.
func Render(snap state.Snapshot, opts Options) View {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	v := View{
		Stats: Stats{
			Folders: len(snap.Folders),
			Files:   len(snap.Files),
		},
		Status:        statusFor(opts.State),
		Folders:       make([]FolderView, 0, len(snap.Folders)),
		LoginRequired: opts.LoginRequired,
		RenderedAt:    opts.Now,
	}

	for _, f := range snap.Files {
		if f.Processed {
			v.Stats.Printed++
		}
	}

	for _, n := range opts.Notices {
		if n.Expires.IsZero() || n.Expires.After(opts.Now) {
			v.Notices = append(v.Notices, n)
		}
	}

	if len(snap.Files) == 0 {
		empty := EmptyState
		v.Empty = &empty
		return v
	}

	for _, folder := range snap.Folders {
		if len(folder.Files) == 0 {
			continue
		}

		fv := FolderView{
			ID:        folder.ID,
			Name:      folder.Name,
			FileCount: len(folder.Files),
			Summary:   fmt.Sprintf("%d file(s)", len(folder.Files)),
			Cards:     make([]Card, 0, len(folder.Files)),
		}
		for _, f := range folder.Files {
			fv.Cards = append(fv.Cards, cardFor(f, opts))
		}
		v.Folders = append(v.Folders, fv)
	}

	return v
}

func cardFor(f models.File, opts Options) Card {
	c := Card{
		ID:        f.ID,
		Name:      f.Name,
		Size:      format.FileSize(f.Size),
		Kind:      format.FileKind(f.ContentType),
		Uploaded:  format.Timestamp(f.UploadedAt, opts.Location),
		Age:       format.Age(f.UploadedAt, opts.Now),
		Code:      f.UploadCode,
		Processed: f.Processed,
		Badge:     "Pending",
		Actions: []Action{
			{Kind: ActionPrint, Label: "Print", FileID: f.ID},
			{Kind: ActionDelete, Label: "Delete", FileID: f.ID},
		},
	}
	if f.Processed {
		c.Badge = "Printed"
	}
	if c.Name == "" {
		c.Name = f.ID
	}
	return c
}

func statusFor(s models.ConnectionState) Status {
	switch s {
	case models.StateConnected:
		return Status{State: s, Label: "Live updates"}
	case models.StateConnecting:
		return Status{State: s, Label: "Connecting..."}
	default:
		return Status{State: models.StateDisconnected, Label: "Reconnecting..."}
	}
}
