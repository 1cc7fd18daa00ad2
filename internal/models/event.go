package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind is the logical kind of a pushed change
type EventKind int

const (
	EventUnknown EventKind = iota
	EventFileAdded
	EventFileDeleted
	EventFolderCreated
	// EventSnapshot carries the complete file list (legacy /ws/admin feed)
	EventSnapshot
)

func (k EventKind) String() string {
	switch k {
	case EventFileAdded:
		return "file_added"
	case EventFileDeleted:
		return "file_deleted"
	case EventFolderCreated:
		return "folder_created"
	case EventSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// Event is a decoded push message
type Event struct {
	Kind   EventKind
	Type   string // wire tag as received
	File   File
	FileID string
	Folder Folder
	Files  []File
}

// envelope is the {type, payload} frame sent by the hub
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var ErrEmptyFrame = errors.New("empty frame")

// KindOf maps a wire tag to its logical kind
func KindOf(tag string) EventKind {
	switch tag {
	case "new_file", "file_added", "file_created", "file_uploaded":
		return EventFileAdded
	case "file_deleted", "file_removed":
		return EventFileDeleted
	case "folder_created", "new_folder":
		return EventFolderCreated
	default:
		return EventUnknown
	}
}

// DecodeEvent parses a push frame. Unknown tags decode successfully with
// Kind EventUnknown; only malformed JSON or payloads return an error.
func DecodeEvent(data []byte) (Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Event{}, ErrEmptyFrame
	}

	if data[0] == '[' {
		var files []File
		if err := json.Unmarshal(data, &files); err != nil {
			return Event{}, fmt.Errorf("decode snapshot: %w", err)
		}
		return Event{Kind: EventSnapshot, Type: "snapshot", Files: files}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}

	ev := Event{Kind: KindOf(env.Type), Type: env.Type}

	switch ev.Kind {
	case EventFileAdded:
		if err := json.Unmarshal(env.Payload, &ev.File); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if ev.File.ID == "" {
			return Event{}, fmt.Errorf("decode %s payload: missing id", env.Type)
		}
	case EventFileDeleted:
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if p.ID == "" {
			return Event{}, fmt.Errorf("decode %s payload: missing id", env.Type)
		}
		ev.FileID = p.ID
	case EventFolderCreated:
		if err := json.Unmarshal(env.Payload, &ev.Folder); err != nil {
			return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		if ev.Folder.ID == "" {
			return Event{}, fmt.Errorf("decode %s payload: missing id", env.Type)
		}
	}

	return ev, nil
}
