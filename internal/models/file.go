package models

import (
	"encoding/json"
	"time"
)

// File represents an uploaded file as delivered by the backend
type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"file_name"`
	Path        string    `json:"file_path,omitempty"`
	Size        int64     `json:"file_size"`
	ContentType string    `json:"file_type"`
	FolderID    string    `json:"folder_id"`
	FolderName  string    `json:"folder_name"`
	Processed   bool      `json:"is_processed"`
	UploadedAt  time.Time `json:"upload_date"`
	UploadCode  string    `json:"upload_code,omitempty"`
}

// fileWire accepts every field spelling used by the deployed backends
type fileWire struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	OriginalName string    `json:"original_name"`
	FilePath     string    `json:"file_path"`
	FileSize     int64     `json:"file_size"`
	FileType     string    `json:"file_type"`
	ContentType  string    `json:"content_type"`
	FolderID     string    `json:"folder_id"`
	FolderName   string    `json:"folder_name"`
	IsProcessed  bool      `json:"is_processed"`
	UploadDate   time.Time `json:"upload_date"`
	UploadedAt   time.Time `json:"uploaded_at"`
	UploadCode   string    `json:"upload_code"`
}

// UnmarshalJSON decodes a file record, resolving field aliases
func (f *File) UnmarshalJSON(data []byte) error {
	var w fileWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*f = File{
		ID:          w.ID,
		Name:        firstNonEmpty(w.OriginalName, w.FileName),
		Path:        w.FilePath,
		Size:        w.FileSize,
		ContentType: firstNonEmpty(w.ContentType, w.FileType),
		FolderID:    w.FolderID,
		FolderName:  w.FolderName,
		Processed:   w.IsProcessed,
		UploadedAt:  w.UploadDate,
		UploadCode:  w.UploadCode,
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = w.UploadedAt
	}
	// The legacy backend stores under file_name and displays original_name
	if f.Path == "" && w.OriginalName != "" {
		f.Path = w.FileName
	}
	return nil
}

// Folder is a named grouping of files
type Folder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Files []File `json:"files,omitempty"`
}

// ConnectionState is the status of the live update channel
type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateDisconnected ConnectionState = "disconnected"
)

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
