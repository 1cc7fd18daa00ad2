package backend

import (
	"time"

	"github.com/jetsetgo/printdesk/internal/models"
)

// ConnectionStatus represents the push channel status
type ConnectionStatus struct {
	State        models.ConnectionState `json:"state"`
	Connected    bool                   `json:"connected"`
	Reconnecting bool                   `json:"reconnecting"`
	Attempts     int                    `json:"attempts"`
	LastError    string                 `json:"last_error,omitempty"`
	LastSeen     time.Time              `json:"last_seen"`
}
