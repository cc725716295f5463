package models

import (
	"time"

	"github.com/google/uuid"
)

// Report represents an exported contract analysis report
type Report struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	RiskyCount  int       `json:"risky_count"`
	StoragePath string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
