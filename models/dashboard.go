package models

import (
	"time"

	"github.com/google/uuid"
)

// DashboardState represents the top-level state of a dashboard session
type DashboardState string

const (
	StateIdle      DashboardState = "idle"
	StateAnalyzing DashboardState = "analyzing"
	StateReady     DashboardState = "ready"
)

// Tab represents one per-clause analysis tab
type Tab string

const (
	TabSummary     Tab = "summary"
	TabRisk        Tab = "risk"
	TabStandards   Tab = "standards"
	TabNegotiation Tab = "negotiation"
)

// Tabs lists the per-clause tabs in display order
var Tabs = []Tab{TabSummary, TabRisk, TabStandards, TabNegotiation}

// Capability returns the capability behind a tab. The risk tab is served
// from the clause itself and has none.
func (t Tab) Capability() (Capability, bool) {
	switch t {
	case TabSummary:
		return CapabilitySummarize, true
	case TabStandards:
		return CapabilityStandards, true
	case TabNegotiation:
		return CapabilityNegotiate, true
	}
	return "", false
}

// Valid reports whether t names a known tab
func (t Tab) Valid() bool {
	for _, known := range Tabs {
		if t == known {
			return true
		}
	}
	return false
}

// PanelStatus represents the local state of one panel
type PanelStatus string

const (
	PanelIdle    PanelStatus = "idle"
	PanelLoading PanelStatus = "loading"
	PanelLoaded  PanelStatus = "loaded"
	PanelFailed  PanelStatus = "failed"
)

// PanelState is the pending/error/result state of a single panel
type PanelState struct {
	Status    PanelStatus `json:"status"`
	ClauseID  string      `json:"clause_id,omitempty"`
	Query     string      `json:"query,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     *string     `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Notification is a top-level, user-visible message
type Notification struct {
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardSnapshot is the read model handed to the presentation layer
type DashboardSnapshot struct {
	SessionID        uuid.UUID          `json:"session_id"`
	State            DashboardState     `json:"state"`
	Document         *Document          `json:"document,omitempty"`
	Clauses          []Clause           `json:"clauses"`
	SelectedClauseID *string            `json:"selected_clause_id,omitempty"`
	Tabs             map[Tab]PanelState `json:"tabs"`
	Question         PanelState         `json:"question"`
	Scenario         PanelState         `json:"scenario"`
	Notification     *Notification      `json:"notification,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
