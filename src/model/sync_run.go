package model

import "time"

const (
	SyncKindPositions = "positions"
	SyncKindOrders    = "orders"
)

// SyncRun stores the outcome of one reconciler invocation so failures can be
// surfaced to users after the fact.
type SyncRun struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	RunID string `gorm:"size:36;index" json:"run_id"` // shared by both kinds of one ReconcileAll
	Kind  string `gorm:"size:20;not null;index" json:"kind"`

	Success      bool    `json:"success"`
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`

	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Closed     int `json:"closed"`
	Deleted    int `json:"deleted"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
	Skipped    int `json:"skipped"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName allows you to control the exact table name for sync runs.
func (SyncRun) TableName() string {
	return "sync_runs"
}
