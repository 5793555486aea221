package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action verbs written to the audit trail.
const (
	ActionCreate       = "CREATE"
	ActionUpdate       = "UPDATE"
	ActionUpdateStatus = "UPDATE_STATUS"
	ActionReject       = "REJECT"
	ActionRegister     = "REGISTER"
	ActionLogin        = "LOGIN"
	ActionExport       = "EXPORT"
)

// Modules group entries by the part of the lab that produced them.
const (
	ModuleAuth      = "auth"
	ModulePatients  = "patients"
	ModuleTests     = "tests"
	ModuleSpecimens = "specimens"
	ModuleResults   = "results"
	ModuleQC        = "qc"
	ModuleInventory = "inventory"
	ModuleNABL      = "nabl_documents"
	ModuleAudit     = "audit"
)

// Details is the free-form payload of an entry.
type Details map[string]any

// Entry is one immutable audit record. Seq is assigned by the store and
// breaks ties between entries recorded in the same instant.
type Entry struct {
	Seq           int64     `json:"seq"`
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserRole      string    `json:"user_role"`
	Action        string    `json:"action"`
	Module        string    `json:"module"`
	Details       Details   `json:"details"`
	SourceAddress string    `json:"ip_address"`
	RecordedAt    time.Time `json:"timestamp"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Module string
	UserID string
}

// before reports whether a sorts ahead of b in the reverse chronological
// listing order.
func before(a, b *Entry) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	return a.Seq > b.Seq
}
