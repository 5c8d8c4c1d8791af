package integrations

import (
	"encoding/json"
	"time"
)

// Notification type constants
const (
	TypeExpenseApproved        = "expense.approved"
	TypeExpenseRejected        = "expense.rejected"
	TypeInitialExpenseApproved = "initial_expense.approved"
	TypeInitialExpenseRejected = "initial_expense.rejected"
	TypeMaterialsApproved      = "materials.approved"
	TypeMaterialReceived       = "material.received"
	TypeProjectArchived        = "project.archived"
	TypeProjectRestored        = "project.restored"
	TypeProjectDeleted         = "project.deleted"
	TypeCapitalReturned        = "capital.returned"
)

// Channel constants for delivery methods
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
)

// NotificationData holds structured notification metadata
type NotificationData struct {
	ProjectID    *int64         `json:"project_id,omitempty"`
	PhaseID      *int64         `json:"phase_id,omitempty"`
	ExpenseID    *int64         `json:"expense_id,omitempty"`
	MaterialID   *int64         `json:"material_id,omitempty"`
	AllocationID *int64         `json:"allocation_id,omitempty"`
	BatchID      string         `json:"batch_id,omitempty"`
	Amount       string         `json:"amount,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Encode renders the data as a JSON string.
func (nd *NotificationData) Encode() string {
	data, _ := json.Marshal(nd)
	return string(data)
}

// Notification is one message for one user, delivered by the notification service.
type Notification struct {
	UserID    int64            `json:"user_id"`
	Type      string           `json:"type"`
	Channel   string           `json:"channel"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      NotificationData `json:"data"`
	CreatedAt time.Time        `json:"created_at"`
}

// AuditEntry records who changed which financial record and how.
type AuditEntry struct {
	UserID     int64          `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	ProjectID  int64          `json:"project_id"`
	Changes    map[string]any `json:"changes,omitempty"`
	At         time.Time      `json:"at"`
}
