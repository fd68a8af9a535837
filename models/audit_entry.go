package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction tags the kind of change an audit entry records.
// The set is closed: anything else is rejected before it reaches storage.
type AuditAction string

const (
	ActionInsert AuditAction = "INSERT"
	ActionUpdate AuditAction = "UPDATE"
	ActionDelete AuditAction = "DELETE"
)

// Valid reports whether the action is one of the recognized tags
func (a AuditAction) Valid() bool {
	switch a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ParseAuditAction converts a string into an AuditAction, rejecting
// anything outside the closed set
func ParseAuditAction(s string) (AuditAction, error) {
	a := AuditAction(s)
	if !a.Valid() {
		return "", fmt.Errorf("unrecognized action tag: %q", s)
	}
	return a, nil
}

// AuditEntry represents one row of the append-only change log.
// Entries are written in the same transaction as the student change
// they describe and are never mutated or deleted afterwards.
type AuditEntry struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	StudentID  int64           `json:"student_id" db:"student_id"`
	Action     AuditAction     `json:"action" db:"action"`
	OldData    json.RawMessage `json:"old_data,omitempty" db:"old_data"`
	NewData    json.RawMessage `json:"new_data,omitempty" db:"new_data"`
	RecordedAt time.Time       `json:"recorded_at" db:"recorded_at"`
}

// TableName returns the table name for the AuditEntry model
func (AuditEntry) TableName() string {
	return "students_log"
}

// NewAuditEntry creates a new AuditEntry instance.
// The timestamp is supplied by the caller so it can be taken after the
// primary write executed, which keeps per-student timestamps in commit order.
func NewAuditEntry(studentID int64, action AuditAction, recordedAt time.Time) *AuditEntry {
	return &AuditEntry{
		ID:         uuid.New(),
		StudentID:  studentID,
		Action:     action,
		RecordedAt: recordedAt,
	}
}

// WithOldData attaches the before image of the audited fields
func (e *AuditEntry) WithOldData(s *Student) *AuditEntry {
	e.OldData = snapshotFields(s)
	return e
}

// WithNewData attaches the after image of the audited fields
func (e *AuditEntry) WithNewData(s *Student) *AuditEntry {
	e.NewData = snapshotFields(s)
	return e
}

// studentSnapshot is the audited subset of Student captured in old/new images
type studentSnapshot struct {
	Name  string `json:"name"`
	Grade int    `json:"grade"`
}

func snapshotFields(s *Student) json.RawMessage {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(studentSnapshot{Name: s.Name, Grade: s.Grade})
	if err != nil {
		return nil
	}
	return data
}
