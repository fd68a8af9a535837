package models

import (
	"time"
)

// Student represents a row in the audited roster table
type Student struct {
	ID        int64      `json:"id" db:"id"` // storage-assigned, sequential
	Name      string     `json:"name" db:"name"`
	Grade     int        `json:"grade" db:"grade"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// TableName returns the table name for the Student model
func (Student) TableName() string {
	return "students"
}

// NewStudent creates a new Student instance
// The ID is assigned by the storage layer on insert
func NewStudent(name string, grade int) *Student {
	now := time.Now().UTC()
	return &Student{
		Name:      name,
		Grade:     grade,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsDeleted reports whether the student has been soft-deleted
func (s *Student) IsDeleted() bool {
	return s.DeletedAt != nil
}

// MarkDeleted stamps the soft-delete marker
func (s *Student) MarkDeleted(at time.Time) {
	s.DeletedAt = &at
	s.UpdatedAt = at
}
