// Package domain holds the core ShelfNotes types: users, books and reviews.
package domain

import "time"

// Record carries the identity and timestamps shared by every stored entity.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (r *Record) InitTimestamps() {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
}

// Touch updates UpdatedAt to now.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now().UTC()
}
