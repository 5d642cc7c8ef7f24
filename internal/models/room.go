package models

import "time"

// Room represents a named collaboration space joined by a short code.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	IsActive  bool      `db:"is_active" json:"is_active"`

	// Participants are ordered by join time, populated alongside the row.
	Participants []string `json:"participants"`
}
