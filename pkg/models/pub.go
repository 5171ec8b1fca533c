// Package models defines the core domain models for stage-based editorial automation.
package models

import "time"

// PubStatus represents the publication state of a pub.
type PubStatus string

const (
	PubStatusDraft     PubStatus = "draft"
	PubStatusPublished PubStatus = "published"
	PubStatusArchived  PubStatus = "archived"
)

// Pub is a publishable item flowing through workflow stages. Values holds the
// pub's field values keyed by field ID; conditions and blame both operate on it.
type Pub struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"      validate:"required,min=1"`
	StageID   string         `json:"stage_id"`
	Status    PubStatus      `json:"status"     validate:"required"`
	Values    map[string]any `json:"values"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Stage is a named workflow state a pub can occupy.
type Stage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"  validate:"required,min=1"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
