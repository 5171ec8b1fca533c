package models

import "time"

// ActionInstance is a configured, named instance of an action type bound to one
// stage. Configuration is opaque to the engine; each action type validates its
// own configuration against the schema exposed by its factory.
type ActionInstance struct {
	ID            string         `json:"id"`
	StageID       string         `json:"stage_id"      validate:"required"`
	Type          string         `json:"type"          validate:"required"`
	Name          string         `json:"name"          validate:"required,min=1"`
	Configuration map[string]any `json:"configuration"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// MergedConfiguration returns the stored configuration with override applied
// field-by-field on top. Neither input map is mutated.
func (a *ActionInstance) MergedConfiguration(override map[string]any) map[string]any {
	merged := make(map[string]any, len(a.Configuration)+len(override))
	for k, v := range a.Configuration {
		merged[k] = v
	}

	for k, v := range override {
		merged[k] = v
	}

	return merged
}
