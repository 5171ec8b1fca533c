package models

import "time"

// PubValueChange is an append-only snapshot of a pub value before and after a
// mutating action run. Rows are never updated or deleted in normal operation;
// they back blame views and rollback tooling.
type PubValueChange struct {
	ID          string    `json:"id"`
	PubID       string    `json:"pub_id"`
	FieldID     string    `json:"field_id"`
	OldValue    any       `json:"old_value"`
	NewValue    any       `json:"new_value"`
	ActionRunID string    `json:"action_run_id"`
	Actor       Actor     `json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
}
