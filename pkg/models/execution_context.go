package models

// PendingValueChange is one pub value mutation staged by an action, recorded
// into history when the surrounding run commits.
type PendingValueChange struct {
	FieldID  string `json:"field_id"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// ExecutionContext is the handle an action receives for one firing. It wraps
// the current pub and stages every value write so the engine can blame each
// changed field on the run that caused it.
type ExecutionContext struct {
	RunID            string
	ActionInstanceID string
	Event            AutomationEvent
	TriggerData      map[string]any

	pub     *Pub
	changes []PendingValueChange
}

// NewExecutionContext builds the handle for one firing against pub.
func NewExecutionContext(runID, actionInstanceID string, pub *Pub, event AutomationEvent, triggerData map[string]any) *ExecutionContext {
	return &ExecutionContext{
		RunID:            runID,
		ActionInstanceID: actionInstanceID,
		Event:            event,
		TriggerData:      triggerData,
		pub:              pub,
	}
}

// Pub returns the pub being acted on.
func (c *ExecutionContext) Pub() *Pub {
	return c.pub
}

// Value returns the current value of a pub field.
func (c *ExecutionContext) Value(fieldID string) (any, bool) {
	v, ok := c.pub.Values[fieldID]

	return v, ok
}

// SetValue stages a pub value write, capturing the old value for blame.
func (c *ExecutionContext) SetValue(fieldID string, value any) {
	if c.pub.Values == nil {
		c.pub.Values = map[string]any{}
	}

	old := c.pub.Values[fieldID]
	c.pub.Values[fieldID] = value
	c.changes = append(c.changes, PendingValueChange{
		FieldID:  fieldID,
		OldValue: old,
		NewValue: value,
	})
}

// Changes returns the staged value writes in the order they were made.
func (c *ExecutionContext) Changes() []PendingValueChange {
	return c.changes
}

// ConditionEnv builds the environment condition leaf expressions evaluate
// against: the pub's values at the top level plus title, status, stage and the
// triggering event.
func (c *ExecutionContext) ConditionEnv() map[string]any {
	env := make(map[string]any, len(c.pub.Values)+4)
	for k, v := range c.pub.Values {
		env[k] = v
	}

	env["title"] = c.pub.Title
	env["status"] = string(c.pub.Status)
	env["stage"] = c.pub.StageID
	env["event"] = string(c.Event)

	return env
}
