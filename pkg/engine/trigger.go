package engine

import (
	"github.com/pubflow/pubflow/pkg/models"
)

// trigger is one pending firing in the executor's work queue. Recursive
// fan-out across sequential automations is drained iteratively from this
// queue instead of through literal recursion, keeping stack usage flat.
type trigger struct {
	automation     *models.Automation // matched rule; nil for direct runs
	actionInstance string
	pubID          string
	event          models.AutomationEvent
	overrideConfig map[string]any
	actor          models.Actor
	depth          int
}

// RunRequest asks the executor to run one action instance directly: a manual
// trigger from the API, or a deferred job re-entering the engine. When
// AutomationID is set, that automation's condition tree gates the firing and
// its stage is checked against the pub's current stage.
type RunRequest struct {
	ActionInstanceID string
	PubID            string
	Event            models.AutomationEvent
	AutomationID     string
	OverrideConfig   map[string]any
	Actor            models.Actor
}
