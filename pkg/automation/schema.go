package automation

import (
	"fmt"
	"strings"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// durationConfigSchema is the event-specific configuration shape required by
// pubInStageForDuration automations.
const durationConfigSchema = `{
	"type": "object",
	"properties": {
		"duration": {"type": "integer", "minimum": 1},
		"interval": {"type": "string", "enum": ["minute", "hour", "day", "week", "month"]}
	},
	"required": ["duration", "interval"],
	"additionalProperties": false
}`

var durationSchema = gojsonschema.NewStringLoader(durationConfigSchema)

// validateEventConfig checks the event-specific configuration shape: duration
// automations require a duration config, every other event must not carry one.
func validateEventConfig(a *models.Automation) error {
	if a.Event != models.EventPubInStageForDuration {
		if a.Config != nil {
			return fmt.Errorf("%w: event %s must not carry a duration config", ErrAutomationConfig, a.Event)
		}

		return nil
	}

	if a.Config == nil {
		return fmt.Errorf("%w: event %s requires a duration config", ErrAutomationConfig, a.Event)
	}

	result, err := gojsonschema.Validate(durationSchema, gojsonschema.NewGoLoader(a.Config))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAutomationConfig, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrAutomationConfig, strings.Join(details, "; "))
	}

	return nil
}
