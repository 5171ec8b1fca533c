package registry

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// validateConfig checks an action configuration against the JSON schema its
// factory exposes. A nil schema skips validation.
func validateConfig(schema map[string]any, config map[string]any) error {
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return fmt.Errorf("configuration does not match schema: %s", strings.Join(details, "; "))
}
