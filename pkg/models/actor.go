package models

import (
	"errors"
	"fmt"
)

// ActorType identifies who or what caused a change.
type ActorType string

const (
	ActorUser      ActorType = "user"
	ActorAPIToken  ActorType = "api_token"
	ActorActionRun ActorType = "action_run"
	ActorSystem    ActorType = "system"
)

var ErrInvalidActor = errors.New("invalid actor")

// Actor attributes a change to exactly one source: a user, an API token, a
// prior action run, or the system itself (seeding and migration tooling).
type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id,omitempty"`
}

// UserActor attributes to a user.
func UserActor(userID string) Actor {
	return Actor{Type: ActorUser, ID: userID}
}

// TokenActor attributes to an API token.
func TokenActor(tokenID string) Actor {
	return Actor{Type: ActorAPIToken, ID: tokenID}
}

// RunActor attributes to a prior action run.
func RunActor(actionRunID string) Actor {
	return Actor{Type: ActorActionRun, ID: actionRunID}
}

// SystemActor attributes to the system itself.
func SystemActor() Actor {
	return Actor{Type: ActorSystem}
}

// Validate checks that attribution resolves to exactly one source.
func (a Actor) Validate() error {
	switch a.Type {
	case ActorUser, ActorAPIToken, ActorActionRun:
		if a.ID == "" {
			return fmt.Errorf("%w: %s actor requires an ID", ErrInvalidActor, a.Type)
		}
	case ActorSystem:
		if a.ID != "" {
			return fmt.Errorf("%w: system actor must not carry an ID", ErrInvalidActor)
		}
	default:
		return fmt.Errorf("%w: unknown actor type %q", ErrInvalidActor, a.Type)
	}

	return nil
}
