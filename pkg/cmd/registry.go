// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/pubflow/pubflow/pkg/actions/email"
	"github.com/pubflow/pubflow/pkg/actions/httprequest"
	logaction "github.com/pubflow/pubflow/pkg/actions/log"
	"github.com/pubflow/pubflow/pkg/actions/transform"
	"github.com/pubflow/pubflow/pkg/expression"
	"github.com/pubflow/pubflow/pkg/protocol"
	"github.com/pubflow/pubflow/pkg/registry"
)

// NewRegistry builds the action registry with the native action set. The
// scheduler may be nil, in which case the email action delivers inline.
func NewRegistry(logger *slog.Logger, scheduler protocol.JobScheduler) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterAction(logaction.NewActionFactory())
	reg.RegisterAction(transform.NewActionFactory(expression.NewEvaluator()))
	reg.RegisterAction(email.NewActionFactory(scheduler))
	reg.RegisterAction(httprequest.NewActionFactory())

	return reg
}
