// Package web provides the REST API for pubs, action instances, automations
// and action runs.
package web

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/pubflow/pubflow/pkg/engine"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/registry"
	"github.com/pubflow/pubflow/pkg/services"
)

type APIHandlers struct {
	pubService        *services.PubService
	instanceService   *services.ActionInstanceService
	automationService *services.AutomationService
	executor          *engine.Executor
	registry          *registry.Registry
	validator         *validator.Validate
}

func NewAPIHandlers(
	pubService *services.PubService,
	instanceService *services.ActionInstanceService,
	automationService *services.AutomationService,
	executor *engine.Executor,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		pubService:        pubService,
		instanceService:   instanceService,
		automationService: automationService,
		executor:          executor,
		registry:          registry,
		validator:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Pub handlers.

func (h *APIHandlers) CreatePub(c fiber.Ctx) error {
	var req CreatePubRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	pub, err := h.pubService.Create(c.Context(), &models.Pub{
		Title:   req.Title,
		StageID: req.StageID,
		Status:  req.Status,
		Values:  req.Values,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(pub)
}

func (h *APIHandlers) GetPub(c fiber.Ctx) error {
	pub, err := h.pubService.Get(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsPubNotFound(err) {
			return notFound(c, "Pub not found")
		}

		return internalError(c, err)
	}

	return c.JSON(pub)
}

// MovePub moves a pub to another stage, which publishes the stage lifecycle
// events the worker turns into automation firings.
func (h *APIHandlers) MovePub(c fiber.Ctx) error {
	var req MovePubRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	pub, err := h.pubService.MoveStage(c.Context(), c.Params("id"), req.StageID, actorOrSystem(req.Actor))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(pub)
}

func (h *APIHandlers) SetPubValue(c fiber.Ctx) error {
	var req SetValueRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.pubService.SetValue(c.Context(), c.Params("id"), req.FieldID, req.Value, actorOrSystem(req.Actor))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetPubHistory(c fiber.Ctx) error {
	changes, err := h.pubService.History(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"history": changes})
}

func (h *APIHandlers) GetPubRuns(c fiber.Ctx) error {
	runs, err := h.pubService.Runs(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

// Action instance handlers.

func (h *APIHandlers) SaveActionInstance(c fiber.Ctx) error {
	var req SaveActionInstanceRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	instance := &models.ActionInstance{
		ID:            c.Params("id"),
		StageID:       req.StageID,
		Type:          req.Type,
		Name:          req.Name,
		Configuration: req.Configuration,
	}

	saved, err := h.instanceService.Save(c.Context(), instance)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *APIHandlers) GetActionInstance(c fiber.Ctx) error {
	instance, err := h.instanceService.Get(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsActionInstanceNotFound(err) {
			return notFound(c, "Action instance not found")
		}

		return internalError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) ListStageActionInstances(c fiber.Ctx) error {
	instances, err := h.instanceService.ListByStage(c.Context(), c.Params("stageId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"action_instances": instances})
}

// DeleteActionInstance deletes an instance and cascades to the automations
// that target it or fire from its completion.
func (h *APIHandlers) DeleteActionInstance(c fiber.Ctx) error {
	err := h.instanceService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunActionInstance triggers one action instance for a pub outside any
// automation, attributed to the calling actor.
func (h *APIHandlers) RunActionInstance(c fiber.Ctx) error {
	var req RunActionRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	runs, err := h.executor.RunActionInstance(c.Context(), engine.RunRequest{
		ActionInstanceID: c.Params("id"),
		PubID:            req.PubID,
		OverrideConfig:   req.Config,
		Actor:            actorOrSystem(req.Actor),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

// Automation handlers.

func (h *APIHandlers) SaveAutomation(c fiber.Ctx) error {
	var req SaveAutomationRequest

	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	automation := &models.Automation{
		ID:                     c.Params("id"),
		StageID:                req.StageID,
		ActionInstanceID:       req.ActionInstanceID,
		Event:                  req.Event,
		SourceActionInstanceID: req.SourceActionInstanceID,
		Config:                 req.Config,
		Condition:              req.Condition,
	}

	saved, err := h.automationService.Save(c.Context(), automation)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *APIHandlers) GetAutomation(c fiber.Ctx) error {
	automation, err := h.automationService.Get(c.Context(), c.Params("id"))
	if err != nil {
		if persistence.IsAutomationNotFound(err) {
			return notFound(c, "Automation not found")
		}

		return internalError(c, err)
	}

	return c.JSON(automation)
}

func (h *APIHandlers) ListStageAutomations(c fiber.Ctx) error {
	automations, err := h.automationService.ListByStage(c.Context(), c.Params("stageId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"automations": automations})
}

func (h *APIHandlers) DeleteAutomation(c fiber.Ctx) error {
	err := h.automationService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Registry handlers.

func (h *APIHandlers) ListActionTypes(c fiber.Ctx) error {
	types := make([]fiber.Map, 0)

	for _, actionType := range h.registry.ActionTypes() {
		factory, ok := h.registry.ActionFactory(actionType)
		if !ok {
			continue
		}

		types = append(types, fiber.Map{
			"id":          factory.ID(),
			"name":        factory.Name(),
			"description": factory.Description(),
			"schema":      factory.Schema(),
		})
	}

	return c.JSON(fiber.Map{"actions": types})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	storageErr := h.pubService.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if !regOk || storageErr != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	storageCheck := "ok"
	if storageErr != nil {
		storageCheck = storageErr.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry": registryCheck,
			"storage":  storageCheck,
		},
	})
}
