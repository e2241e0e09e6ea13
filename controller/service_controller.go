package controller

import (
	"net/http"

	"taller-backend/models"
	"taller-backend/services"
	"taller-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type ServiceController struct {
	intake    services.IntakeServiceInterface
	lifecycle services.LifecycleServiceInterface
	logger    logger.Logger
	validator *validator.Validate
}

func NewServiceController(intake services.IntakeServiceInterface, lifecycle services.LifecycleServiceInterface, log logger.Logger) *ServiceController {
	return &ServiceController{
		intake:    intake,
		lifecycle: lifecycle,
		logger:    log,
		validator: validator.New(),
	}
}

// Intake handles POST /services/intake. The client, vehicle, service and photos are
// registered together or not at all.
func (h *ServiceController) Intake(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var draft models.IntakeDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}

	serviceID, err := h.intake.Commit(c.Request.Context(), draft, actor)
	if err != nil {
		respondError(c, h.logger, "Service registration failed", err)
		return
	}

	respond(c, http.StatusCreated, "Service registered successfully", models.CommitResponse{ServiceID: serviceID})
}

// GetService handles GET /services/:id
func (h *ServiceController) GetService(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	service, err := h.lifecycle.GetService(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, h.logger, "Failed to retrieve service", err)
		return
	}
	respond(c, http.StatusOK, "Service retrieved successfully", service)
}

// SaveEdits handles PUT /services/:id
func (h *ServiceController) SaveEdits(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var edited models.Service
	if err := c.ShouldBindJSON(&edited); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}
	edited.ID = c.Param("id")

	saved, err := h.lifecycle.SaveEdits(c.Request.Context(), &edited, actor)
	if err != nil {
		respondError(c, h.logger, "Failed to save service", err)
		return
	}
	respond(c, http.StatusOK, "Service saved successfully", saved)
}

// Transition handles POST /services/:id/transitions. The draft in the body is saved
// together with the status change.
func (h *ServiceController) Transition(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}
	req.Service.ID = c.Param("id")

	updated, err := h.lifecycle.RequestTransition(c.Request.Context(), req.Service, req.Target, actor)
	if err != nil {
		respondError(c, h.logger, "Status change rejected", err)
		return
	}
	respond(c, http.StatusOK, "Status changed successfully", updated)
}

// Totals handles GET /services/:id/totals for the stored service
func (h *ServiceController) Totals(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	service, err := h.lifecycle.GetService(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, h.logger, "Failed to retrieve service", err)
		return
	}

	h.writeTotals(c, service, actor)
}

// ComputeTotals handles POST /services/totals for an unsaved draft
func (h *ServiceController) ComputeTotals(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var draft models.Service
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}

	h.writeTotals(c, &draft, actor)
}

func (h *ServiceController) writeTotals(c *gin.Context, service *models.Service, actor models.Actor) {
	totals, err := h.lifecycle.ComputeTotals(service, actor)
	if err != nil {
		respondError(c, h.logger, "Failed to compute totals", err)
		return
	}
	respond(c, http.StatusOK, "Totals computed successfully", totals)
}

// Changes handles POST /services/:id/changes and reports whether the draft in the
// body differs from the stored service as the caller sees it.
func (h *ServiceController) Changes(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}

	var draft models.Service
	if err := c.ShouldBindJSON(&draft); err != nil {
		respondBadRequest(c, h.logger, err)
		return
	}

	stored, err := h.lifecycle.GetService(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		respondError(c, h.logger, "Failed to retrieve service", err)
		return
	}
	draft.ID = stored.ID

	respond(c, http.StatusOK, "", models.DirtyCheckResponse{Dirty: services.IsDirty(&draft, stored)})
}
