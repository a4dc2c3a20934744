package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/factory-platform/production-service/pkg/api"
	"github.com/factory-platform/production-service/pkg/auth"
	"github.com/factory-platform/production-service/pkg/errors"
	"github.com/factory-platform/production-service/pkg/logging"
	"github.com/factory-platform/production-service/pkg/middleware"

	"github.com/factory-platform/production-service/internal/application"
)

// StageService is the application surface the stage handlers depend on
type StageService interface {
	CreateStage(ctx context.Context, cmd application.CreateStageCommand) (*application.StageDTO, error)
	GetStage(ctx context.Context, query application.GetStageQuery) (*application.StageDTO, error)
	ListStages(ctx context.Context, req api.ListRequest) (*api.PageResponse[application.StageDTO], error)
	UpdateStage(ctx context.Context, cmd application.UpdateStageCommand) (*application.StageDTO, error)
	UpdateStageEdges(ctx context.Context, cmd application.UpdateStageEdgesCommand) (*application.StageDTO, error)
	RecordProgress(ctx context.Context, cmd application.RecordProgressCommand) (*application.StageDTO, error)
	SetStatus(ctx context.Context, cmd application.SetStageStatusCommand) (*application.StageDTO, error)
	DeleteStage(ctx context.Context, cmd application.DeleteStageCommand) error
	GetStats(ctx context.Context, filter api.FilterRequest) ([]application.StageStatsDTO, error)
}

// StageHandlers contains handlers for production stage operations
type StageHandlers struct {
	service StageService
	logger  *logging.Logger
}

// NewStageHandlers creates a new StageHandlers
func NewStageHandlers(service StageService, logger *logging.Logger) *StageHandlers {
	return &StageHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers stage routes on the router
func (h *StageHandlers) RegisterRoutes(router *gin.RouterGroup) {
	stages := router.Group("/stages")
	{
		stages.POST("", middleware.RequireCapability(auth.CapManageStages), h.CreateStage)
		stages.GET("", h.ListStages)
		stages.GET("/stats", middleware.RequireCapability(auth.CapViewReports), h.GetStats)
		stages.GET("/:stageId", h.GetStage)
		stages.PUT("/:stageId", middleware.RequireCapability(auth.CapManageStages), h.UpdateStage)
		stages.PUT("/:stageId/edges", middleware.RequireCapability(auth.CapManageStages), h.UpdateEdges)
		stages.POST("/:stageId/progress", middleware.RequireCapability(auth.CapRecordProgress), h.RecordProgress)
		stages.PUT("/:stageId/status", middleware.RequireCapability(auth.CapManageStages), h.SetStatus)
		stages.DELETE("/:stageId", middleware.RequireCapability(auth.CapDeleteStages), h.DeleteStage)
	}
}

// CreateStage handles stage creation
func (h *StageHandlers) CreateStage(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req struct {
		Name           string   `json:"name" binding:"required"`
		Order          int      `json:"order" binding:"required,min=1"`
		TargetQuantity int      `json:"targetQuantity" binding:"required,min=1"`
		Predecessors   []string `json:"predecessors"`
		Successors     []string `json:"successors"`
		AssignedUserID string   `json:"assignedUserId"`
		SupervisorID   string   `json:"supervisorId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stage.name": req.Name,
	})

	cmd := application.CreateStageCommand{
		Name:           req.Name,
		Order:          req.Order,
		TargetQuantity: req.TargetQuantity,
		Predecessors:   req.Predecessors,
		Successors:     req.Successors,
		AssignedUserID: req.AssignedUserID,
		SupervisorID:   req.SupervisorID,
	}

	stage, err := h.service.CreateStage(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, stage)
}

// GetStage handles getting a stage by ID
func (h *StageHandlers) GetStage(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stageID := c.Param("stageId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stage.id": stageID,
	})

	query := application.GetStageQuery{StageID: stageID}

	stage, err := h.service.GetStage(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, stage)
}

// ListStages handles listing stages with pagination and filtering
func (h *StageHandlers) ListStages(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	req := api.ParseListRequest(c, "order")

	page, err := h.service.ListStages(c.Request.Context(), req)
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateStage handles updating stage details
func (h *StageHandlers) UpdateStage(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stageID := c.Param("stageId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stage.id": stageID,
	})

	var req struct {
		Name           string `json:"name"`
		Order          int    `json:"order"`
		TargetQuantity int    `json:"targetQuantity"`
		AssignedUserID string `json:"assignedUserId"`
		SupervisorID   string `json:"supervisorId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.UpdateStageCommand{
		StageID:        stageID,
		Name:           req.Name,
		Order:          req.Order,
		TargetQuantity: req.TargetQuantity,
		AssignedUserID: req.AssignedUserID,
		SupervisorID:   req.SupervisorID,
	}

	stage, err := h.service.UpdateStage(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, stage)
}

// UpdateEdges handles replacing a stage's dependency edges
func (h *StageHandlers) UpdateEdges(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stageID := c.Param("stageId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stage.id": stageID,
	})

	var req struct {
		Predecessors []string `json:"predecessors"`
		Successors   []string `json:"successors"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.UpdateStageEdgesCommand{
		StageID:      stageID,
		Predecessors: req.Predecessors,
		Successors:   req.Successors,
	}

	stage, err := h.service.UpdateStageEdges(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, stage)
}

// RecordProgress handles recording a completed quantity on a stage
func (h *StageHandlers) RecordProgress(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stageID := c.Param("stageId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stage.id": stageID,
	})

	var req struct {
		CompletedQuantity *int `json:"completedQuantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// employees may only record progress on their own assignments
	if actor := middleware.GetActor(c); actor != nil {
		current, err := h.service.GetStage(c.Request.Context(), application.GetStageQuery{StageID: stageID})
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok {
				responder.RespondWithAppError(appErr)
			} else {
				responder.RespondInternalError(err)
			}
			return
		}
		if !actor.CanAccessStage(current.AssignedUserID, current.SupervisorID) {
			responder.RespondForbidden("stage is not assigned to you")
			return
		}
	}

	cmd := application.RecordProgressCommand{
		StageID:           stageID,
		CompletedQuantity: *req.CompletedQuantity,
	}

	stage, err := h.service.RecordProgress(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, stage)
}

// SetStatus handles hold, resume, and cancel transitions
func (h *StageHandlers) SetStatus(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stageID := c.Param("stageId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stage.id": stageID,
	})

	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.SetStageStatusCommand{
		StageID: stageID,
		Action:  req.Action,
	}

	stage, err := h.service.SetStatus(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, stage)
}

// DeleteStage handles deleting a stage
func (h *StageHandlers) DeleteStage(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	stageID := c.Param("stageId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"stage.id": stageID,
	})

	cmd := application.DeleteStageCommand{StageID: stageID}

	if err := h.service.DeleteStage(c.Request.Context(), cmd); err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStats handles the stage statistics aggregation
func (h *StageHandlers) GetStats(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	filter := api.ParseFilter(c)

	stats, err := h.service.GetStats(c.Request.Context(), filter)
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
