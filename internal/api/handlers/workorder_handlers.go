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

// WorkOrderService is the application surface the work order handlers depend on
type WorkOrderService interface {
	CreateWorkOrder(ctx context.Context, cmd application.CreateWorkOrderCommand) (*application.WorkOrderDTO, error)
	GetWorkOrder(ctx context.Context, query application.GetWorkOrderQuery) (*application.WorkOrderDTO, error)
	ListWorkOrders(ctx context.Context, req api.ListRequest) (*api.PageResponse[application.WorkOrderDTO], error)
	UpdateStageProgress(ctx context.Context, cmd application.UpdateWorkOrderStageProgressCommand) (*application.WorkOrderDTO, error)
	CancelWorkOrder(ctx context.Context, cmd application.CancelWorkOrderCommand) (*application.WorkOrderDTO, error)
}

// WorkOrderHandlers contains handlers for work order operations
type WorkOrderHandlers struct {
	service WorkOrderService
	logger  *logging.Logger
}

// NewWorkOrderHandlers creates a new WorkOrderHandlers
func NewWorkOrderHandlers(service WorkOrderService, logger *logging.Logger) *WorkOrderHandlers {
	return &WorkOrderHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers work order routes on the router
func (h *WorkOrderHandlers) RegisterRoutes(router *gin.RouterGroup) {
	workOrders := router.Group("/work-orders")
	{
		workOrders.POST("", middleware.RequireCapability(auth.CapManageStages), h.CreateWorkOrder)
		workOrders.GET("", h.ListWorkOrders)
		workOrders.GET("/:workOrderId", h.GetWorkOrder)
		workOrders.POST("/:workOrderId/stages/:stageId/progress", middleware.RequireCapability(auth.CapRecordProgress), h.UpdateStageProgress)
		workOrders.PUT("/:workOrderId/cancel", middleware.RequireCapability(auth.CapManageStages), h.CancelWorkOrder)
	}
}

// CreateWorkOrder handles work order creation
func (h *WorkOrderHandlers) CreateWorkOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req struct {
		OrderNumber    string   `json:"orderNumber" binding:"required"`
		ProductName    string   `json:"productName"`
		TargetQuantity int      `json:"targetQuantity" binding:"required,min=1"`
		StageIDs       []string `json:"stageIds" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"workorder.number": req.OrderNumber,
	})

	cmd := application.CreateWorkOrderCommand{
		OrderNumber:    req.OrderNumber,
		ProductName:    req.ProductName,
		TargetQuantity: req.TargetQuantity,
		StageIDs:       req.StageIDs,
	}

	workOrder, err := h.service.CreateWorkOrder(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusCreated, workOrder)
}

// GetWorkOrder handles getting a work order by ID
func (h *WorkOrderHandlers) GetWorkOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	workOrderID := c.Param("workOrderId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"workorder.id": workOrderID,
	})

	query := application.GetWorkOrderQuery{WorkOrderID: workOrderID}

	workOrder, err := h.service.GetWorkOrder(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, workOrder)
}

// ListWorkOrders handles listing work orders with pagination and filtering
func (h *WorkOrderHandlers) ListWorkOrders(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	req := api.ParseListRequest(c, "createdAt")

	page, err := h.service.ListWorkOrders(c.Request.Context(), req)
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateStageProgress handles recording progress on one embedded stage entry
func (h *WorkOrderHandlers) UpdateStageProgress(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	workOrderID := c.Param("workOrderId")
	stageID := c.Param("stageId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"workorder.id": workOrderID,
		"stage.id":     stageID,
	})

	var req struct {
		CompletedQuantity *int `json:"completedQuantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := application.UpdateWorkOrderStageProgressCommand{
		WorkOrderID:       workOrderID,
		StageID:           stageID,
		CompletedQuantity: *req.CompletedQuantity,
	}

	workOrder, err := h.service.UpdateStageProgress(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, workOrder)
}

// CancelWorkOrder handles cancelling a work order
func (h *WorkOrderHandlers) CancelWorkOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	workOrderID := c.Param("workOrderId")
	middleware.AddSpanAttributes(c, map[string]interface{}{
		"workorder.id": workOrderID,
	})

	cmd := application.CancelWorkOrderCommand{WorkOrderID: workOrderID}

	workOrder, err := h.service.CancelWorkOrder(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, workOrder)
}
