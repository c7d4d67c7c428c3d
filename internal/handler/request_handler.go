package handler

import (
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type FuelRequestHandler struct {
	requestService  service.FuelRequestService
	decisionService service.DecisionService
}

func NewFuelRequestHandler(requestService service.FuelRequestService, decisionService service.DecisionService) *FuelRequestHandler {
	return &FuelRequestHandler{requestService: requestService, decisionService: decisionService}
}

func (h *FuelRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(
		model.RoleDriver, model.RoleSupervisor, model.RoleDirector, model.RolePumpOperator, model.RoleAdmin,
	)

	requests := router.Group("/api/fuel-requests")
	{
		requests.POST("", middleware.RequireRole(model.RoleDriver, model.RoleAdmin), h.CreateRequest)
		requests.GET("", anyRole, h.ListRequests)
		requests.GET("/:id", anyRole, h.GetRequest)
		requests.GET("/:id/validations", anyRole, h.GetLedger)
		requests.POST("/:id/decisions",
			middleware.RequireRole(model.RoleSupervisor, model.RoleDirector, model.RolePumpOperator),
			h.SubmitDecision)
	}
}

// statusForWorkflowError maps workflow sentinel errors to HTTP status codes.
// Conflict errors (lost race, stale state, finalized request) are 409 so
// callers know to refresh and re-check before retrying.
func statusForWorkflowError(err error) int {
	switch {
	case errors.Is(err, model.ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidRequestAttributes):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorizedForLevel):
		return http.StatusForbidden
	case errors.Is(err, model.ErrRequestFinalized),
		errors.Is(err, model.ErrLevelAlreadyDecided),
		errors.Is(err, model.ErrStaleState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func actorFromContext(c *gin.Context) (string, string) {
	userID, _ := c.Get("userID")
	userRole, _ := c.Get("userRole")
	idStr, _ := userID.(string)
	roleStr, _ := userRole.(string)
	return idStr, roleStr
}

// CreateRequest submits a new fuel request
// @Summary      Create fuel request
// @Description  Creates a fuel request and fixes its approval path from the quantity and vehicle type threshold
// @Tags         fuel-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateFuelRequestDTO  true  "Fuel Request Payload"
// @Success      201      {object}  response.Response{data=service.FuelRequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/fuel-requests [post]
func (h *FuelRequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateFuelRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, actorRole := actorFromContext(c)
	result, err := h.requestService.CreateRequest(c.Request.Context(), actorID, actorRole, req)
	if err != nil {
		status := statusForWorkflowError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// GetRequest returns a single fuel request by id
// @Summary      Get fuel request
// @Tags         fuel-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.FuelRequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/fuel-requests/{id} [get]
func (h *FuelRequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusForWorkflowError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ListRequests returns fuel requests, optionally filtered by status
// @Summary      List fuel requests
// @Tags         fuel-requests
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Status filter"
// @Param        page    query     int     false  "Page"
// @Param        limit   query     int     false  "Limit"
// @Success      200     {object}  response.Response
// @Router       /api/fuel-requests [get]
func (h *FuelRequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		status := statusForWorkflowError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   requests,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// GetLedger returns the validation history of a request ordered by level
// @Summary      Get validation ledger
// @Tags         fuel-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.ValidationEntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/fuel-requests/{id}/validations [get]
func (h *FuelRequestHandler) GetLedger(c *gin.Context) {
	entries, err := h.requestService.GetLedger(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusForWorkflowError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// SubmitDecision approves or rejects the current level of a request
// @Summary      Submit approval decision
// @Description  Applies an approve/reject decision for the request's current level; the final approval records the served quantity
// @Tags         fuel-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "Request ID"
// @Param        payload  body      service.SubmitDecisionDTO  true  "Decision Payload"
// @Success      200      {object}  response.Response{data=service.FuelRequestResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/fuel-requests/{id}/decisions [post]
func (h *FuelRequestHandler) SubmitDecision(c *gin.Context) {
	var req service.SubmitDecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, actorRole := actorFromContext(c)
	result, err := h.decisionService.SubmitDecision(c.Request.Context(), c.Param("id"), actorID, actorRole, req)
	if err != nil {
		status := statusForWorkflowError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
