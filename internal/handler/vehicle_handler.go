package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type VehicleHandler struct {
	service service.VehicleService
}

func NewVehicleHandler(s service.VehicleService) *VehicleHandler {
	return &VehicleHandler{service: s}
}

func (h *VehicleHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(
		model.RoleDriver, model.RoleSupervisor, model.RoleDirector, model.RolePumpOperator, model.RoleAdmin,
	)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	vehicles := router.Group("/api/vehicles")
	{
		vehicles.GET("", anyRole, h.ListVehicles)
		vehicles.POST("", adminOnly, h.CreateVehicle)
	}

	types := router.Group("/api/vehicle-types")
	{
		types.GET("", anyRole, h.ListVehicleTypes)
		types.POST("", adminOnly, h.CreateVehicleType)
	}
}

// CreateVehicle registers a new vehicle
// @Summary      Create vehicle
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateVehicleDTO  true  "Vehicle Payload"
// @Success      201      {object}  response.Response{data=service.VehicleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/vehicles [post]
func (h *VehicleHandler) CreateVehicle(c *gin.Context) {
	var req service.CreateVehicleDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := actorFromContext(c)
	vehicle, err := h.service.CreateVehicle(c.Request.Context(), actorID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vehicle))
}

// ListVehicles returns a paginated list of vehicles
// @Summary      List vehicles
// @Tags         vehicles
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page"
// @Param        limit  query     int  false  "Limit"
// @Success      200    {object}  response.Response
// @Router       /api/vehicles [get]
func (h *VehicleHandler) ListVehicles(c *gin.Context) {
	params := pagination.Parse(c)

	vehicles, total, err := h.service.ListVehicles(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": http.StatusOK,
		"data":   vehicles,
		"total":  total,
		"page":   params.Page,
		"limit":  params.Limit,
	})
}

// CreateVehicleType registers a new vehicle type with an optional threshold override
// @Summary      Create vehicle type
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateVehicleTypeDTO  true  "Vehicle Type Payload"
// @Success      201      {object}  response.Response{data=service.VehicleTypeResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/vehicle-types [post]
func (h *VehicleHandler) CreateVehicleType(c *gin.Context) {
	var req service.CreateVehicleTypeDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	actorID, _ := actorFromContext(c)
	vt, err := h.service.CreateVehicleType(c.Request.Context(), actorID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, vt))
}

// ListVehicleTypes returns all vehicle types
// @Summary      List vehicle types
// @Tags         vehicles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.VehicleTypeResponse}
// @Router       /api/vehicle-types [get]
func (h *VehicleHandler) ListVehicleTypes(c *gin.Context) {
	types, err := h.service.ListVehicleTypes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, types))
}
