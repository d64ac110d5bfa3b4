package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/dashboard", middleware.RequirePermission(model.PermReadDashboard), h.GetDashboard)
	router.GET("/api/departments/:id/rollup", middleware.RequirePermission(model.PermReadDashboard), h.GetDepartmentRollup)
}

// @Summary      Get the organization rollup
// @Description  One row per department with sums over approved and done requests, shares of the organization totals, and an "All Departments" total row
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.DashboardRow}
// @Failure      500  {object}  response.Response
// @Router       /api/dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	rows, err := h.dashboardService.GetOrganizationRollup(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// @Summary      Get a department's rollup
// @Description  The department's sums over approved and done requests plus its leaderboard rank by total points
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Department ID"
// @Success      200  {object}  response.Response{data=model.DepartmentRollup}
// @Failure      404  {object}  response.Response
// @Router       /api/departments/{id}/rollup [get]
func (h *DashboardHandler) GetDepartmentRollup(c *gin.Context) {
	rollup, err := h.dashboardService.GetDepartmentRollup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rollup))
}
