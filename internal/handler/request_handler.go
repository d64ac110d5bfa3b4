package handler

import (
	"context"
	"errors"
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.UpcycleRequestService
}

func NewRequestHandler(requestService service.UpcycleRequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/upcycle-requests")
	{
		requests.GET("", middleware.RequirePermission(model.PermReadUpcycle), h.ListRequests)
		requests.POST("", middleware.RequirePermission(model.PermWriteUpcycle), h.CreateRequest)
		requests.GET("/:id", middleware.RequirePermission(model.PermReadUpcycle), h.GetRequest)
		requests.PUT("/:id", middleware.RequirePermission(model.PermWriteUpcycle), h.UpdateRequest)
		requests.DELETE("/:id", middleware.RequirePermission(model.PermWriteUpcycle), h.DeleteRequest)

		// Lifecycle actions operate on one or more request ids. The
		// manager capability for approve/reject/done is enforced inside
		// the service, once per call.
		requests.POST("/submit", middleware.RequirePermission(model.PermWriteUpcycle), h.action(service.UpcycleRequestService.Submit))
		requests.POST("/approve", middleware.RequirePermission(model.PermReadUpcycle), h.action(service.UpcycleRequestService.Approve))
		requests.POST("/reject", middleware.RequirePermission(model.PermReadUpcycle), h.action(service.UpcycleRequestService.Reject))
		requests.POST("/done", middleware.RequirePermission(model.PermReadUpcycle), h.action(service.UpcycleRequestService.MarkDone))
		requests.POST("/reset", middleware.RequirePermission(model.PermWriteUpcycle), h.action(service.UpcycleRequestService.ResetToDraft))
	}
}

type lifecycleActionDTO struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// @Summary      Create an upcycle request
// @Description  Creates a draft request, freezing the product's current impact factors as its snapshot
// @Tags         upcycle-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/upcycle-requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Create(c.Request.Context(), actorID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// @Summary      List upcycle requests
// @Tags         upcycle-requests
// @Produce      json
// @Security     BearerAuth
// @Param        state          query  string  false  "Filter by lifecycle state"
// @Param        department_id  query  string  false  "Filter by department"
// @Param        page           query  int     false  "Page number"
// @Param        limit          query  int     false  "Items per page"
// @Success      200  {object}  response.Response
// @Router       /api/upcycle-requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)
	filter := service.RequestFilter{
		State:        c.Query("state"),
		DepartmentID: c.Query("department_id"),
		Page:         params.Page,
		Limit:        params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// @Summary      Get an upcycle request
// @Tags         upcycle-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/upcycle-requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	result, err := h.requestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Upcycle request not found"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// @Summary      Update an upcycle request
// @Description  Edits a request; changing the product re-freezes the snapshot and metrics are recomputed
// @Tags         upcycle-requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.UpdateRequestDTO  true  "Update Request Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/upcycle-requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	var req service.UpdateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Update(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// @Summary      Delete an upcycle request
// @Tags         upcycle-requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/upcycle-requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	if err := h.requestService.Delete(c.Request.Context(), actorID(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Upcycle request deleted successfully"))
}

// action adapts one of the five bulk lifecycle methods into a gin handler.
func (h *RequestHandler) action(fn func(service.UpcycleRequestService, context.Context, string, []string) (service.ActionResult, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lifecycleActionDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}

		result, err := fn(h.requestService, c.Request.Context(), actorID(c), req.IDs)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}

// --- Helpers ---

func actorID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	id, _ := userID.(string)
	return id
}

// writeServiceError maps a ValidationError to 400 with its field list and
// everything else to 500.
func writeServiceError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, response.ValidationError(http.StatusBadRequest, ve.Message, ve.Fields))
		return
	}
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
}
