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

type RewardHandler struct {
	rewardService service.RewardService
}

func NewRewardHandler(rewardService service.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rewardService}
}

func (h *RewardHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/rewards/me", middleware.RequirePermission(model.PermReadRewards), h.GetMyRewards)
	router.GET("/api/users/:id/rewards", middleware.RequirePermission(model.PermReadUsers), h.GetUserRewards)
}

// @Summary      Get own reward history
// @Description  The authenticated user's rewards, newest first
// @Tags         rewards
// @Produce      json
// @Security     BearerAuth
// @Param        page   query  int  false  "Page number"
// @Param        limit  query  int  false  "Items per page"
// @Success      200  {object}  response.Response
// @Router       /api/rewards/me [get]
func (h *RewardHandler) GetMyRewards(c *gin.Context) {
	h.listRewards(c, actorID(c))
}

// @Summary      Get a user's reward history
// @Tags         rewards
// @Produce      json
// @Security     BearerAuth
// @Param        id     path   string  true   "User ID"
// @Param        page   query  int     false  "Page number"
// @Param        limit  query  int     false  "Items per page"
// @Success      200  {object}  response.Response
// @Router       /api/users/{id}/rewards [get]
func (h *RewardHandler) GetUserRewards(c *gin.Context) {
	h.listRewards(c, c.Param("id"))
}

func (h *RewardHandler) listRewards(c *gin.Context, userID string) {
	params := pagination.Parse(c)

	rewards, total, err := h.rewardService.ListByUser(c.Request.Context(), userID, params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"rewards": rewards,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}
