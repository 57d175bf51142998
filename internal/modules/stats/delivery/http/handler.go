package http

import (
	"net/http"

	"anoa.com/mindminer/internal/modules/stats/dto"
	statsService "anoa.com/mindminer/internal/modules/stats/service"
	"anoa.com/mindminer/pkg/response"
	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	service statsService.StatsService
}

func NewStatsHandler(service statsService.StatsService) *StatsHandler {
	return &StatsHandler{service: service}
}

func (h *StatsHandler) GetUserStats(c *gin.Context) {
	wallet, err := response.GetWalletParam(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.service.GetUserStats(c.Request.Context(), wallet)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *StatsHandler) GetLeaderboard(c *gin.Context) {
	var query dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err)
		return
	}

	leaderboard, err := h.service.GetLeaderboard(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboard)
}
