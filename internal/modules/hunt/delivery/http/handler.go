package http

import (
	"fmt"
	"net/http"

	"anoa.com/mindminer/internal/modules/hunt/dto"
	huntService "anoa.com/mindminer/internal/modules/hunt/service"
	"anoa.com/mindminer/pkg/apperror"
	"anoa.com/mindminer/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

type HuntHandler struct {
	service huntService.HuntService
}

func NewHuntHandler(service huntService.HuntService) *HuntHandler {
	return &HuntHandler{service: service}
}

func (h *HuntHandler) StartHunt(c *gin.Context) {
	var req dto.StartHuntRequest
	// body may already have been read by the rate limiter
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		response.BadRequest(c, err)
		return
	}

	hunt, err := h.service.StartHunt(c.Request.Context(), req.WalletAddress)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": hunt})
}

func (h *HuntHandler) SubmitDiscovery(c *gin.Context) {
	gameID, err := gameIDParam(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.SubmitDiscoveryRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		response.BadRequest(c, err)
		return
	}

	result, err := h.service.SubmitDiscovery(c.Request.Context(), gameID, req.WalletAddress, req.SubmittedPermalink)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *HuntHandler) GetSession(c *gin.Context) {
	gameID, err := gameIDParam(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), gameID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": session})
}

func (h *HuntHandler) CleanupExpiredSessions(c *gin.Context) {
	n, err := h.service.CleanupExpiredSessions(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.CleanupResponse{
		Success:                true,
		ExpiredSessionsUpdated: n,
		Message:                fmt.Sprintf("Cleaned up %d expired sessions", n),
	})
}

func (h *HuntHandler) GetWalletHunts(c *gin.Context) {
	wallet, err := response.GetWalletParam(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, err)
		return
	}

	hunts, err := h.service.ListWalletHunts(c.Request.Context(), wallet, query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": hunts, "total_count": len(hunts)})
}

func gameIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("game_id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid game id: %w", apperror.ErrInvalidInput)
	}
	return id, nil
}
