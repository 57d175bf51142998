package http

import (
	"net/http"

	nftService "anoa.com/mindminer/internal/modules/nft/service"
	"anoa.com/mindminer/pkg/response"
	"github.com/gin-gonic/gin"
)

type NFTHandler struct {
	service nftService.NFTService
}

func NewNFTHandler(service nftService.NFTService) *NFTHandler {
	return &NFTHandler{service: service}
}

func (h *NFTHandler) GetWalletNFTs(c *gin.Context) {
	wallet, err := response.GetWalletParam(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	nfts, err := h.service.ListByWallet(c.Request.Context(), wallet)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nfts":        nfts,
		"total_count": len(nfts),
	})
}
