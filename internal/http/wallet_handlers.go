package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// @Summary Get own wallet
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Wallet
// @Router /wallet [get]
func (s *Server) getWallet(c *gin.Context) {
	claims := claimsFrom(c)
	w, err := s.wallets.Get(c, claims.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

type depositReq struct {
	Amount decimal.Decimal `json:"amount"`
}

// @Summary Deposit to wallet
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body depositReq true "Amount"
// @Success 200 {object} domain.Wallet
// @Failure 400 {object} map[string]string
// @Router /wallet/deposit [post]
func (s *Server) deposit(c *gin.Context) {
	claims := claimsFrom(c)
	var req depositReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	w, err := s.wallets.Deposit(c, claims.UserID, req.Amount)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
