package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Get own cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} domain.Cart
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	claims := claimsFrom(c)
	cart, err := s.carts.Get(c, claims.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type addCartItemReq struct {
	MedicineID int64 `json:"medicine_id"`
	Quantity   int64 `json:"quantity"`
}

// @Summary Add item to cart
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body addCartItemReq true "Item"
// @Success 200 {object} domain.Cart
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	claims := claimsFrom(c)
	var req addCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cart, err := s.carts.AddItem(c, claims.UserID, req.MedicineID, req.Quantity)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// @Summary Remove item from cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param medicine_id path int true "Medicine ID"
// @Success 200 {object} domain.Cart
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items/{medicine_id} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	claims := claimsFrom(c)
	id, err := parseID(c.Param("medicine_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	cart, err := s.carts.RemoveItem(c, claims.UserID, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// @Summary Checkout cart
// @Description Turns a non-empty cart into a Pending order, debiting the wallet
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 402 {object} map[string]string
// @Router /cart/checkout [post]
func (s *Server) checkout(c *gin.Context) {
	claims := claimsFrom(c)
	order, err := s.orders.Checkout(c, claims.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
