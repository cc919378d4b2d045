package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"apteka/internal/domain"
	"apteka/internal/service"
)

type Server struct {
	engine        *gin.Engine
	log           *logrus.Logger
	auth          *service.AuthService
	medicines     *service.MedicineService
	carts         *service.CartService
	orders        *service.OrderService
	wallets       *service.WalletService
	prescriptions *service.PrescriptionService
}

func NewServer(
	log *logrus.Logger,
	auth *service.AuthService,
	medicines *service.MedicineService,
	carts *service.CartService,
	orders *service.OrderService,
	wallets *service.WalletService,
	prescriptions *service.PrescriptionService,
) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), httpMetrics())
	s := &Server{
		engine:        r,
		log:           log,
		auth:          auth,
		medicines:     medicines,
		carts:         carts,
		orders:        orders,
		wallets:       wallets,
		prescriptions: prescriptions,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)

		users := v1.Group("/users", s.authRequired(), requireRoles(domain.RoleAdmin))
		users.POST("", s.createUser)
		users.GET("", s.listUsers)

		medicines := v1.Group("/medicines")
		medicines.GET("", s.listMedicines)
		medicines.GET(":id", s.getMedicine)

		admin := medicines.Group("", s.authRequired(), requireRoles(domain.RoleAdmin))
		admin.POST("", s.createMedicine)
		admin.PUT(":id", s.updateMedicine)
		admin.DELETE(":id", s.deleteMedicine)
		medicines.POST(":id/stock", s.authRequired(), requireRoles(domain.RoleAdmin, domain.RolePharmacist), s.adjustStock)

		cart := v1.Group("/cart", s.authRequired(), requireRoles(domain.RolePatient))
		cart.GET("", s.getCart)
		cart.POST("/items", s.addCartItem)
		cart.DELETE("/items/:medicine_id", s.removeCartItem)
		cart.POST("/checkout", s.checkout)

		orders := v1.Group("/orders", s.authRequired())
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.POST(":id/process", requireRoles(domain.RoleAdmin, domain.RolePharmacist), s.processOrder)
		orders.POST(":id/complete", requireRoles(domain.RoleAdmin, domain.RolePharmacist), s.completeOrder)
		orders.POST(":id/cancel", s.cancelOrder)

		wallet := v1.Group("/wallet", s.authRequired(), requireRoles(domain.RolePatient))
		wallet.GET("", s.getWallet)
		wallet.POST("/deposit", s.deposit)

		rx := v1.Group("/prescriptions", s.authRequired())
		rx.POST("", requireRoles(domain.RoleDoctor), s.issuePrescription)
		rx.GET("", s.listPrescriptions)
		rx.GET(":id", s.getPrescription)
		rx.POST(":id/approve", requireRoles(domain.RoleAdmin, domain.RolePharmacist), s.approvePrescription)
		rx.POST(":id/reject", requireRoles(domain.RoleAdmin, domain.RolePharmacist), s.rejectPrescription)
	}
}

// @Summary Health check
// @Tags service
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
