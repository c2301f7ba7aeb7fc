package server

import (
	"content-paywall/internal/config"
	"content-paywall/internal/handler"
	"content-paywall/internal/middleware"
	"content-paywall/internal/repository"
	"content-paywall/internal/service"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo *echo.Echo

	catalogHandler      *handler.CatalogHandler
	purchaseHandler     *handler.PurchaseHandler
	paypalHandler       *handler.PaypalHandler
	subscriptionHandler *handler.SubscriptionHandler
	loyaltyHandler      *handler.LoyaltyHandler
	requestHandler      *handler.RequestHandler
	adminHandler        *handler.AdminHandler

	accountRepo repository.AccountRepository
	adminCfg    config.Admin
}

func NewServer(
	cfg *config.Config,
	accountRepo repository.AccountRepository,
	catalogService service.CatalogService,
	entitlementService service.EntitlementService,
	orderService service.OrderService,
	subscriptionService service.SubscriptionService,
	loyaltyService service.LoyaltyService,
	requestService service.CustomRequestService,
) *Server {
	e := echo.New()

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s := &Server{
		echo:                e,
		catalogHandler:      handler.NewCatalogHandler(catalogService, entitlementService),
		purchaseHandler:     handler.NewPurchaseHandler(orderService),
		paypalHandler:       handler.NewPaypalHandler(orderService),
		subscriptionHandler: handler.NewSubscriptionHandler(subscriptionService),
		loyaltyHandler:      handler.NewLoyaltyHandler(loyaltyService),
		requestHandler:      handler.NewRequestHandler(requestService),
		adminHandler:        handler.NewAdminHandler(catalogService, requestService),
		accountRepo:         accountRepo,
		adminCfg:            cfg.Admin,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// Unauthenticated public surface: public-safe items only.
	api.GET("/preview", s.catalogHandler.PublicPreview)

	// -------- buyer routes --------
	buyer := api.Group("", middleware.Identity(s.accountRepo))
	buyer.GET("/me", s.catalogHandler.Me)
	buyer.GET("/items", s.catalogHandler.Browse)
	buyer.GET("/items/:itemID", s.catalogHandler.Detail)
	buyer.GET("/categories", s.catalogHandler.Categories)
	buyer.GET("/library", s.catalogHandler.Library)

	buyer.POST("/purchase", s.purchaseHandler.Purchase)
	buyer.POST("/free-unlock", s.purchaseHandler.FreeUnlock)
	buyer.POST("/redeliver/:itemID", s.purchaseHandler.Redeliver)

	buyer.GET("/subscriptions/plans", s.subscriptionHandler.Plans)
	buyer.POST("/subscriptions", s.subscriptionHandler.Subscribe)
	buyer.GET("/subscriptions/status", s.subscriptionHandler.Status)
	buyer.DELETE("/subscriptions", s.subscriptionHandler.Cancel)

	buyer.GET("/loyalty/rewards", s.loyaltyHandler.Rewards)
	buyer.POST("/loyalty/redeem", s.loyaltyHandler.Redeem)
	buyer.GET("/loyalty/history", s.loyaltyHandler.History)

	buyer.POST("/requests", s.requestHandler.Submit)
	buyer.POST("/requests/:requestID/pay", s.requestHandler.Pay)

	// -------- paypal webhooks / callbacks --------
	paypal := api.Group("/paypal")
	paypal.GET("/success", s.paypalHandler.HandleSuccess)
	paypal.POST("/webhook", s.paypalHandler.Webhook)

	// -------- operator routes --------
	admin := api.Group("/admin", middleware.AdminAuth(s.adminCfg.JWTSecret))
	admin.POST("/items", s.adminHandler.CreateItem)
	admin.POST("/categories", s.adminHandler.CreateCategory)
	admin.POST("/campaigns", s.adminHandler.CreateCampaign)
	admin.POST("/drips", s.adminHandler.CreateDrip)
	admin.POST("/requests/:requestID/accept", s.adminHandler.AcceptRequest)
	admin.POST("/requests/:requestID/reject", s.adminHandler.RejectRequest)
	admin.POST("/requests/:requestID/result", s.adminHandler.AttachResult)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
