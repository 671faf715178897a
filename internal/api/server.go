package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ludotheque/ludo-api/docs"
	v1 "github.com/ludotheque/ludo-api/internal/api/handler/v1"
	"github.com/ludotheque/ludo-api/internal/api/middleware"
	"github.com/ludotheque/ludo-api/internal/config"
	"github.com/ludotheque/ludo-api/internal/service"
)

// Services are the application services the HTTP layer is built on.
type Services struct {
	Identity  *service.IdentityService
	Opening   *service.OpeningService
	Loans     *service.LoanService
	Bookings  *service.BookingService
	Users     *service.UserService
	Items     *service.ItemService
	Stats     *service.StatsService
	Ledger    *service.LedgerService
	Reminders *service.ReminderService
}

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

func NewServer(conf *config.AppConfig, svc Services) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()
	s.MountHandlers(middleware.NewAuthenticator(svc.Identity), handlers{
		loan:    v1.NewLoanHandler(svc.Loans),
		booking: v1.NewBookingHandler(svc.Bookings),
		user:    v1.NewUserHandler(svc.Users, svc.Reminders),
		item:    v1.NewItemHandler(svc.Items),
		stats:   v1.NewStatsHandler(svc.Stats, svc.Ledger, svc.Opening),
		system:  v1.NewSystemHandler(svc.Users, svc.Identity, svc.Stats),
	})

	return s
}

type handlers struct {
	loan    *v1.LoanHandler
	booking *v1.BookingHandler
	user    *v1.UserHandler
	item    *v1.ItemHandler
	stats   *v1.StatsHandler
	system  *v1.SystemHandler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(auth *middleware.Authenticator, h handlers) {
	const basePath = "/api/v1"

	public := s.Router.Group(basePath)
	{
		public.GET("/items", h.item.HandleListItems)
		public.GET("/items/:itemID", h.item.HandleGetItem)
		public.GET("/pricing", h.loan.HandleGetPricing)
		public.GET("/opening/next", h.stats.HandleNextOpening)
	}

	private := s.Router.Group(basePath, auth.RequireIdentity())
	{
		private.POST("/loans", h.loan.HandleCreateLoan)
		private.GET("/loans", h.loan.HandleListLoans)
		private.GET("/loans/late", h.loan.HandleListLateLoans)
		private.GET("/loans/:loanID", h.loan.HandleGetLoan)
		private.DELETE("/loans/:loanID", h.loan.HandleDeleteLoan)
		private.POST("/loans/:loanID/close", h.loan.HandleCloseLoan)
		private.POST("/loans/:loanID/extend", h.loan.HandleExtendLoan)

		private.POST("/bookings", h.booking.HandleBook)
		private.GET("/bookings", h.booking.HandleListBookings)
		private.DELETE("/bookings/:bookingID", h.booking.HandleUnbook)

		private.GET("/users/me", h.user.HandleMe)
		private.POST("/users", h.user.HandleCreateUser)
		private.GET("/users", h.user.HandleSearchUsers)
		private.GET("/users/:userID", h.user.HandleGetUser)
		private.PATCH("/users/:userID", h.user.HandleUpdateUser)
		private.DELETE("/users/:userID", h.user.HandleDeleteUser)
		private.GET("/users/:userID/history", h.user.HandleUserHistory)
		private.POST("/users/:userID/apikey", h.user.HandleRotateAPIKey)
		private.POST("/users/:userID/email", h.user.HandleReminder)

		private.GET("/items/lastseen", h.item.HandleNotSeenItems)
		private.GET("/items/nbloans", h.item.HandleLeastLoanedItems)
		private.POST("/items", h.item.HandleCreateItem)
		private.PATCH("/items/:itemID", h.item.HandleUpdateItem)
		private.DELETE("/items/:itemID", h.item.HandleDeleteItem)

		private.GET("/stats", h.stats.HandleGetStats)
		private.GET("/stats/series", h.stats.HandleGetSeries)
		private.GET("/ledger", h.stats.HandleListLedger)
		private.GET("/ledger/summary", h.stats.HandleLedgerSummary)

		private.DELETE("/system/cache", h.system.HandleClearCache)
		private.GET("/system/logs", h.system.HandleListLogs)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Ludothèque API"
	docs.SwaggerInfo.Description = "Members, catalogue, loans and bookings of a toy library."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
