// Package server assembles the HTTP routes and middleware chain.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"fintrack/internal/config"
	"fintrack/internal/handlers"
	"fintrack/internal/middleware"
	"fintrack/internal/models"
	"fintrack/internal/ratelimit"
	"fintrack/internal/services"

	_ "fintrack/internal/docs" // registers the swagger document
)

// Version is reported by GET /.
const Version = "1.0.0"

// Rate limit messages returned with 429.
const (
	AuthLimitMessage        = "Too many authentication attempts. Please try again after 15 minutes."
	TransactionLimitMessage = "Too many transaction requests. Please try again after an hour."
	AnalyticsLimitMessage   = "Too many analytics requests. Please try again after an hour."
	GeneralLimitMessage     = "Too many requests. Please try again later."
)

// Limiters holds one budget per route group.
type Limiters struct {
	Auth         middleware.Limiter
	Transactions middleware.Limiter
	Analytics    middleware.Limiter
	General      middleware.Limiter
}

// NewLimiters builds sliding-window limiters from cfg. The returned func
// stops their cleanup goroutines.
func NewLimiters(cfg *config.Config) (Limiters, func()) {
	build := func(rl config.RateLimit) *ratelimit.Limiter {
		return ratelimit.NewLimiter(ratelimit.Config{Max: rl.Max, Window: rl.Window})
	}
	auth := build(cfg.AuthRateLimit)
	tx := build(cfg.TransactionRateLimit)
	analytics := build(cfg.AnalyticsRateLimit)
	general := build(cfg.GeneralRateLimit)

	stop := func() {
		auth.Stop()
		tx.Stop()
		analytics.Stop()
		general.Stop()
	}
	return Limiters{Auth: auth, Transactions: tx, Analytics: analytics, General: general}, stop
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Tokens       *middleware.TokenManager
	Users        services.UserServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Analytics    services.AnalyticsServicer
	Audit        services.AuditServicer
	Limiters     Limiters

	// DB must be set. Cache is nil when no cache is configured.
	DB    handlers.Pinger
	Cache handlers.Pinger
}

// NewRouter builds the gin engine serving the whole API.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens)
	userHandler := handlers.NewUserHandler(d.Users, d.Audit)
	categoryHandler := handlers.NewCategoryHandler(d.Categories)
	transactionHandler := handlers.NewTransactionHandler(d.Transactions, d.Audit)
	analyticsHandler := handlers.NewAnalyticsHandler(d.Analytics)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Cache)

	router := gin.New()
	router.Use(middleware.Recovery(!cfg.IsProduction()))
	router.Use(middleware.RequestLogging())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.CORSOrigin))
	router.Use(middleware.BodyLimit(middleware.DefaultBodyLimit))
	router.Use(middleware.ErrorHandler())

	router.GET("/", handlers.Info(Version))
	router.GET("/health", healthHandler.Health)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api")
	authenticate := middleware.Authenticate(d.Tokens)
	writable := middleware.PreventReadOnly()
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Auth
	auth := api.Group("/auth")
	authLimit := middleware.RateLimit(d.Limiters.Auth, AuthLimitMessage)
	auth.POST("/register", authLimit, authHandler.Register)
	auth.POST("/login", authLimit, authHandler.Login)
	auth.GET("/profile", authenticate, authHandler.GetProfile)

	// Transactions
	transactions := api.Group("/transactions",
		middleware.RateLimit(d.Limiters.Transactions, TransactionLimitMessage), authenticate)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.POST("", writable, transactionHandler.CreateTransaction)
	transactions.PUT("/:id", writable, transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", writable, transactionHandler.DeleteTransaction)

	// Analytics
	analytics := api.Group("/analytics",
		middleware.RateLimit(d.Limiters.Analytics, AnalyticsLimitMessage), authenticate)
	analytics.GET("", analyticsHandler.GetAnalytics)
	analytics.GET("/spending-by-category", analyticsHandler.GetSpendingByCategory)
	analytics.GET("/income-vs-expenses", analyticsHandler.GetIncomeVsExpenses)

	// Users and categories share the general budget. Static segments are
	// registered alongside :id; gin prefers them.
	users := api.Group("/users",
		middleware.RateLimit(d.Limiters.General, GeneralLimitMessage), authenticate)

	categories := users.Group("/categories")
	categories.GET("", categoryHandler.ListCategories)
	categories.POST("", writable, categoryHandler.CreateCategory)
	categories.PUT("/:id", writable, categoryHandler.UpdateCategory)
	categories.DELETE("/:id", writable, categoryHandler.DeleteCategory)

	users.PUT("/profile", writable, userHandler.UpdateProfile)
	users.PUT("/change-password", writable, userHandler.ChangePassword)
	users.GET("", adminOnly, userHandler.ListUsers)
	users.GET("/:id", adminOnly, userHandler.GetUser)
	users.PUT("/:id/role", adminOnly, userHandler.UpdateRole)
	users.DELETE("/:id", middleware.RequireSelfOrAdmin("id"), userHandler.DeleteUser)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    "NOT_FOUND",
			"message": "Route " + c.Request.Method + " " + c.Request.URL.Path + " not found",
		}})
	})

	return router
}
