package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-queue/board"
	"github.com/yeremiapane/restaurant-queue/controllers"
	"github.com/yeremiapane/restaurant-queue/middlewares"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/services"
	"github.com/yeremiapane/restaurant-queue/utils"
	"gorm.io/gorm"
)

// Deps are the long-lived components the HTTP layer is built on.
type Deps struct {
	DB                *gorm.DB
	Service           *services.QueueService
	Board             *board.Board
	Issuer            *utils.TokenIssuer
	AllowedOrigins    []string
	JoinRatePerMinute int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.AllowedOrigins))
	r.Use(middlewares.LoggerMiddleware())

	// Inisialisasi controller
	userCtrl := controllers.NewUserController(d.DB, d.Issuer)
	tableCtrl := controllers.NewTableController(d.Service)
	customerCtrl := controllers.NewCustomerController(d.Service)
	cleanLogCtrl := controllers.NewCleaningLogController(d.Service)
	adminCtrl := controllers.NewAdminController(d.Service)
	boardCtrl := controllers.NewBoardController(d.Board, d.AllowedOrigins)

	joinLimiter := middlewares.NewRateLimiter(d.JoinRatePerMinute)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/login", middlewares.NewStrictRateLimiter(), userCtrl.Login)

	// Walk-in customers
	r.POST("/queue", joinLimiter.RateLimit(), customerCtrl.JoinQueue)
	r.GET("/queue", customerCtrl.GetPublicQueue)
	r.GET("/queue/:customer_id", customerCtrl.GetPublicCustomer)
	r.GET("/tables", tableCtrl.GetAllTables)
	r.GET("/ws", boardCtrl.Connect)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/admin")
	auth.Use(middlewares.AuthMiddleware(d.Issuer), middlewares.RequireRole(models.RoleStaff))

	auth.GET("/profile", userCtrl.GetProfile)
	auth.POST("/users", middlewares.RequireRole(models.RoleAdmin), userCtrl.Register)

	// TABLES
	auth.GET("/tables", tableCtrl.GetAllTables)
	auth.POST("/tables", tableCtrl.CreateTable)
	auth.PATCH("/tables/:table_id", tableCtrl.UpdateTableStatus)
	auth.DELETE("/tables/:table_id", tableCtrl.DeleteTable)
	auth.POST("/tables/:table_id/complete", tableCtrl.CompleteService)
	auth.POST("/tables/:table_id/free", tableCtrl.FreeTable)
	auth.POST("/tables/:table_id/reserve", tableCtrl.ReserveTable)

	// QUEUE
	auth.GET("/customers", customerCtrl.GetQueue)
	auth.GET("/customers/:customer_id", customerCtrl.GetCustomer)
	auth.PATCH("/customers/:customer_id", customerCtrl.UpdateCustomerStatus)
	auth.PATCH("/customers/:customer_id/wait-time", customerCtrl.UpdateWaitTime)
	auth.DELETE("/customers/:customer_id", customerCtrl.RemoveCustomer)
	auth.DELETE("/queue", customerCtrl.ClearQueue)
	auth.POST("/assignments/sweep", customerCtrl.TriggerAssignment)

	// CLEANING LOGS
	auth.GET("/cleaning-logs", cleanLogCtrl.GetAllCleaningLogs)

	auth.GET("/dashboard/stats", adminCtrl.GetDashboardStats)

	// Staff board; the token may come as ?token= since browsers cannot set headers on upgrades
	auth.GET("/ws", boardCtrl.Connect)

	return r
}
