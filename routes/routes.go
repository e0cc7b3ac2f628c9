package routes

import (
	"net/http"
	"time"

	"luxride/handlers"
	"luxride/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the webhook and ops endpoints. CORS is open for the
// ops dashboard; the webhook itself is server-to-server.
func RegisterRoutes(r *gin.Engine, webhook *handlers.WebhookHandler, ops *handlers.BookingOpsHandler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/webhook", webhook.Verify)
	r.POST("/webhook", webhook.Receive)

	r.POST("/api/admin/login", handlers.AdminLogin)

	admin := r.Group("/api/admin", middleware.AdminAuthMiddleware())
	{
		admin.GET("/sessions", ops.ListPending)
		admin.GET("/sessions/:bookingID", ops.GetSession)
		admin.POST("/sessions/:bookingID/cancel", ops.CancelSession)
	}
}
