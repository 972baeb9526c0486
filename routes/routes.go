package routes

import (
	"KidQuest/controllers"
	"KidQuest/metrics"
	"KidQuest/middlewares"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(r *gin.Engine, resolver middlewares.BearerResolver) {
	parentAuth := middlewares.AuthMiddleware(resolver)

	// Operational
	r.GET("/healthz", controllers.Healthz)
	r.GET("/readyz", controllers.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// Public routes
	r.POST("/register/parent", controllers.RegisterParent)
	r.POST("/register/child", controllers.RegisterChild)
	r.POST("/login/parent", controllers.LoginParent)

	r.GET("/ws", parentAuth, controllers.ServeWs)

	parents := r.Group("/parents")
	parents.Use(parentAuth)
	{
		parents.POST("/children/link", controllers.LinkChild)
		parents.PUT("/push-token", controllers.UpdatePushToken)
	}

	session := r.Group("/session")
	session.Use(parentAuth)
	{
		session.POST("/start", controllers.StartSession)
		session.POST("/stop", controllers.StopSession)
		session.POST("/revoke", controllers.RevokeSession)
		session.GET("/status", controllers.SessionStatus)
		session.GET("/history", controllers.SessionHistory)
	}

	// Маршруты устройства ребенка
	r.POST("/child/:id/task-complete", middlewares.DeviceMiddleware(), controllers.CompleteTask)

	wallet := r.Group("/wallet")
	{
		wallet.POST("/redeem", middlewares.DeviceMiddleware(), controllers.Redeem)
		wallet.POST("/decide", parentAuth, controllers.Decide)
		wallet.GET("/balance", middlewares.ParentOrDevice(resolver), controllers.Balance)
		wallet.GET("/history", middlewares.ParentOrDevice(resolver), controllers.WalletHistory)
		wallet.GET("/requests", parentAuth, controllers.ListRequests)
	}

	rewards := r.Group("/rewards")
	rewards.Use(parentAuth)
	{
		rewards.POST("", controllers.CreateReward)
		rewards.GET("", controllers.ListRewards)
		rewards.DELETE("/:id", controllers.DeleteReward)
	}
}
