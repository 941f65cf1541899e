package routes

import (
	"civicpulse-be/controllers"
	"civicpulse-be/middlewares"
	"civicpulse-be/models"

	"github.com/gin-gonic/gin"
)

// ComplaintRoutes sets up the complaint routes
func ComplaintRoutes(api *gin.RouterGroup, cc *controllers.ComplaintController, auth *middlewares.Auth) {
	complaints := api.Group("/complaints")
	{
		complaints.GET("", auth.Required(), middlewares.RequireRole(models.RoleAdmin, models.RoleWorker), cc.ListComplaints)
		complaints.GET("/community", cc.CommunityFeed)
		complaints.GET("/stats", cc.Stats)
		complaints.GET("/public-stats", cc.PublicStats)
		complaints.GET("/analytics", cc.Analytics)
		complaints.GET("/heatmap", cc.Heatmap)
		complaints.POST("/check-duplicate", cc.CheckDuplicate)
		complaints.POST("/verify-image", cc.VerifyImage)
		complaints.POST("/classify-text", cc.ClassifyText)

		complaints.GET("/mine", auth.Required(), cc.MyComplaints)
		complaints.GET("/notifications", auth.Required(), cc.Notifications)
		complaints.GET("/fraud-check", auth.Required(), cc.CheckFraud)

		complaints.POST("", auth.Required(), cc.CreateComplaint)
		complaints.GET("/:id", auth.Optional(), cc.GetComplaint)
		complaints.GET("/:id/timeline", cc.Timeline)
		complaints.POST("/:id/upvote", auth.Required(), cc.Upvote)
		complaints.PATCH("/:id/status", auth.Required(), cc.UpdateStatus)
	}
}
