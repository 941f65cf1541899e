package routes

import (
	"civicpulse-be/controllers"
	"civicpulse-be/middlewares"

	"github.com/gin-gonic/gin"
)

func UserRoutes(api *gin.RouterGroup, uc *controllers.UserController, auth *middlewares.Auth) {
	users := api.Group("/users")
	{
		users.POST("/register", uc.RegisterUser)
		users.POST("/verify-otp", uc.VerifyOTP)
		users.POST("/resend-otp", uc.ResendOTP)
		users.POST("/login", uc.LoginUser)
		users.POST("/logout", uc.Logout)
		users.GET("/leaderboard", uc.Leaderboard)
		users.GET("/profile", auth.Required(), uc.Profile)
	}
}
