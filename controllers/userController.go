package controllers

import (
	"errors"
	"log"
	"net/http"

	"civicpulse-be/middlewares"
	"civicpulse-be/models"
	"civicpulse-be/services"
	authUtils "civicpulse-be/utils"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	accounts      *services.AccountService
	jwtSecret     string
	secureCookies bool
}

func NewUserController(accounts *services.AccountService, jwtSecret string, secureCookies bool) *UserController {
	RegisterValidators()
	return &UserController{accounts: accounts, jwtSecret: jwtSecret, secureCookies: secureCookies}
}

func (uc *UserController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := uc.accounts.Register(ctx, services.Registration{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Resent {
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "OTP resent to your email. Please verify to complete registration.",
			"data":    result,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Registration successful! Please check your email for the OTP to verify your account.",
		"data":    result,
	})
}

// VerifyOTP confirms the emailed code and signs the user in.
func (uc *UserController) VerifyOTP(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.accounts.VerifyOTP(ctx, input.Email, input.OTP)
	if err != nil {
		respondError(c, err)
		return
	}
	uc.signIn(c, user, "Account verified successfully!")
}

func (uc *UserController) ResendOTP(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := uc.accounts.ResendOTP(ctx, input.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "OTP resent successfully. Check your email."})
}

func (uc *UserController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := uc.accounts.Login(ctx, input.Email, input.Password)
	if err != nil {
		var appErr *services.AppError
		if errors.As(err, &appErr) && errors.Is(err, services.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": appErr.Message,
				"data":  gin.H{"email": input.Email, "requiresOTP": true},
			})
			return
		}
		respondError(c, err)
		return
	}
	uc.signIn(c, user, "")
}

func (uc *UserController) Logout(c *gin.Context) {
	authUtils.ClearToken(c, uc.secureCookies)
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Logged out successfully"})
}

func (uc *UserController) Leaderboard(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	entries, err := uc.accounts.Leaderboard(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entries)
}

func (uc *UserController) Profile(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	profile, err := uc.accounts.Profile(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"user": profile})
}

// signIn issues the session token as both a cookie and a response field.
func (uc *UserController) signIn(c *gin.Context, user *models.User, message string) {
	token, err := authUtils.GenerateAndSetToken(c, uc.jwtSecret, user.ID.Hex(), uc.secureCookies)
	if err != nil {
		log.Println("Error generating token:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	body := gin.H{
		"status": "success",
		"token":  token,
		"data": gin.H{"user": gin.H{
			"id":     user.ID,
			"name":   user.Name,
			"email":  user.Email,
			"role":   user.Role,
			"points": user.Points,
		}},
	}
	if message != "" {
		body["message"] = message
	}
	c.JSON(http.StatusOK, body)
}
