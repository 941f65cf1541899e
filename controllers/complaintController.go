package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"civicpulse-be/classifier"
	"civicpulse-be/middlewares"
	"civicpulse-be/models"
	"civicpulse-be/services"

	"github.com/gin-gonic/gin"
)

// Classifier is the AI helper behind the verify-image and classify-text
// endpoints. Implementations fail open and never return errors.
type Classifier interface {
	VerifyImage(ctx context.Context, imageBase64, category, description string) classifier.ImageVerdict
	ClassifyText(ctx context.Context, title, description string) classifier.TextVerdict
}

type ComplaintController struct {
	complaints *services.ComplaintService
	dashboard  *services.DashboardService
	classifier Classifier
}

func NewComplaintController(complaints *services.ComplaintService, dashboard *services.DashboardService, cls Classifier) *ComplaintController {
	RegisterValidators()
	return &ComplaintController{complaints: complaints, dashboard: dashboard, classifier: cls}
}

// CreateComplaint files a new complaint for the signed-in user.
func (cc *ComplaintController) CreateComplaint(c *gin.Context) {
	reporter, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Title       string   `json:"title" binding:"max=200"`
		Description string   `json:"description" binding:"max=5000"`
		CategoryID  string   `json:"category_id"`
		Category    string   `json:"category"`
		Latitude    *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
		Longitude   *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
		Address     string   `json:"address" binding:"max=500"`
		PhotoURL    *string  `json:"photo_url"`
		IsPublic    bool     `json:"is_public"`
		IsAnonymous bool     `json:"is_anonymous"`
	}
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	created, err := cc.complaints.CreateComplaint(ctx, reporter, services.NewComplaint{
		Title:        input.Title,
		Description:  input.Description,
		CategoryID:   input.CategoryID,
		CategoryName: input.Category,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		Address:      input.Address,
		PhotoURL:     input.PhotoURL,
		IsPublic:     input.IsPublic,
		IsAnonymous:  input.IsAnonymous,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"complaint": created})
}

// ListComplaints is the admin and worker view of every complaint.
func (cc *ComplaintController) ListComplaints(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	complaints, err := cc.complaints.ListComplaints(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(complaints),
		"data":    gin.H{"complaints": complaints},
	})
}

func (cc *ComplaintController) MyComplaints(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	complaints, err := cc.complaints.MyComplaints(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(complaints),
		"data":    gin.H{"complaints": complaints},
	})
}

// CommunityFeed pages through public complaints.
// Query: page, limit, category, sort (newest|most_voted).
func (cc *ComplaintController) CommunityFeed(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := requestContext(c)
	defer cancel()

	feed, err := cc.complaints.CommunityFeed(ctx, services.FeedQuery{
		Page:     page,
		Limit:    limit,
		Category: c.Query("category"),
		Sort:     services.ListSort(c.DefaultQuery("sort", string(services.SortNewest))),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": feed.Results,
		"total":   feed.Total,
		"page":    feed.Page,
		"pages":   feed.Pages,
		"data":    gin.H{"posts": feed.Posts},
	})
}

// GetComplaint returns the detail view. Reporter fields depend on who asks.
func (cc *ComplaintController) GetComplaint(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	complaint, err := cc.complaints.GetComplaint(ctx, middlewares.CurrentViewer(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"complaint": complaint})
}

func (cc *ComplaintController) Timeline(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	timeline, err := cc.complaints.Timeline(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"timeline": timeline})
}

// UpdateStatus moves a complaint to a new status. Admins and workers only.
func (cc *ComplaintController) UpdateStatus(c *gin.Context) {
	var input struct {
		Status             string  `json:"status" binding:"required,complaint_status"`
		ResolutionPhotoURL *string `json:"resolution_photo_url"`
	}
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	updated, err := cc.complaints.UpdateStatus(ctx, middlewares.CurrentViewer(c), c.Param("id"), models.IssueStatus(input.Status), input.ResolutionPhotoURL)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, updated)
}

// Upvote toggles the caller's vote on a complaint.
func (cc *ComplaintController) Upvote(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	voted, err := cc.complaints.ToggleVote(ctx, user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if voted {
		c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Vote added", "voted": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Vote removed", "voted": false})
}

func (cc *ComplaintController) CheckDuplicate(c *gin.Context) {
	var input struct {
		Latitude  *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
		Longitude *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
		Category  string   `json:"category"`
		Title     string   `json:"title"`
	}
	if !bindJSON(c, &input) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	duplicates, err := cc.complaints.CheckDuplicate(ctx, input.Latitude, input.Longitude)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"duplicates": duplicates})
}

// CheckFraud runs the fraud heuristics over the caller's own reports.
func (cc *ComplaintController) CheckFraud(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := cc.complaints.CheckFraud(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

func (cc *ComplaintController) Notifications(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	notifications, err := cc.complaints.Notifications(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"notifications": notifications})
}

func (cc *ComplaintController) Stats(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := cc.dashboard.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (cc *ComplaintController) PublicStats(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := cc.dashboard.PublicStats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (cc *ComplaintController) Analytics(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	analytics, err := cc.dashboard.Analytics(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, analytics)
}

// Heatmap serves the red zone data. Query: period (days, default 30).
func (cc *ComplaintController) Heatmap(c *gin.Context) {
	period, err := strconv.Atoi(c.Query("period"))
	if err != nil || period <= 0 {
		period = services.DefaultHeatmapDays
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	heatmap, err := cc.dashboard.Heatmap(ctx, period)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, heatmap)
}

// VerifyImage asks the vision model whether a photo shows a civic issue.
func (cc *ComplaintController) VerifyImage(c *gin.Context) {
	var input struct {
		Image       string `json:"image" binding:"required"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}
	if !bindJSON(c, &input) {
		return
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = "Other"
	}

	verdict := cc.classifier.VerifyImage(c.Request.Context(), input.Image, category, input.Description)
	respond(c, http.StatusOK, verdict)
}

// ClassifyText suggests a category and severity for a draft complaint.
func (cc *ComplaintController) ClassifyText(c *gin.Context) {
	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if !bindJSON(c, &input) {
		return
	}
	if strings.TrimSpace(input.Title) == "" && strings.TrimSpace(input.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide a title or description"})
		return
	}

	verdict := cc.classifier.ClassifyText(c.Request.Context(), input.Title, input.Description)
	respond(c, http.StatusOK, verdict)
}
