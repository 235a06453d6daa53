// internal/api/target_handler.go
package api

import (
	"alcyxob/nutrition-app/internal/calc"
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"alcyxob/nutrition-app/internal/service"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TargetHandler struct {
	targetService service.TargetService
}

func NewTargetHandler(targetService service.TargetService) *TargetHandler {
	return &TargetHandler{targetService: targetService}
}

// --- DTOs ---

type MacroSplitRequest struct {
	ProteinPct float64 `json:"proteinPct" binding:"required"`
	CarbPct    float64 `json:"carbPct" binding:"required"`
	FatPct     float64 `json:"fatPct" binding:"required"`
}

type CreateTargetRequest struct {
	Goal               domain.Goal           `json:"goal" binding:"required"`
	Formula            domain.BMRFormula     `json:"formula,omitempty"`
	TargetWeeklyRateKG float64               `json:"targetWeeklyRateKg,omitempty"`
	ExplicitAdjustment *float64              `json:"explicitAdjustment,omitempty"`
	ProteinGPerKG      *float64              `json:"proteinGPerKg,omitempty"`
	DietPreference     domain.DietPreference `json:"dietPreference,omitempty"`
	Split              *MacroSplitRequest    `json:"split,omitempty"`
	PlannedDietWeeks   int                   `json:"plannedDietWeeks,omitempty"`
	MealsPerDay        int                   `json:"mealsPerDay,omitempty"`
	ReviewAfterDays    int                   `json:"reviewAfterDays,omitempty"`
}

type UpdateTargetRequest struct {
	Changes        map[string]float64 `json:"changes" binding:"required"`
	Reason         string             `json:"reason" binding:"required"`
	ClientFeedback *string            `json:"clientFeedback,omitempty"`
}

type RecalculateTargetRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (r *CreateTargetRequest) toParams() service.TargetParams {
	params := service.TargetParams{
		Goal:               r.Goal,
		Formula:            r.Formula,
		TargetWeeklyRateKG: r.TargetWeeklyRateKG,
		ExplicitAdjustment: r.ExplicitAdjustment,
		ProteinGPerKG:      r.ProteinGPerKG,
		DietPreference:     r.DietPreference,
		PlannedDietWeeks:   r.PlannedDietWeeks,
		MealsPerDay:        r.MealsPerDay,
		ReviewAfterDays:    r.ReviewAfterDays,
	}
	if r.Split != nil {
		params.Split = &calc.CustomSplit{
			ProteinPct: r.Split.ProteinPct,
			CarbPct:    r.Split.CarbPct,
			FatPct:     r.Split.FatPct,
		}
	}
	return params
}

// --- Handlers ---

// CreateTarget godoc
// @Summary Calculate and persist a new active target for a client
// @Description Deactivates any previously active target for the client atomically.
// @Tags Targets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param request body CreateTargetRequest true "Calculation parameters"
// @Success 201 {object} domain.NutritionTarget
// @Failure 400 {object} gin.H "Validation error"
// @Failure 403 {object} gin.H "Client not managed by this trainer"
// @Failure 404 {object} gin.H "Client or profile not found"
// @Router /trainer/clients/{clientId}/targets [post]
func (h *TargetHandler) CreateTarget(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	var req CreateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	target, err := h.targetService.CreateTarget(c.Request.Context(), trainerID, clientID, req.toParams())
	if err != nil {
		mapTargetError(c, err)
		return
	}
	c.JSON(http.StatusCreated, target)
}

// PreviewCalculation godoc
// @Summary Preview the figures a create call would produce
// @Description Pure calculation; nothing is persisted. Identical inputs yield figures identical to CreateTarget's.
// @Tags Targets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param request body CreateTargetRequest true "Calculation parameters"
// @Success 200 {object} calc.Figures
// @Router /trainer/clients/{clientId}/targets/preview [post]
func (h *TargetHandler) PreviewCalculation(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	var req CreateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	figures, err := h.targetService.PreviewCalculation(c.Request.Context(), trainerID, clientID, req.toParams())
	if err != nil {
		mapTargetError(c, err)
		return
	}
	c.JSON(http.StatusOK, figures)
}

// UpdateTarget godoc
// @Summary Adjust an existing target in place
// @Description Revision strategy 1: mutates figures in place and appends one ledger entry per changed field. Use recalculate for a full biometric refresh.
// @Tags Targets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param targetId path string true "Target ID"
// @Param request body UpdateTargetRequest true "Absolute new values keyed by field path, with a reason"
// @Success 200 {object} domain.NutritionTarget
// @Failure 409 {object} gin.H "Concurrent update conflict"
// @Router /targets/{targetId} [patch]
func (h *TargetHandler) UpdateTarget(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	targetID, ok := pathID(c, "targetId")
	if !ok {
		return
	}

	var req UpdateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	target, err := h.targetService.UpdateTarget(c.Request.Context(), actor, targetID, req.Changes, req.Reason, req.ClientFeedback)
	if err != nil {
		mapTargetError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

// RecalculateTarget godoc
// @Summary Supersede the active target with a fresh calculation
// @Description Revision strategy 2: deactivates the current target and creates a new one from refreshed biometrics, keeping the goal parameters.
// @Tags Targets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param request body RecalculateTargetRequest true "Reason for the refresh"
// @Success 201 {object} domain.NutritionTarget
// @Router /trainer/clients/{clientId}/targets/recalculate [post]
func (h *TargetHandler) RecalculateTarget(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	var req RecalculateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	target, err := h.targetService.RecalculateTarget(c.Request.Context(), trainerID, clientID, req.Reason)
	if err != nil {
		mapTargetError(c, err)
		return
	}
	c.JSON(http.StatusCreated, target)
}

// GetActiveTarget godoc
// @Summary Get the client's currently active target
// @Tags Targets
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Success 200 {object} domain.NutritionTarget
// @Failure 404 {object} gin.H "No active target"
// @Router /clients/{clientId}/targets/active [get]
func (h *TargetHandler) GetActiveTarget(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	role, _ := getUserRoleFromContext(c)
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	target, err := h.targetService.GetActiveTarget(c.Request.Context(), actor, role, clientID)
	if err != nil {
		mapTargetError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

// GetTargetHistory godoc
// @Summary Get the client's target history, newest effective first
// @Tags Targets
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param page query int false "1-based page number"
// @Success 200 {array} domain.NutritionTarget
// @Router /trainer/clients/{clientId}/targets/history [get]
func (h *TargetHandler) GetTargetHistory(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	targets, err := h.targetService.GetTargetHistory(c.Request.Context(), trainerID, clientID, page)
	if err != nil {
		mapTargetError(c, err)
		return
	}
	if targets == nil {
		targets = []domain.NutritionTarget{}
	}
	c.JSON(http.StatusOK, targets)
}

// GetDueForReview godoc
// @Summary List the trainer's targets whose review date has elapsed
// @Tags Targets
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.NutritionTarget
// @Router /trainer/targets/due-for-review [get]
func (h *TargetHandler) GetDueForReview(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	targets, err := h.targetService.GetDueForReview(c.Request.Context(), trainerID)
	if err != nil {
		mapTargetError(c, err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

// GetAdherenceReport godoc
// @Summary Adherence statistics for a target over a date range
// @Tags Targets
// @Produce json
// @Security BearerAuth
// @Param targetId path string true "Target ID"
// @Param start query string true "Range start (YYYY-MM-DD)"
// @Param end query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} service.AdherenceReport
// @Router /targets/{targetId}/adherence [get]
func (h *TargetHandler) GetAdherenceReport(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	role, _ := getUserRoleFromContext(c)
	targetID, ok := pathID(c, "targetId")
	if !ok {
		return
	}
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	report, err := h.targetService.GetAdherenceReport(c.Request.Context(), actor, role, targetID, start, end)
	if err != nil {
		mapTargetError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- Shared helpers ---

// actorID extracts the authenticated user's ObjectID; aborts on failure.
func actorID(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// pathID parses an ObjectID path parameter; aborts on failure.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

const dateLayout = "2006-01-02"

// dateRange parses the start/end query parameters; aborts on failure.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := time.Parse(dateLayout, c.Query("start"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid or missing start date (want YYYY-MM-DD).")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(dateLayout, c.Query("end"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid or missing end date (want YYYY-MM-DD).")
		return time.Time{}, time.Time{}, false
	}
	// Make the end bound inclusive of the whole day.
	end = end.Add(24*time.Hour - time.Nanosecond)
	return start, end, true
}

// mapTargetError maps service errors to HTTP status codes.
func mapTargetError(c *gin.Context, err error) {
	var vErr *calc.ValidationError
	switch {
	case errors.As(err, &vErr):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProfileIncomplete),
		errors.Is(err, service.ErrEmptyReason),
		errors.Is(err, service.ErrUnknownField):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrTargetNotFound),
		errors.Is(err, service.ErrNoActiveTarget):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrClientNotRole),
		errors.Is(err, service.ErrClientNotManaged),
		errors.Is(err, service.ErrTargetAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrConflict):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Operation failed.")
	}
}
