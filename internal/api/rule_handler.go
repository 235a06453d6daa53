// internal/api/rule_handler.go
package api

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RuleHandler struct {
	ruleService service.RuleService
}

func NewRuleHandler(ruleService service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// --- DTOs ---

type RuleRequest struct {
	Name               string                `json:"name" binding:"required"`
	Conditions         domain.RuleConditions `json:"conditions" binding:"required"`
	Actions            domain.RuleActions    `json:"actions" binding:"required"`
	IsActive           *bool                 `json:"isActive,omitempty"`
	AutoApply          bool                  `json:"autoApply"`
	CheckFrequencyDays int                   `json:"checkFrequencyDays,omitempty"`
}

func (r *RuleRequest) toInput() service.RuleInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return service.RuleInput{
		Name:               r.Name,
		Conditions:         r.Conditions,
		Actions:            r.Actions,
		IsActive:           active,
		AutoApply:          r.AutoApply,
		CheckFrequencyDays: r.CheckFrequencyDays,
	}
}

// --- Handlers ---

// CreateRule godoc
// @Summary Create an auto-adjustment rule for a managed client
// @Tags Rules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param request body RuleRequest true "Rule definition"
// @Success 201 {object} domain.AutoAdjustRule
// @Failure 400 {object} gin.H "Invalid rule definition"
// @Failure 403 {object} gin.H "Client not managed by this trainer"
// @Router /trainer/clients/{clientId}/rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), trainerID, clientID, req.toInput())
	if err != nil {
		mapRuleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule godoc
// @Summary Replace a rule's definition
// @Tags Rules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ruleId path string true "Rule ID"
// @Param request body RuleRequest true "New rule definition"
// @Success 200 {object} domain.AutoAdjustRule
// @Router /trainer/rules/{ruleId} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "ruleId")
	if !ok {
		return
	}

	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), trainerID, ruleID, req.toInput())
	if err != nil {
		mapRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary Delete a rule
// @Tags Rules
// @Security BearerAuth
// @Param ruleId path string true "Rule ID"
// @Success 204 "Deleted"
// @Router /trainer/rules/{ruleId} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "ruleId")
	if !ok {
		return
	}

	if err := h.ruleService.DeleteRule(c.Request.Context(), trainerID, ruleID); err != nil {
		mapRuleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRules godoc
// @Summary List a managed client's rules
// @Tags Rules
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Success 200 {array} domain.AutoAdjustRule
// @Router /trainer/clients/{clientId}/rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	rules, err := h.ruleService.ListRules(c.Request.Context(), trainerID, clientID)
	if err != nil {
		mapRuleError(c, err)
		return
	}
	if rules == nil {
		rules = []domain.AutoAdjustRule{}
	}
	c.JSON(http.StatusOK, rules)
}

// CheckRules godoc
// @Summary Evaluate all active rules for a client
// @Description Side-effecting: triggered auto-apply rules mutate the active target. Per-rule failures are reported inline, never aborting sibling rules.
// @Tags Rules
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Success 200 {array} service.RuleCheckResult
// @Router /trainer/clients/{clientId}/rules/check [post]
func (h *RuleHandler) CheckRules(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	results, err := h.ruleService.CheckRules(c.Request.Context(), trainerID, clientID)
	if err != nil {
		mapRuleError(c, err)
		return
	}
	if results == nil {
		results = []service.RuleCheckResult{}
	}
	c.JSON(http.StatusOK, results)
}

// ApproveRule godoc
// @Summary Approve and apply a rule's pending trigger
// @Tags Rules
// @Produce json
// @Security BearerAuth
// @Param ruleId path string true "Rule ID"
// @Success 200 {object} service.AdjustmentOutcome
// @Failure 404 {object} gin.H "No pending trigger"
// @Router /trainer/rules/{ruleId}/approve [post]
func (h *RuleHandler) ApproveRule(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}
	ruleID, ok := pathID(c, "ruleId")
	if !ok {
		return
	}

	outcome, err := h.ruleService.ApproveRule(c.Request.Context(), trainerID, ruleID)
	if err != nil {
		mapRuleError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// mapRuleError maps rule service errors to HTTP status codes.
func mapRuleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRuleInput):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRuleNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrNoActiveTarget),
		errors.Is(err, service.ErrNoPendingTrigger):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRuleAccessDenied),
		errors.Is(err, service.ErrClientNotManaged),
		errors.Is(err, service.ErrClientNotRole):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Operation failed.")
	}
}
