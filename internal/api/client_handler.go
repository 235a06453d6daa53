// internal/api/client_handler.go
package api

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	clientService  service.ClientService
	trainerService service.TrainerService
}

func NewClientHandler(clientService service.ClientService, trainerService service.TrainerService) *ClientHandler {
	return &ClientHandler{
		clientService:  clientService,
		trainerService: trainerService,
	}
}

// --- DTOs ---

type BiometricsRequest struct {
	WeightKG      float64              `json:"weightKg" binding:"required,gt=0"`
	HeightCM      float64              `json:"heightCm" binding:"required,gt=0"`
	Age           int                  `json:"age" binding:"required,gt=0"`
	Gender        domain.Gender        `json:"gender" binding:"required,oneof=male female"`
	BodyFatPct    *float64             `json:"bodyFatPct,omitempty"`
	ActivityLevel domain.ActivityLevel `json:"activityLevel" binding:"required"`
}

type LogDayRequest struct {
	Date     string               `json:"date" binding:"required"` // YYYY-MM-DD
	Calories float64              `json:"calories" binding:"min=0"`
	ProteinG float64              `json:"proteinG" binding:"min=0"`
	CarbsG   *float64             `json:"carbsG,omitempty"`
	FatsG    *float64             `json:"fatsG,omitempty"`
	FiberG   *float64             `json:"fiberG,omitempty"`
	WeightKG *float64             `json:"weightKg,omitempty"`
	WaterL   *float64             `json:"waterL,omitempty"`
	Sleep    *domain.SleepQuality `json:"sleep,omitempty"`
	Mood     *string              `json:"mood,omitempty"`
	Energy   *domain.EnergyLevel  `json:"energy,omitempty"`
}

type AddClientRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// --- Handlers ---

// UpdateBiometrics godoc
// @Summary Record a client's biometric profile
// @Description Clients update their own profile; trainers those of clients they manage.
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param request body BiometricsRequest true "Biometric profile"
// @Success 200 {object} gin.H
// @Router /clients/{clientId}/biometrics [put]
func (h *ClientHandler) UpdateBiometrics(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	role, _ := getUserRoleFromContext(c)
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}

	var req BiometricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	bio := domain.Biometrics{
		WeightKG:      req.WeightKG,
		HeightCM:      req.HeightCM,
		Age:           req.Age,
		Gender:        req.Gender,
		BodyFatPct:    req.BodyFatPct,
		ActivityLevel: req.ActivityLevel,
	}
	if err := h.clientService.UpdateBiometrics(c.Request.Context(), actor, role, clientID, bio); err != nil {
		mapClientError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Biometrics updated."})
}

// LogDay godoc
// @Summary Record one day's intake for the authenticated client
// @Description Snapshots the active target (if any) and computes adherence against it.
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogDayRequest true "Day's intake"
// @Success 201 {object} domain.NutritionLog
// @Router /client/logs [post]
func (h *ClientHandler) LogDay(c *gin.Context) {
	clientID, ok := actorID(c)
	if !ok {
		return
	}

	var req LogDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date format (want YYYY-MM-DD).")
		return
	}

	entry, err := h.clientService.LogDay(c.Request.Context(), clientID, service.LogInput{
		Date:     date,
		Calories: req.Calories,
		ProteinG: req.ProteinG,
		CarbsG:   req.CarbsG,
		FatsG:    req.FatsG,
		FiberG:   req.FiberG,
		WeightKG: req.WeightKG,
		WaterL:   req.WaterL,
		Sleep:    req.Sleep,
		Mood:     req.Mood,
		Energy:   req.Energy,
	})
	if err != nil {
		mapClientError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// GetLogs godoc
// @Summary List a client's daily logs in a date range, oldest first
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Param start query string true "Range start (YYYY-MM-DD)"
// @Param end query string true "Range end (YYYY-MM-DD)"
// @Success 200 {array} domain.NutritionLog
// @Router /clients/{clientId}/logs [get]
func (h *ClientHandler) GetLogs(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	role, _ := getUserRoleFromContext(c)
	clientID, ok := pathID(c, "clientId")
	if !ok {
		return
	}
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	logs, err := h.clientService.GetLogs(c.Request.Context(), actor, role, clientID, start, end)
	if err != nil {
		mapClientError(c, err)
		return
	}
	if logs == nil {
		logs = []domain.NutritionLog{}
	}
	c.JSON(http.StatusOK, logs)
}

// AddClient godoc
// @Summary Assign an existing client account to the trainer by email
// @Tags Trainer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AddClientRequest true "Client's email"
// @Success 200 {object} UserResponse
// @Failure 409 {object} gin.H "Client already assigned to another trainer"
// @Router /trainer/clients [post]
func (h *ClientHandler) AddClient(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}

	var req AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	client, err := h.trainerService.AddClientByEmail(c.Request.Context(), trainerID, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrClientNotRole):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrClientAlreadyAssigned):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to add client.")
		}
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(client))
}

// GetManagedClients godoc
// @Summary List the trainer's managed clients
// @Tags Trainer
// @Produce json
// @Security BearerAuth
// @Success 200 {array} UserResponse
// @Router /trainer/clients [get]
func (h *ClientHandler) GetManagedClients(c *gin.Context) {
	trainerID, ok := actorID(c)
	if !ok {
		return
	}

	clients, err := h.trainerService.GetManagedClients(c.Request.Context(), trainerID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list clients.")
		return
	}
	c.JSON(http.StatusOK, MapUsersToResponse(clients))
}

// mapClientError maps client service errors to HTTP status codes.
func mapClientError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidLogEntry):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrClientNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrLogAccessDenied),
		errors.Is(err, service.ErrClientNotManaged):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Operation failed.")
	}
}
