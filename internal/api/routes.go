package api

import (
	"alcyxob/nutrition-app/internal/domain" // Needed for RoleMiddleware
	"alcyxob/nutrition-app/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	trainerService service.TrainerService,
	clientService service.ClientService,
	targetService service.TargetService,
	ruleService service.RuleService,
) {

	authHandler := NewAuthHandler(authService)
	targetHandler := NewTargetHandler(targetService)
	ruleHandler := NewRuleHandler(ruleService)
	clientHandler := NewClientHandler(clientService, trainerService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Shared client-scoped routes (owner or managing trainer) ---
		// Authorization beyond role is enforced in the service layer: a
		// client may only read their own data, a trainer only managed
		// clients'.
		clientsGroup := protected.Group("/clients")
		{
			clientsGroup.PUT("/:clientId/biometrics", clientHandler.UpdateBiometrics)
			clientsGroup.GET("/:clientId/logs", clientHandler.GetLogs)
			clientsGroup.GET("/:clientId/targets/active", targetHandler.GetActiveTarget)
		}

		// --- Target routes addressed by target ID ---
		targetsGroup := protected.Group("/targets")
		{
			// PATCH /api/v1/targets/{targetId} - in-place adjustment, trainers only
			targetsGroup.PATCH("/:targetId", RoleMiddleware(domain.RoleTrainer), targetHandler.UpdateTarget)
			// GET /api/v1/targets/{targetId}/adherence - owner or managing trainer
			targetsGroup.GET("/:targetId/adherence", targetHandler.GetAdherenceReport)
		}

		// --- Client Specific Routes ---
		clientApiGroup := protected.Group("/client")
		clientApiGroup.Use(RoleMiddleware(domain.RoleClient))
		{
			// POST /api/v1/client/logs - log one day's intake
			clientApiGroup.POST("/logs", clientHandler.LogDay)
		}

		// --- Trainer Specific Routes ---
		// All routes in this group require authentication (from 'protected')
		// AND the user to have the 'trainer' role.
		trainerApiGroup := protected.Group("/trainer")
		trainerApiGroup.Use(RoleMiddleware(domain.RoleTrainer))
		{
			// POST /api/v1/trainer/clients
			trainerApiGroup.POST("/clients", clientHandler.AddClient)
			// GET /api/v1/trainer/clients
			trainerApiGroup.GET("/clients", clientHandler.GetManagedClients)

			// --- Target Management ---
			// POST /api/v1/trainer/clients/{clientId}/targets
			trainerApiGroup.POST("/clients/:clientId/targets", targetHandler.CreateTarget)
			// POST /api/v1/trainer/clients/{clientId}/targets/preview
			trainerApiGroup.POST("/clients/:clientId/targets/preview", targetHandler.PreviewCalculation)
			// POST /api/v1/trainer/clients/{clientId}/targets/recalculate
			trainerApiGroup.POST("/clients/:clientId/targets/recalculate", targetHandler.RecalculateTarget)
			// GET /api/v1/trainer/clients/{clientId}/targets/history
			trainerApiGroup.GET("/clients/:clientId/targets/history", targetHandler.GetTargetHistory)
			// GET /api/v1/trainer/targets/due-for-review
			trainerApiGroup.GET("/targets/due-for-review", targetHandler.GetDueForReview)

			// --- Auto-Adjustment Rules ---
			// POST /api/v1/trainer/clients/{clientId}/rules
			trainerApiGroup.POST("/clients/:clientId/rules", ruleHandler.CreateRule)
			// GET /api/v1/trainer/clients/{clientId}/rules
			trainerApiGroup.GET("/clients/:clientId/rules", ruleHandler.ListRules)
			// POST /api/v1/trainer/clients/{clientId}/rules/check
			trainerApiGroup.POST("/clients/:clientId/rules/check", ruleHandler.CheckRules)
			// PUT /api/v1/trainer/rules/{ruleId}
			trainerApiGroup.PUT("/rules/:ruleId", ruleHandler.UpdateRule)
			// DELETE /api/v1/trainer/rules/{ruleId}
			trainerApiGroup.DELETE("/rules/:ruleId", ruleHandler.DeleteRule)
			// POST /api/v1/trainer/rules/{ruleId}/approve
			trainerApiGroup.POST("/rules/:ruleId/approve", ruleHandler.ApproveRule)
		}
	}
}
