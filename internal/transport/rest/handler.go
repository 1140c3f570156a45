package rest

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telemed/config"
	"telemed/internal/service"
	"telemed/internal/transport/websocket"
)

type Handler struct {
	services     *service.Services
	logger       *zap.Logger
	config       *config.Config
	signalingHub *websocket.SignalingHub
}

func NewHandler(services *service.Services, logger *zap.Logger, config *config.Config, signalingHub *websocket.SignalingHub) *Handler {
	return &Handler{
		services:     services,
		logger:       logger,
		config:       config,
		signalingHub: signalingHub,
	}
}

func (h *Handler) InitRoutes(router *gin.Engine) {
	router.Use(h.loggerMiddleware())
	router.Use(h.errorMiddleware())
	router.Use(h.corsMiddleware())

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
			auth.POST("/refresh", h.refreshTokens)
			auth.POST("/logout", h.logout)
		}

		users := api.Group("/users")
		users.Use(h.authMiddleware())
		{
			users.GET("/me", h.getCurrentUser)
			users.PUT("/me", h.updateCurrentUser)
			users.PUT("/me/password", h.updatePassword)
		}

		doctors := api.Group("/doctors")
		{
			doctors.GET("/", h.getDoctors)
			doctors.GET("/:id", h.getDoctorByID)
			doctors.GET("/:id/available-days", h.getAvailableDays)

			doctorOnly := doctors.Group("/", h.authMiddleware(), h.doctorMiddleware())
			{
				doctorOnly.POST("/credential", h.uploadCredential)

				doctorOnly.POST("/availability", h.createAvailability)
				doctorOnly.GET("/availability", h.listOwnAvailability)
				doctorOnly.DELETE("/availability/:id", h.deleteAvailability)
				doctorOnly.PUT("/availability/:id/block", h.blockAvailability)
			}
		}

		appointments := api.Group("/appointments")
		appointments.Use(h.authMiddleware())
		{
			appointments.POST("/", h.patientMiddleware(), h.bookAppointment)
			appointments.GET("/", h.getAppointments)
			appointments.GET("/:id", h.getAppointmentByID)
			appointments.DELETE("/:id", h.cancelAppointment)
			appointments.PUT("/:id/complete", h.doctorMiddleware(), h.completeAppointment)
			appointments.POST("/:id/join", h.joinAppointment)
		}

		payouts := api.Group("/payouts")
		payouts.Use(h.authMiddleware())
		{
			doctorOnly := payouts.Group("/", h.doctorMiddleware())
			{
				doctorOnly.POST("/", h.requestPayout)
				doctorOnly.GET("/", h.getPayoutHistory)
				doctorOnly.GET("/earnings", h.getEarnings)
			}
		}

		admin := api.Group("/admin")
		admin.Use(h.authMiddleware(), h.adminMiddleware())
		{
			admin.GET("/doctors/pending", h.getPendingDoctors)
			admin.PUT("/doctors/:id/verification", h.setDoctorVerification)
			admin.GET("/payouts/pending", h.getPendingPayouts)
			admin.PUT("/payouts/:id/approve", h.approvePayout)
		}
	}

	// Сигнальный канал WebRTC; авторизация выполняется внутри по токену.
	router.GET("/ws/signaling", h.signalingHub.HandleWebSocket)
}
