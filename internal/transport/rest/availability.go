package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telemed/internal/domain"
	"telemed/pkg/timewindow"
)

// @Summary Свободные дни врача
// @Description Слоты на горизонт бронирования; дни без слотов присутствуют с пустым списком
// @Tags Доступность
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {array} domain.AvailableDay "Дни со слотами"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id}/available-days [get]
func (h *Handler) getAvailableDays(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID врача")
		return
	}

	if _, err := h.services.Doctor.GetByID(c.Request.Context(), id); err != nil {
		notFoundResponse(c, "врач не найден")
		return
	}

	days, err := h.services.Availability.GetAvailableDays(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("ошибка при вычислении свободных слотов", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, days)
}

// @Summary Создание блока доступности
// @Description Врач открывает окно рабочего времени
// @Tags Доступность
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body domain.CreateAvailabilityDTO true "Границы окна и часовой пояс"
// @Success 201 {object} successResponseBody "Идентификатор блока"
// @Failure 400 {object} errorResponseBody "Некорректное окно"
// @Router /doctors/availability [post]
func (h *Handler) createAvailability(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.CreateAvailabilityDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	id, err := h.services.Availability.Create(c.Request.Context(), doctorID, input)
	if err != nil {
		if errors.Is(err, timewindow.ErrInvalidWindow) {
			badRequestResponse(c, err.Error())
			return
		}
		errorResponse(c, http.StatusConflict, err.Error())
		return
	}

	createdResponse(c, map[string]interface{}{
		"id": id,
	})
}

// @Summary Блоки доступности врача
// @Tags Доступность
// @Security ApiKeyAuth
// @Produce json
// @Param date_from query string false "Начало периода (2006-01-02)"
// @Param date_to query string false "Конец периода (2006-01-02)"
// @Success 200 {array} domain.AvailabilityBlock "Блоки"
// @Router /doctors/availability [get]
func (h *Handler) listOwnAvailability(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var from, to *time.Time
	if s := c.Query("date_from"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			from = &parsed
		}
	}
	if s := c.Query("date_to"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			parsed = parsed.Add(24 * time.Hour)
			to = &parsed
		}
	}

	blocks, err := h.services.Availability.ListByDoctor(c.Request.Context(), doctorID, from, to)
	if err != nil {
		h.logger.Error("ошибка при получении блоков доступности", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, blocks)
}

// @Summary Удаление блока доступности
// @Description Забронированный блок удалить нельзя
// @Tags Доступность
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID блока"
// @Success 204 {object} nil "Блок удален"
// @Failure 404 {object} errorResponseBody "Блок не найден"
// @Router /doctors/availability/{id} [delete]
func (h *Handler) deleteAvailability(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID блока")
		return
	}

	if err := h.services.Availability.Delete(c.Request.Context(), doctorID, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "блок не найден")
			return
		}
		errorResponse(c, http.StatusConflict, err.Error())
		return
	}

	noContentResponse(c)
}

// @Summary Закрытие блока доступности
// @Description Переводит блок в статус BLOCKED, не удаляя его
// @Tags Доступность
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID блока"
// @Success 200 {object} messageResponseType "Блок закрыт"
// @Failure 404 {object} errorResponseBody "Блок не найден"
// @Router /doctors/availability/{id}/block [put]
func (h *Handler) blockAvailability(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID блока")
		return
	}

	if err := h.services.Availability.MarkBlocked(c.Request.Context(), doctorID, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "блок не найден")
			return
		}
		errorResponse(c, http.StatusConflict, err.Error())
		return
	}

	messageResponse(c, http.StatusOK, "блок закрыт")
}
