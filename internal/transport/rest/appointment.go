package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telemed/internal/domain"
)

// @Summary Бронирование записи
// @Description Пациент бронирует слот; проверяются кредиты, свобода слота и время начала
// @Tags Записи
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body domain.BookAppointmentDTO true "Параметры бронирования"
// @Success 201 {object} domain.Appointment "Созданная запись"
// @Failure 402 {object} errorResponseBody "Недостаточно кредитов"
// @Failure 409 {object} errorResponseBody "Слот занят"
// @Failure 422 {object} errorResponseBody "Слот уже начался"
// @Router /appointments [post]
func (h *Handler) bookAppointment(c *gin.Context) {
	patientID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.BookAppointmentDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	appointment, err := h.services.Appointment.Book(c.Request.Context(), patientID, input)
	if err != nil {
		if bookingErrorResponse(c, err) {
			return
		}
		h.logger.Error("ошибка при бронировании", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	createdResponse(c, appointment)
}

// @Summary Список записей
// @Description Пациент видит свои записи, врач — свои приемы
// @Tags Записи
// @Security ApiKeyAuth
// @Produce json
// @Param status query string false "Статус записи"
// @Param date_from query string false "Начало периода (2006-01-02)"
// @Param date_to query string false "Конец периода (2006-01-02)"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Записи"
// @Router /appointments [get]
func (h *Handler) getAppointments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	role, err := getUserRole(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var status *domain.AppointmentStatus
	if s := c.Query("status"); s != "" {
		appStatus := domain.AppointmentStatus(s)
		status = &appStatus
	}

	var startDate, endDate *time.Time
	if s := c.Query("date_from"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			startDate = &parsed
		}
	}
	if s := c.Query("date_to"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			parsed = parsed.Add(24 * time.Hour)
			endDate = &parsed
		}
	}

	limit, offset := paginationParams(c)

	filter := domain.AppointmentFilter{
		Status:    status,
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     limit,
		Offset:    offset,
	}

	appointments, total, err := h.services.Appointment.List(c.Request.Context(), userID, role, filter)
	if err != nil {
		h.logger.Error("ошибка при получении записей", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	paginatedSuccessResponse(c, appointments, total, offset/limit+1, limit)
}

// @Summary Запись по идентификатору
// @Tags Записи
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} domain.Appointment "Запись"
// @Failure 404 {object} errorResponseBody "Запись не найдена"
// @Router /appointments/{id} [get]
func (h *Handler) getAppointmentByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	role, err := getUserRole(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID записи")
		return
	}

	appointment, err := h.services.Appointment.GetByID(c.Request.Context(), userID, role, id)
	if err != nil {
		notFoundResponse(c, "запись не найдена")
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

// @Summary Отмена записи
// @Description До начала приема; кредиты не возвращаются
// @Tags Записи
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} domain.Appointment "Отмененная запись"
// @Failure 409 {object} errorResponseBody "Запись уже началась или завершена"
// @Router /appointments/{id} [delete]
func (h *Handler) cancelAppointment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	role, err := getUserRole(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID записи")
		return
	}

	appointment, err := h.services.Appointment.Cancel(c.Request.Context(), userID, role, id)
	if err != nil {
		if bookingErrorResponse(c, err) {
			return
		}
		h.logger.Error("ошибка при отмене записи", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

// @Summary Завершение приема
// @Description Врач завершает прием после его окончания; может приложить заметки
// @Tags Записи
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID записи"
// @Param input body domain.AddNotesDTO false "Заметки врача"
// @Success 200 {object} domain.Appointment "Завершенная запись"
// @Failure 409 {object} errorResponseBody "Прием еще не закончился"
// @Router /appointments/{id}/complete [put]
func (h *Handler) completeAppointment(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID записи")
		return
	}

	var notes string
	var input domain.AddNotesDTO
	if err := c.ShouldBindJSON(&input); err == nil {
		notes = input.Notes
	}

	appointment, err := h.services.Appointment.Complete(c.Request.Context(), doctorID, id, notes)
	if err != nil {
		if bookingErrorResponse(c, err) {
			return
		}
		h.logger.Error("ошибка при завершении записи", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, appointment)
}

// @Summary Подключение к видеосессии
// @Description Выдает реквизиты видеосессии в окне подключения
// @Tags Записи
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID записи"
// @Success 200 {object} domain.VideoSession "Реквизиты видеосессии"
// @Failure 409 {object} errorResponseBody "Окно подключения закрыто"
// @Router /appointments/{id}/join [post]
func (h *Handler) joinAppointment(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID записи")
		return
	}

	session, err := h.services.Appointment.JoinVideo(c.Request.Context(), userID, id)
	if err != nil {
		if bookingErrorResponse(c, err) {
			return
		}
		h.logger.Error("ошибка при подключении к видеосессии", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, session)
}
