package rest

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telemed/internal/domain"
)

// @Summary Каталог врачей
// @Description Список врачей, прошедших проверку; фильтр по специальности
// @Tags Врачи
// @Produce json
// @Param specialty query string false "Специальность"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Список врачей"
// @Router /doctors [get]
func (h *Handler) getDoctors(c *gin.Context) {
	var specialty *string
	if s := c.Query("specialty"); s != "" {
		specialty = &s
	}

	limit, offset := paginationParams(c)

	doctors, total, err := h.services.Doctor.ListVerified(c.Request.Context(), specialty, limit, offset)
	if err != nil {
		h.logger.Error("ошибка при получении списка врачей", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	paginatedSuccessResponse(c, doctors, total, offset/limit+1, limit)
}

// @Summary Врач по идентификатору
// @Tags Врачи
// @Produce json
// @Param id path int true "ID врача"
// @Success 200 {object} domain.User "Профиль врача"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /doctors/{id} [get]
func (h *Handler) getDoctorByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID врача")
		return
	}

	doctor, err := h.services.Doctor.GetByID(c.Request.Context(), id)
	if err != nil {
		notFoundResponse(c, "врач не найден")
		return
	}

	successResponse(c, http.StatusOK, doctor)
}

// @Summary Загрузка документа врача
// @Description Врач загружает диплом или лицензию для проверки администратором
// @Tags Врачи
// @Security ApiKeyAuth
// @Accept mpfd
// @Produce json
// @Param file formData file true "Документ (изображение или PDF)"
// @Success 200 {object} successResponseBody "Ссылка на документ"
// @Failure 400 {object} errorResponseBody "Некорректный файл"
// @Router /doctors/credential [post]
func (h *Handler) uploadCredential(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequestResponse(c, "файл не передан")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		badRequestResponse(c, "не удалось открыть файл")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequestResponse(c, "не удалось прочитать файл")
		return
	}

	url, err := h.services.Doctor.UploadCredential(c.Request.Context(), doctorID, data, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "врач не найден")
			return
		}
		h.logger.Error("ошибка при загрузке документа", zap.Error(err))
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	successResponse(c, http.StatusOK, map[string]interface{}{
		"credential_url": url,
	})
}

// @Summary Врачи на проверке
// @Description Администратор получает список врачей со статусом PENDING
// @Tags Администрирование
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} paginatedResponse "Список врачей"
// @Router /admin/doctors/pending [get]
func (h *Handler) getPendingDoctors(c *gin.Context) {
	limit, offset := paginationParams(c)

	doctors, total, err := h.services.Doctor.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("ошибка при получении списка врачей", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	paginatedSuccessResponse(c, doctors, total, offset/limit+1, limit)
}

type verificationInput struct {
	Status domain.VerificationStatus `json:"status" binding:"required,oneof=VERIFIED REJECTED"`
}

// @Summary Решение по врачу
// @Description Администратор подтверждает или отклоняет врача
// @Tags Администрирование
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param id path int true "ID врача"
// @Param input body verificationInput true "Новый статус"
// @Success 200 {object} messageResponseType "Статус обновлен"
// @Failure 404 {object} errorResponseBody "Врач не найден"
// @Router /admin/doctors/{id}/verification [put]
func (h *Handler) setDoctorVerification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID врача")
		return
	}

	var input verificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	if err := h.services.Doctor.SetVerification(c.Request.Context(), id, input.Status); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "врач не найден")
			return
		}
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	messageResponse(c, http.StatusOK, "статус проверки обновлен")
}

func paginationParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
