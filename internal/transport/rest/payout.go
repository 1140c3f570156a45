package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telemed/internal/domain"
)

// @Summary Заявка на выплату
// @Description Врач запрашивает вывод заработанных кредитов; кредиты резервируются сразу
// @Tags Выплаты
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body domain.RequestPayoutDTO true "Количество кредитов"
// @Success 201 {object} successResponseBody "Идентификатор заявки"
// @Failure 402 {object} errorResponseBody "Недостаточно кредитов"
// @Router /payouts [post]
func (h *Handler) requestPayout(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.RequestPayoutDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	id, err := h.services.Payout.Request(c.Request.Context(), doctorID, input)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			errorResponse(c, http.StatusPaymentRequired, err.Error())
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "врач не найден")
			return
		}
		h.logger.Error("ошибка при создании заявки на выплату", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	createdResponse(c, map[string]interface{}{
		"id": id,
	})
}

// @Summary История выплат
// @Tags Выплаты
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {array} domain.Payout "Заявки врача"
// @Router /payouts [get]
func (h *Handler) getPayoutHistory(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	limit, offset := paginationParams(c)

	payouts, err := h.services.Payout.History(c.Request.Context(), doctorID, limit, offset)
	if err != nil {
		h.logger.Error("ошибка при получении истории выплат", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, payouts)
}

// @Summary Сводка по кредитам
// @Description Текущий баланс, зарезервированные и выплаченные кредиты
// @Tags Выплаты
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} domain.Earnings "Сводка"
// @Router /payouts/earnings [get]
func (h *Handler) getEarnings(c *gin.Context) {
	doctorID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	earnings, err := h.services.Payout.Earnings(c.Request.Context(), doctorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "врач не найден")
			return
		}
		h.logger.Error("ошибка при получении сводки", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, earnings)
}

// @Summary Заявки на выплату в очереди
// @Tags Администрирование
// @Security ApiKeyAuth
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {array} domain.Payout "Заявки PENDING"
// @Router /admin/payouts/pending [get]
func (h *Handler) getPendingPayouts(c *gin.Context) {
	limit, offset := paginationParams(c)

	payouts, err := h.services.Payout.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("ошибка при получении заявок", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, payouts)
}

// @Summary Подтверждение выплаты
// @Description Администратор подтверждает заявку; повторное подтверждение отклоняется
// @Tags Администрирование
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "ID заявки"
// @Success 200 {object} domain.Payout "Подтвержденная заявка"
// @Failure 404 {object} errorResponseBody "Заявка не найдена"
// @Router /admin/payouts/{id}/approve [put]
func (h *Handler) approvePayout(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequestResponse(c, "некорректный ID заявки")
		return
	}

	payout, err := h.services.Payout.Approve(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "заявка не найдена")
			return
		}
		errorResponse(c, http.StatusConflict, err.Error())
		return
	}

	successResponse(c, http.StatusOK, payout)
}
