package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telemed/internal/domain"
)

// @Summary Текущий пользователь
// @Description Возвращает профиль авторизованного пользователя
// @Tags Пользователи
// @Security ApiKeyAuth
// @Produce json
// @Success 200 {object} domain.User "Профиль пользователя"
// @Failure 401 {object} errorResponseBody "Не авторизован"
// @Router /users/me [get]
func (h *Handler) getCurrentUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	user, err := h.services.User.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "пользователь не найден")
			return
		}
		h.logger.Error("ошибка при получении пользователя", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	successResponse(c, http.StatusOK, user)
}

// @Summary Обновление профиля
// @Description Обновляет данные авторизованного пользователя
// @Tags Пользователи
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body domain.UpdateUserDTO true "Обновляемые поля"
// @Success 200 {object} messageResponseType "Профиль обновлен"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Router /users/me [put]
func (h *Handler) updateCurrentUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.UpdateUserDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	if err := h.services.User.Update(c.Request.Context(), userID, input); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "пользователь не найден")
			return
		}
		h.logger.Error("ошибка при обновлении пользователя", zap.Error(err))
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	messageResponse(c, http.StatusOK, "профиль обновлен")
}

// @Summary Смена пароля
// @Description Меняет пароль после проверки текущего
// @Tags Пользователи
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param input body domain.PasswordUpdateDTO true "Старый и новый пароли"
// @Success 200 {object} messageResponseType "Пароль обновлен"
// @Failure 400 {object} errorResponseBody "Ошибка валидации"
// @Router /users/me/password [put]
func (h *Handler) updatePassword(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		unauthorizedResponse(c)
		return
	}

	var input domain.PasswordUpdateDTO
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequestResponse(c, "неверный формат данных")
		return
	}

	if err := h.services.User.UpdatePassword(c.Request.Context(), userID, input); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			notFoundResponse(c, "пользователь не найден")
			return
		}
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	messageResponse(c, http.StatusOK, "пароль обновлен")
}
