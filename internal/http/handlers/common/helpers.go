package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m-orlov/freelance-market/internal/http/middleware"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
)

var (
	// ErrUserNotInContext возвращается, когда пользователь отсутствует в контексте запроса.
	ErrUserNotInContext = errors.New("пользователь не найден в контексте")
)

// CurrentUserID извлекает идентификатор пользователя из контекста Gin.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotInContext
	}

	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrUserNotInContext
	}

	return userID, nil
}

// CurrentUserRole извлекает роль пользователя из контекста Gin.
func CurrentUserRole(c *gin.Context) (string, error) {
	raw, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return "", ErrUserNotInContext
	}

	role, ok := raw.(string)
	if !ok {
		return "", ErrUserNotInContext
	}

	return role, nil
}

// ParseUUIDParam разбирает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("параметр %s должен быть валидным UUID", paramName)
	}

	return parsed, nil
}

// Fail передаёт ошибку в централизованный обработчик.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// RespondUnauthorized отправляет 401.
func RespondUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "требуется авторизация",
		"code":  apperror.ErrCodeUnauthorized,
	})
}

// RespondBadRequest отправляет 400 с сообщением.
func RespondBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error": message,
		"code":  apperror.ErrCodeValidation,
	})
}

// ParseIntQuery читает целочисленный query параметр с запасным значением.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination извлекает limit и offset из query параметров.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}

// IdempotencyKey читает идемпотентный ключ из заголовка запроса.
func IdempotencyKey(c *gin.Context) *string {
	key := c.GetHeader("Idempotency-Key")
	if key == "" {
		return nil
	}
	return &key
}
