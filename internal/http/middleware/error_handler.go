package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/m-orlov/freelance-market/internal/dto"
	"github.com/m-orlov/freelance-market/internal/logger"
	"github.com/m-orlov/freelance-market/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Ошибки приложения переводятся в HTTP статус и структурированный ответ,
// внутренние ошибки маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.HTTPStatus >= http.StatusInternalServerError && logger.Log != nil {
				logger.Log.WithFields(logrus.Fields{
					"error":  err.Error(),
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("Request error")
			}

			c.JSON(appErr.HTTPStatus, dto.ErrorResponse{
				Error:  appErr.Message,
				Code:   string(appErr.Code),
				Fields: appErr.Fields,
			})
			return
		}

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "внутренняя ошибка сервера",
			Code:  string(apperror.ErrCodeInternal),
		})
	}
}
