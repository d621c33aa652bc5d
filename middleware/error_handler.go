package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pushbridge/pushbridge/errors"
	"github.com/pushbridge/pushbridge/logger"
)

// ErrorHandler converts errors attached to the gin context into the standard
// JSON error envelope. Handlers report failures with c.Error and abort; this
// middleware decides the status code and the response body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// Handle AppError
		if appError, ok := err.(*errors.AppError); ok {
			statusCode := appError.GetHTTPStatus()

			logger.LogHTTPError(c, err, statusCode, fmt.Sprintf("%s error", appError.Type))

			// Code carries the exchange failure kind when one is set, so API
			// consumers can tell transport failures from malformed bodies.
			code := appError.Code
			if code == "" {
				code = strconv.Itoa(statusCode)
			}

			response := map[string]interface{}{
				"type":    string(appError.Type),
				"message": appError.Message,
				"code":    code,
			}

			// Upstream details carry raw response bodies; only expose them
			// for validation errors or in debug mode.
			if appError.Detail != "" && (gin.IsDebugging() ||
				appError.Type == errors.ValidationError ||
				appError.Type == errors.NotFoundError) {
				response["details"] = appError.Detail
			}

			c.JSON(statusCode, response)
			return
		}

		// Handle Gin binding errors - which come as public errors
		if c.Errors.Last().Type == gin.ErrorTypeBind {
			logger.LogHTTPError(c, err, 400, "Request binding error")

			response := map[string]interface{}{
				"type":    string(errors.ValidationError),
				"message": "Failed to bind request",
				"code":    "400",
			}

			if gin.IsDebugging() {
				response["details"] = err.Error()
			}

			c.JSON(400, response)
			return
		}

		// Handle unknown errors
		logger.LogHTTPError(c, err, 500, "Unexpected server error")

		response := map[string]interface{}{
			"type":    string(errors.ServerError),
			"message": "Internal Server Error",
			"code":    "500",
		}

		if gin.IsDebugging() {
			response["details"] = err.Error()
		}

		c.JSON(500, response)
	}
}
