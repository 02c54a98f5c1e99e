package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"libris/apperrors"
)

const internalMessage = "Something went wrong try again later"

var dupKeyField = regexp.MustCompile(`dup key: \{ ?"?([A-Za-z0-9_.]+)"?:`)

// ErrorHandler writes the response for the last error a handler or
// middleware recorded with c.Error. Nothing else writes error bodies.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status, message := translate(err)

		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", c.GetString(requestIDKey),
				"error", err)
		} else {
			log.Debug("request rejected", "status", status, "error", err)
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, gin.H{
			"message":    message,
			"statusCode": status,
		})
	}
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	c.Error(apperrors.NotFound("Not Found"))
}

func translate(err error) (int, string) {
	var (
		validationErrs validator.ValidationErrors
		syntaxErr      *json.SyntaxError
		typeErr        *json.UnmarshalTypeError
	)

	if appErr, ok := apperrors.As(err); ok {
		if appErr.Kind == apperrors.KindInternal {
			return http.StatusInternalServerError, internalMessage
		}
		return appErr.Kind.Status(), appErr.Message
	}

	switch {
	case errors.As(err, &validationErrs):
		messages := lo.Map(validationErrs, func(fe validator.FieldError, _ int) string {
			return fieldMessage(fe)
		})
		return http.StatusBadRequest, strings.Join(messages, ", ")
	case errors.As(err, &typeErr):
		return http.StatusBadRequest, fmt.Sprintf("%s has an invalid type", typeErr.Field)
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, primitive.ErrInvalidHex):
		return http.StatusBadRequest, "Invalid ID format"
	case mongo.IsDuplicateKeyError(err):
		field := "Value"
		if m := dupKeyField.FindStringSubmatch(err.Error()); m != nil {
			field = m[1]
		}
		return http.StatusConflict, field + " already exists"
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	isText := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "excluded_if":
		return field + " is not allowed"
	case "email":
		return field + " must be a valid email"
	case "mongodb":
		return field + " must be a valid ID"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if isText {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if isText {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
