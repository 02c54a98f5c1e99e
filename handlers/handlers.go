// Package handlers holds the gin controllers. Handlers record failures with
// c.Error and return; middleware.ErrorHandler writes the response.
package handlers

import (
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"libris/apperrors"
	"libris/middleware"
	"libris/services"
)

var setupOnce sync.Once

// SetupValidator makes validation errors report JSON field names.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

type normalizer interface {
	normalize()
}

// bindJSON decodes the body into req, normalizes it and then validates it,
// so that trimmed values are what the binding rules see.
func bindJSON(c *gin.Context, req any) error {
	if c.Request.Body == nil {
		return io.EOF
	}
	if err := json.NewDecoder(c.Request.Body).Decode(req); err != nil {
		return err
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	return binding.Validator.ValidateStruct(req)
}

func parseID(c *gin.Context, param, message string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		return primitive.NilObjectID, apperrors.Wrap(apperrors.KindValidation, message, err)
	}
	return id, nil
}

func currentActor(c *gin.Context) (services.Actor, error) {
	id, err := middleware.UserID(c)
	if err != nil {
		return services.Actor{}, err
	}
	return services.Actor{ID: id, Role: middleware.Role(c)}, nil
}
