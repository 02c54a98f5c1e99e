package middleware

import (
	"errors"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"libris/apperrors"
	"libris/auth"
	"libris/models"
)

const (
	userIDKey = "userId"
	roleKey   = "role"
)

var (
	errNoToken       = apperrors.Unauthorized("Authentication required")
	errMalformedAuth = apperrors.Unauthorized("Authorization header must be: Bearer <token>")
	errForbiddenRole = apperrors.Forbidden("You do not have permission to perform this action")
)

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// Authenticate resolves the bearer token into the caller's id and role.
func Authenticate(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Error(errNoToken)
			c.Abort()
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Error(errMalformedAuth)
			c.Abort()
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				message = "Token expired"
			}
			c.Error(apperrors.Wrap(apperrors.KindUnauthorized, message, err))
			c.Abort()
			return
		}

		c.Set(userIDKey, claims.ID)
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

// Authorize lets the request through only when the caller has one of roles.
// It must run after Authenticate.
func Authorize(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, Role(c)) {
			c.Error(errForbiddenRole)
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller's account id.
func UserID(c *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.GetString(userIDKey))
	if err != nil {
		return primitive.NilObjectID, apperrors.Wrap(apperrors.KindUnauthorized, "Invalid token", err)
	}
	return id, nil
}

func Role(c *gin.Context) models.Role {
	role, _ := c.Get(roleKey)
	r, _ := role.(models.Role)
	return r
}
