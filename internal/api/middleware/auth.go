package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/storefront/realtime/internal/core/domain"
)

// Context keys set by the auth middlewares.
const (
	KeyIdentity = "identity"
	KeyUserID   = "user_id"
	KeyRole     = "role"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// ParseToken validates an HS256 token and returns the identity it carries.
// The user id is read from "sub", falling back to "user_id"; the role must be
// one the system issues.
func ParseToken(tokenString, jwtSecret string) (*domain.Identity, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, errInvalidToken
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["user_id"].(string)
	}
	role, _ := claims["role"].(string)
	if userID == "" || !domain.ValidRole(role) {
		return nil, errInvalidToken
	}
	return &domain.Identity{UserID: userID, Role: role}, nil
}

// Auth validates the JWT and injects the identity into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if errors.Is(err, errMissingToken) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			id, err := ParseToken(raw, jwtSecret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			setIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalAuth admits anonymous callers. A token may come from the
// Authorization header or, for browser websocket clients that cannot set
// headers, the "token" query parameter. A token that is present but invalid
// is rejected rather than downgraded to anonymous.
func OptionalAuth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request())
			if errors.Is(err, errMissingToken) {
				raw = c.QueryParam("token")
			} else if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}
			if raw == "" {
				return next(c)
			}

			id, err := ParseToken(raw, jwtSecret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			setIdentity(c, id)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid")
	}
	return parts[1], nil
}

func setIdentity(c echo.Context, id *domain.Identity) {
	c.Set(KeyIdentity, id)
	c.Set(KeyUserID, id.UserID)
	c.Set(KeyRole, id.Role)
}
