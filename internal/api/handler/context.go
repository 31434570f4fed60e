package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storefront/realtime/internal/api/middleware"
	"github.com/storefront/realtime/internal/core/domain"
)

// ctxIdentity returns the identity injected by the auth middlewares, or nil
// for an anonymous caller.
func ctxIdentity(c echo.Context) *domain.Identity {
	id, _ := c.Get(middleware.KeyIdentity).(*domain.Identity)
	return id
}

// ctxAdmin fails fast when the caller is not an admin. RBAC runs first on the
// admin routes; this guards handlers mounted without it.
func ctxAdmin(c echo.Context) (*domain.Identity, error) {
	id := ctxIdentity(c)
	if id == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	if !id.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return id, nil
}
