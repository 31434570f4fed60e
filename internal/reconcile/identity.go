package reconcile

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storefront/realtime/internal/core/domain"
)

// TokenIdentity reads the identity a hub token carries without verifying its
// signature. The client only needs it to filter frames locally; the hub
// verifies the token when the session opens. An empty token is anonymous.
func TokenIdentity(token string) (*domain.Identity, error) {
	if token == "" {
		return nil, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("read token claims: %w", err)
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		userID, _ = claims["user_id"].(string)
	}
	role, _ := claims["role"].(string)
	if userID == "" || !domain.ValidRole(role) {
		return nil, errors.New("read token claims: token carries no usable identity")
	}
	return &domain.Identity{UserID: userID, Role: role}, nil
}
