package backend

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jo-hoe/agerestore/internal/core"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

// Claims is the token payload issued by the identity provider
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses an HS256 bearer token and returns the caller identity
func (v *TokenVerifier) Verify(tokenString string) (core.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return core.Identity{}, err
	}
	if !token.Valid {
		return core.Identity{}, errors.New("invalid token")
	}
	if claims.Subject == "" || claims.Email == "" {
		return core.Identity{}, errors.New("token is missing subject or email")
	}
	return core.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}

// Authenticate requires a valid bearer token and stores the identity on the context
func (v *TokenVerifier) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			identity, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				slog.Debug("token rejected", "path", c.Path(), "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

// RequireAdmin allows only identities whose email is in the configured admin set
func RequireAdmin(admins core.AdminSet) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := c.Get(identityKey).(core.Identity)
			if !ok || !admins.Contains(identity.Email) {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}

func identityFrom(c echo.Context) core.Identity {
	identity, _ := c.Get(identityKey).(core.Identity)
	return identity
}
