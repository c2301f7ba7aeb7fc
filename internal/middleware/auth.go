package middleware

import (
	"net/http"
	"strings"

	"content-paywall/internal/model"
	"content-paywall/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const accountContextKey = "account"

// Identity resolves the caller from the X-Account-Id header (the stable
// id on the delivery channel) and lazily creates the account row on
// first contact.
func Identity(accountRepo repository.AccountRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			externalID := c.Request().Header.Get("X-Account-Id")
			if externalID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing X-Account-Id header")
			}
			username := c.Request().Header.Get("X-Account-Username")

			account, err := accountRepo.GetOrCreate(c.Request().Context(), externalID, username)
			if err != nil {
				return err
			}
			c.Set(accountContextKey, account)
			return next(c)
		}
	}
}

// AccountFrom returns the account set by Identity.
func AccountFrom(c echo.Context) (*model.Account, error) {
	account, ok := c.Get(accountContextKey).(*model.Account)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no account in context")
	}
	return account, nil
}

// AdminAuth guards operator routes with an HS256 bearer token.
func AdminAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}
