package tokens

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"

	"github.com/udemarket/markethub/db/models"
)

type jwtCustomClaims struct {
	ID        int64 `json:"id"`
	IsRefresh bool  `json:"isRefresh"`

	jwt.StandardClaims
}

// GenerateAccessToken : Generate Access Token
func GenerateAccessToken(secret []byte, expiryInSeconds int, u *models.User) (string, error) {
	return generateToken(secret, expiryInSeconds, u, false)
}

// GenerateRefreshToken : Generate Refresh Token
func GenerateRefreshToken(secret []byte, expiryInSeconds int, u *models.User) (string, error) {
	return generateToken(secret, expiryInSeconds, u, true)
}

func generateToken(secret []byte, expiryInSeconds int, u *models.User, isRefresh bool) (string, error) {
	claims := &jwtCustomClaims{
		ID:        u.ID,
		IsRefresh: isRefresh,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Duration(expiryInSeconds) * time.Second).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates a token and returns the user id it was issued for.
func ParseToken(secret []byte, tokenString string) (int64, error) {
	claims := &jwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.IsRefresh {
		return 0, fmt.Errorf("invalid token")
	}
	return claims.ID, nil
}

// ParseRefreshToken validates a refresh token and returns the user id.
func ParseRefreshToken(secret []byte, tokenString string) (int64, error) {
	claims := &jwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid || !claims.IsRefresh {
		return 0, fmt.Errorf("invalid token")
	}
	return claims.ID, nil
}

// Middleware authenticates Bearer tokens and puts the user id on the
// request context as UserID.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "bad auth")
			}
			userID, err := ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "bad auth")
			}
			c.Set("UserID", userID)
			return next(c)
		}
	}
}

// AdminTokenMiddleware guards admin-only endpoints. With an empty
// configured token the middleware is a no-op.
func AdminTokenMiddleware(adminToken string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if adminToken == "" {
				return next(c)
			}
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.TrimPrefix(auth, "Bearer ") != adminToken {
				return echo.NewHTTPError(http.StatusUnauthorized, "bad auth")
			}
			return next(c)
		}
	}
}
