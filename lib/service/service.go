package service

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/udemarket/markethub/contentstore"
	"github.com/udemarket/markethub/db/models"
	"github.com/udemarket/markethub/ledger"
	"github.com/udemarket/markethub/lib/tokens"
	"github.com/udemarket/markethub/rabbitmq"
)

// MarkethubService wires the ledger client, the content store and the
// event plumbing together. Controllers and background routines talk to
// this struct only.
type MarkethubService struct {
	Config         *Config
	DB             *bun.DB
	Ledger         ledger.Ledger
	ContentStore   contentstore.Client
	Attempts       AttemptStore
	Logger         *lecho.Logger
	EventPubSub    *Pubsub
	RabbitMQClient rabbitmq.Client
	// PlatformID is the reserved platform user acting as transfer agent
	// for settlements.
	PlatformID int64
}

func (svc *MarkethubService) GenerateToken(ctx context.Context, login, password, inRefreshToken string) (accessToken, refreshToken string, err error) {
	var user *models.User

	switch {
	case login != "" || password != "":
		{
			user, err = svc.FindUserByLogin(ctx, login)
			if err != nil {
				return "", "", fmt.Errorf("bad auth")
			}
			if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
				return "", "", fmt.Errorf("bad auth")
			}
		}
	case inRefreshToken != "":
		{
			userID, err := tokens.ParseRefreshToken(svc.Config.JWTSecret, inRefreshToken)
			if err != nil {
				return "", "", fmt.Errorf("bad auth")
			}
			user, err = svc.FindUser(ctx, userID)
			if err != nil {
				return "", "", fmt.Errorf("bad auth")
			}
		}
	default:
		{
			return "", "", fmt.Errorf("login and password or refresh token is required")
		}
	}

	accessToken, err = tokens.GenerateAccessToken(svc.Config.JWTSecret, svc.Config.JWTAccessTokenExpiry, user)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = tokens.GenerateRefreshToken(svc.Config.JWTSecret, svc.Config.JWTRefreshTokenExpiry, user)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
