package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"github.com/labstack/gommon/random"
	"github.com/uptrace/bun"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/db/models"
	"github.com/udemarket/markethub/lib/security"
)

const alphaNumBytes = random.Alphanumeric

func (svc *MarkethubService) CreateUser(ctx context.Context, login string, password string) (user *models.User, err error) {
	user = &models.User{}

	// generate user login/password if not provided
	user.Login = login
	if login == "" {
		user.Login = randStringBytes(20)
	}
	if password == "" {
		password = randStringBytes(20)
	}
	user.Password = security.HashPassword(password)

	// Create the user and their double-entry accounts in one transaction.
	err = svc.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
			return err
		}
		accountTypes := []string{
			common.AccountTypeIncoming,
			common.AccountTypeCurrent,
			common.AccountTypeOutgoing,
			common.AccountTypeFees,
		}
		for _, accountType := range accountTypes {
			account := models.Account{UserID: user.ID, Type: accountType}
			if _, err := tx.NewInsert().Model(&account).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	// return the plain text password in the response, not the hash
	user.Password = password
	return user, err
}

func (svc *MarkethubService) FindUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User

	err := svc.DB.NewSelect().Model(&user).Where("id = ?", userID).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (svc *MarkethubService) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User

	err := svc.DB.NewSelect().Model(&user).Where("login = ?", login).Limit(1).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsurePlatformUser finds or creates the reserved platform user. Its id
// is the transfer agent identity for all settlements and its fees account
// collects the platform fee.
func (svc *MarkethubService) EnsurePlatformUser(ctx context.Context) (*models.User, error) {
	user, err := svc.FindUserByLogin(ctx, common.PlatformLogin)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("looking up platform user: %w", err)
	}
	return svc.CreateUser(ctx, common.PlatformLogin, "")
}

func (svc *MarkethubService) CurrentUserBalance(ctx context.Context, userID int64) (int64, error) {
	return svc.Ledger.Balance(ctx, userID)
}

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphaNumBytes[rand.Intn(len(alphaNumBytes))]
	}
	return string(b)
}
