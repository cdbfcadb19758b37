package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/db/models"
)

// PostgresLedger stores items, assets and settlement entries in Postgres.
// Row locks (SELECT ... FOR UPDATE) serialize writes per item and per
// asset; concurrent purchase attempts on the same item queue behind the
// lock and all but the first fail the sold check.
type PostgresLedger struct {
	DB             *bun.DB
	FeeBasisPoints int64
	// PlatformID is the reserved platform user: transfer agent for
	// settlements, recipient of fees.
	PlatformID int64
}

func NewPostgresLedger(db *bun.DB, feeBasisPoints, platformID int64) *PostgresLedger {
	return &PostgresLedger{DB: db, FeeBasisPoints: feeBasisPoints, PlatformID: platformID}
}

var _ Ledger = (*PostgresLedger)(nil)

func (l *PostgresLedger) CreateListing(ctx context.Context, assetID, seller, price int64) (int64, error) {
	var itemID int64
	err := l.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		itemID, err = l.createListingTx(ctx, tx, assetID, seller, price)
		return err
	})
	return itemID, err
}

// createListingTx holds the single listing-creation path used by both
// CreateListing and Resell, so the precondition checks cannot diverge.
func (l *PostgresLedger) createListingTx(ctx context.Context, tx bun.Tx, assetID, seller, price int64) (int64, error) {
	if _, err := TotalPrice(price, l.FeeBasisPoints); err != nil {
		return 0, err
	}
	asset := models.Asset{}
	err := tx.NewSelect().Model(&asset).Where("id = ?", assetID).For("UPDATE").Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: asset %d", common.ErrNotFound, assetID)
		}
		return 0, err
	}
	if asset.Owner != seller {
		return 0, fmt.Errorf("%w: asset %d is owned by %d", common.ErrNotOwner, assetID, asset.Owner)
	}
	authorized, err := tx.NewSelect().Model((*models.AssetAuthorization)(nil)).
		Where("asset_id = ? AND agent = ?", assetID, l.PlatformID).Exists(ctx)
	if err != nil {
		return 0, err
	}
	if !authorized {
		return 0, fmt.Errorf("%w: platform has no transfer agency for asset %d", common.ErrNotAuthorized, assetID)
	}
	// A second active listing would let two settlements race for the same
	// asset, so an asset can have at most one unsold item at a time.
	active, err := tx.NewSelect().Model((*models.Item)(nil)).
		Where("asset_id = ? AND sold = false", assetID).Exists(ctx)
	if err != nil {
		return 0, err
	}
	if active {
		return 0, fmt.Errorf("%w: asset %d already has an active listing", common.ErrInvalidArgument, assetID)
	}
	item := models.Item{
		AssetID: assetID,
		Price:   price,
		Seller:  seller,
		Creator: asset.Creator,
	}
	if _, err := tx.NewInsert().Model(&item).Exec(ctx); err != nil {
		return 0, err
	}
	return item.ID, nil
}

func (l *PostgresLedger) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	item := models.Item{}
	err := l.DB.NewSelect().Model(&item).Where("id = ?", itemID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: item %d", common.ErrNotFound, itemID)
		}
		return nil, err
	}
	return &item, nil
}

// GetTotalPrice is computed fresh on every query and never stored on the
// item row.
func (l *PostgresLedger) GetTotalPrice(ctx context.Context, itemID int64) (int64, error) {
	item, err := l.GetItem(ctx, itemID)
	if err != nil {
		return 0, err
	}
	return TotalPrice(item.Price, l.FeeBasisPoints)
}

func (l *PostgresLedger) ItemCount(ctx context.Context) (int64, error) {
	// Item ids are dense and rows are never deleted, so the count is also
	// the high-water mark.
	count, err := l.DB.NewSelect().Model((*models.Item)(nil)).Count(ctx)
	return int64(count), err
}

func (l *PostgresLedger) ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	items := []models.Item{}
	query := l.DB.NewSelect().Model(&items).OrderExpr("id ASC")
	if filter.Seller != 0 {
		query.Where("seller = ?", filter.Seller)
	}
	if filter.Creator != 0 {
		query.Where("creator = ?", filter.Creator)
	}
	if filter.AssetID != 0 {
		query.Where("asset_id = ?", filter.AssetID)
	}
	if filter.Sold != nil {
		query.Where("sold = ?", *filter.Sold)
	}
	err := query.Scan(ctx)
	return items, err
}

func (l *PostgresLedger) Mint(ctx context.Context, owner int64, descriptorRef string) (int64, error) {
	if descriptorRef == "" {
		return 0, fmt.Errorf("%w: empty descriptor ref", common.ErrInvalidArgument)
	}
	asset := models.Asset{
		DescriptorRef: descriptorRef,
		Owner:         owner,
		Creator:       owner,
	}
	if _, err := l.DB.NewInsert().Model(&asset).Exec(ctx); err != nil {
		return 0, err
	}
	return asset.ID, nil
}

func (l *PostgresLedger) AuthorizeTransferAgent(ctx context.Context, owner, agent, assetID int64) error {
	return l.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		asset := models.Asset{}
		err := tx.NewSelect().Model(&asset).Where("id = ?", assetID).For("UPDATE").Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: asset %d", common.ErrNotFound, assetID)
			}
			return err
		}
		if asset.Owner != owner {
			return fmt.Errorf("%w: asset %d is owned by %d", common.ErrNotOwner, assetID, asset.Owner)
		}
		auth := models.AssetAuthorization{AssetID: assetID, Agent: agent}
		_, err = tx.NewInsert().Model(&auth).On("CONFLICT DO NOTHING").Exec(ctx)
		return err
	})
}

func (l *PostgresLedger) Transfer(ctx context.Context, assetID, from, to, invokedBy int64) error {
	return l.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return l.transferTx(ctx, tx, assetID, from, to, invokedBy)
	})
}

func (l *PostgresLedger) transferTx(ctx context.Context, tx bun.Tx, assetID, from, to, invokedBy int64) error {
	asset := models.Asset{}
	err := tx.NewSelect().Model(&asset).Where("id = ?", assetID).For("UPDATE").Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: asset %d", common.ErrNotFound, assetID)
		}
		return err
	}
	if invokedBy != from {
		authorized, err := tx.NewSelect().Model((*models.AssetAuthorization)(nil)).
			Where("asset_id = ? AND agent = ?", assetID, invokedBy).Exists(ctx)
		if err != nil {
			return err
		}
		if !authorized {
			return fmt.Errorf("%w: %d may not move asset %d", common.ErrNotAuthorized, invokedBy, assetID)
		}
	}
	if asset.Owner != from {
		return fmt.Errorf("%w: asset %d is owned by %d, not %d", common.ErrOwnershipMismatch, assetID, asset.Owner, from)
	}
	asset.Owner = to
	if _, err := tx.NewUpdate().Model(&asset).Column("owner", "updated_at").WherePK().Exec(ctx); err != nil {
		return err
	}
	// Authorizations do not survive a transfer; the new cycle needs a
	// fresh grant.
	_, err = tx.NewDelete().Model((*models.AssetAuthorization)(nil)).Where("asset_id = ?", assetID).Exec(ctx)
	return err
}

func (l *PostgresLedger) OwnerOf(ctx context.Context, assetID int64) (int64, error) {
	asset, err := l.findAsset(ctx, assetID)
	if err != nil {
		return 0, err
	}
	return asset.Owner, nil
}

func (l *PostgresLedger) DescriptorOf(ctx context.Context, assetID int64) (string, error) {
	asset, err := l.findAsset(ctx, assetID)
	if err != nil {
		return "", err
	}
	return asset.DescriptorRef, nil
}

func (l *PostgresLedger) findAsset(ctx context.Context, assetID int64) (*models.Asset, error) {
	asset := models.Asset{}
	err := l.DB.NewSelect().Model(&asset).Where("id = ?", assetID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: asset %d", common.ErrNotFound, assetID)
		}
		return nil, err
	}
	return &asset, nil
}

func (l *PostgresLedger) Purchase(ctx context.Context, itemID, payment, buyer int64) (*models.Item, error) {
	item := models.Item{}
	err := l.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&item).Where("id = ?", itemID).For("UPDATE").Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: item %d", common.ErrNotFound, itemID)
			}
			return err
		}
		if item.Sold {
			return fmt.Errorf("%w: item %d", common.ErrAlreadySold, itemID)
		}
		// sellers cannot buy their own listing; the payout entry would
		// debit and credit the same account
		if buyer == item.Seller {
			return fmt.Errorf("%w: item %d is the buyer's own listing", common.ErrInvalidArgument, itemID)
		}
		total, err := TotalPrice(item.Price, l.FeeBasisPoints)
		if err != nil {
			return err
		}
		// Exact match only: over- and underpayment both fail.
		if payment != total {
			return fmt.Errorf("%w: total price of item %d is %d, got %d", common.ErrInsufficientPayment, itemID, total, payment)
		}

		// Only settlement moves listed assets, so an owner other than the
		// seller here means the ledger is corrupt.
		owner, err := l.ownerOfTx(ctx, tx, item.AssetID)
		if err != nil {
			return err
		}
		if owner != item.Seller {
			return fmt.Errorf("%w: listed asset %d owned by %d, seller is %d", common.ErrFatal, item.AssetID, owner, item.Seller)
		}
		if err := l.transferTx(ctx, tx, item.AssetID, item.Seller, buyer, l.PlatformID); err != nil {
			return err
		}

		// Payout: price to the seller, fee to the platform, both debited
		// from the buyer.
		if err := l.creditTx(ctx, tx, &item, buyer, item.Seller, common.AccountTypeCurrent, item.Price, models.EntryTypePurchase); err != nil {
			return err
		}
		if fee := total - item.Price; fee > 0 {
			if err := l.creditTx(ctx, tx, &item, buyer, l.PlatformID, common.AccountTypeFees, fee, models.EntryTypeFee); err != nil {
				return err
			}
		}

		item.Sold = true
		_, err = tx.NewUpdate().Model(&item).Column("sold", "sold_at").WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (l *PostgresLedger) ownerOfTx(ctx context.Context, tx bun.Tx, assetID int64) (int64, error) {
	asset := models.Asset{}
	err := tx.NewSelect().Model(&asset).Where("id = ?", assetID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: asset %d", common.ErrNotFound, assetID)
		}
		return 0, err
	}
	return asset.Owner, nil
}

func (l *PostgresLedger) creditTx(ctx context.Context, tx bun.Tx, item *models.Item, payer, payee int64, payeeAccountType string, amount int64, entryType string) error {
	debitAccount, err := l.accountForTx(ctx, tx, common.AccountTypeCurrent, payer)
	if err != nil {
		return err
	}
	creditAccount, err := l.accountForTx(ctx, tx, payeeAccountType, payee)
	if err != nil {
		return err
	}
	entry := models.TransactionEntry{
		UserID:          payee,
		ItemID:          item.ID,
		CreditAccountID: creditAccount.ID,
		DebitAccountID:  debitAccount.ID,
		Amount:          amount,
		EntryType:       entryType,
	}
	_, err = tx.NewInsert().Model(&entry).Exec(ctx)
	return err
}

func (l *PostgresLedger) accountForTx(ctx context.Context, tx bun.Tx, accountType string, userID int64) (models.Account, error) {
	account := models.Account{}
	err := tx.NewSelect().Model(&account).Where("user_id = ? AND type = ?", userID, accountType).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account, fmt.Errorf("%w: no %s account for user %d", common.ErrFatal, accountType, userID)
		}
		return account, err
	}
	return account, nil
}

func (l *PostgresLedger) Resell(ctx context.Context, itemID, newPrice, caller int64) (int64, error) {
	var newItemID int64
	err := l.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		item := models.Item{}
		err := tx.NewSelect().Model(&item).Where("id = ?", itemID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: item %d", common.ErrNotFound, itemID)
			}
			return err
		}
		// The seller field on the old item is historical; only current
		// ownership of the asset counts here, checked inside
		// createListingTx. The old row stays untouched.
		newItemID, err = l.createListingTx(ctx, tx, item.AssetID, caller, newPrice)
		return err
	})
	return newItemID, err
}

func (l *PostgresLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	account := models.Account{}
	err := l.DB.NewSelect().Model(&account).Where("user_id = ? AND type = ?", userID, common.AccountTypeCurrent).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: user %d", common.ErrNotFound, userID)
		}
		return 0, err
	}
	var balance int64
	err = l.DB.NewSelect().Model((*models.TransactionEntry)(nil)).
		ColumnExpr("coalesce(sum(CASE WHEN credit_account_id = ? THEN amount ELSE -amount END), 0)", account.ID).
		Where("credit_account_id = ? OR debit_account_id = ?", account.ID, account.ID).
		Scan(ctx, &balance)
	return balance, err
}
