package service

import (
	"context"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/db/models"
	"github.com/udemarket/markethub/ledger"
)

// CreateListing puts an asset up for sale and announces the new item.
func (svc *MarkethubService) CreateListing(ctx context.Context, assetID, seller, price int64) (int64, error) {
	itemID, err := svc.Ledger.CreateListing(ctx, assetID, seller, price)
	if err != nil {
		return 0, err
	}
	svc.Logger.Infof("Created listing item_id:%d asset_id:%d seller:%d price:%d", itemID, assetID, seller, price)
	if item, err := svc.Ledger.GetItem(ctx, itemID); err == nil {
		svc.publishItemEvent(models.ItemEvent{Type: common.ItemEventListed, Item: *item})
	}
	return itemID, nil
}

func (svc *MarkethubService) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	return svc.Ledger.GetItem(ctx, itemID)
}

func (svc *MarkethubService) GetTotalPrice(ctx context.Context, itemID int64) (int64, error) {
	return svc.Ledger.GetTotalPrice(ctx, itemID)
}

func (svc *MarkethubService) ItemCount(ctx context.Context) (int64, error) {
	return svc.Ledger.ItemCount(ctx)
}

// ListItems scans the whole catalog and filters. O(item count) per call;
// fine at current scale, revisit with a by-owner index if the catalog
// grows past what a single scan can serve.
func (svc *MarkethubService) ListItems(ctx context.Context, filter ledger.ItemFilter) ([]models.Item, error) {
	return svc.Ledger.ListItems(ctx, filter)
}

// ItemHistory returns every listing of an asset, oldest first. All rows
// but the last are sold; the full sequence is the asset's sale history.
func (svc *MarkethubService) ItemHistory(ctx context.Context, assetID int64) ([]models.Item, error) {
	return svc.Ledger.ListItems(ctx, ledger.ItemFilter{AssetID: assetID})
}
