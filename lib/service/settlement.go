package service

import (
	"context"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/db/models"
)

// PurchaseItem settles a listing. The ledger applies the ownership
// transfer, the seller payout, the platform fee and the sold flip as one
// atomic operation; when two buyers race, exactly one call returns the
// item and the rest fail with AlreadySold.
func (svc *MarkethubService) PurchaseItem(ctx context.Context, itemID, payment, buyer int64) (*models.Item, error) {
	item, err := svc.Ledger.Purchase(ctx, itemID, payment, buyer)
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("Item sold item_id:%d asset_id:%d seller:%d buyer:%d payment:%d", item.ID, item.AssetID, item.Seller, buyer, payment)
	event := models.ItemEvent{Type: common.ItemEventSold, Item: *item}
	svc.publishItemEvent(event)
	svc.EventPubSub.Publish(userTopic(buyer), event)
	return item, nil
}

// ResellItem relists an already-purchased asset at a new price. Only the
// current owner may resell, regardless of who the historical seller was,
// and transfer agency must have been re-granted first. The original item
// row is untouched.
func (svc *MarkethubService) ResellItem(ctx context.Context, itemID, newPrice, caller int64) (int64, error) {
	newItemID, err := svc.Ledger.Resell(ctx, itemID, newPrice, caller)
	if err != nil {
		return 0, err
	}
	svc.Logger.Infof("Item relisted item_id:%d new_item_id:%d seller:%d price:%d", itemID, newItemID, caller, newPrice)
	if item, err := svc.Ledger.GetItem(ctx, newItemID); err == nil {
		svc.publishItemEvent(models.ItemEvent{Type: common.ItemEventListed, Item: *item})
	}
	return newItemID, nil
}
