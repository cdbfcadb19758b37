package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/db/models"
)

// MemoryLedger keeps the whole ledger in process memory behind one mutex,
// which gives writes the same single global order the Postgres ledger gets
// from row locks. Used by unit tests and memory-mode local development.
type MemoryLedger struct {
	mu             sync.Mutex
	feeBasisPoints int64
	platformID     int64

	// Slices are the id spaces: assets[i] has id i+1, same for items.
	assets []models.Asset
	items  []models.Item
	auths  map[int64]map[int64]bool
	// Current account balances plus the platform's fee account.
	balances map[int64]int64
	fees     int64
}

func NewMemoryLedger(feeBasisPoints, platformID int64) *MemoryLedger {
	return &MemoryLedger{
		feeBasisPoints: feeBasisPoints,
		platformID:     platformID,
		auths:          map[int64]map[int64]bool{},
		balances:       map[int64]int64{},
	}
}

var _ Ledger = (*MemoryLedger)(nil)

func (l *MemoryLedger) CreateListing(ctx context.Context, assetID, seller, price int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.createListingLocked(assetID, seller, price)
}

func (l *MemoryLedger) createListingLocked(assetID, seller, price int64) (int64, error) {
	if _, err := TotalPrice(price, l.feeBasisPoints); err != nil {
		return 0, err
	}
	asset, err := l.assetLocked(assetID)
	if err != nil {
		return 0, err
	}
	if asset.Owner != seller {
		return 0, fmt.Errorf("%w: asset %d is owned by %d", common.ErrNotOwner, assetID, asset.Owner)
	}
	if !l.auths[assetID][l.platformID] {
		return 0, fmt.Errorf("%w: platform has no transfer agency for asset %d", common.ErrNotAuthorized, assetID)
	}
	for i := range l.items {
		if l.items[i].AssetID == assetID && !l.items[i].Sold {
			return 0, fmt.Errorf("%w: asset %d already has an active listing", common.ErrInvalidArgument, assetID)
		}
	}
	item := models.Item{
		ID:        int64(len(l.items)) + 1,
		AssetID:   assetID,
		Price:     price,
		Seller:    seller,
		Creator:   asset.Creator,
		CreatedAt: time.Now(),
	}
	l.items = append(l.items, item)
	return item.ID, nil
}

func (l *MemoryLedger) GetItem(ctx context.Context, itemID int64) (*models.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, err := l.itemLocked(itemID)
	if err != nil {
		return nil, err
	}
	copied := *item
	return &copied, nil
}

func (l *MemoryLedger) GetTotalPrice(ctx context.Context, itemID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, err := l.itemLocked(itemID)
	if err != nil {
		return 0, err
	}
	return TotalPrice(item.Price, l.feeBasisPoints)
}

func (l *MemoryLedger) ItemCount(ctx context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.items)), nil
}

func (l *MemoryLedger) ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := []models.Item{}
	for i := range l.items {
		item := l.items[i]
		if filter.Seller != 0 && item.Seller != filter.Seller {
			continue
		}
		if filter.Creator != 0 && item.Creator != filter.Creator {
			continue
		}
		if filter.AssetID != 0 && item.AssetID != filter.AssetID {
			continue
		}
		if filter.Sold != nil && item.Sold != *filter.Sold {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (l *MemoryLedger) Mint(ctx context.Context, owner int64, descriptorRef string) (int64, error) {
	if descriptorRef == "" {
		return 0, fmt.Errorf("%w: empty descriptor ref", common.ErrInvalidArgument)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	asset := models.Asset{
		ID:            int64(len(l.assets)) + 1,
		DescriptorRef: descriptorRef,
		Owner:         owner,
		Creator:       owner,
		CreatedAt:     time.Now(),
	}
	l.assets = append(l.assets, asset)
	return asset.ID, nil
}

func (l *MemoryLedger) AuthorizeTransferAgent(ctx context.Context, owner, agent, assetID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	asset, err := l.assetLocked(assetID)
	if err != nil {
		return err
	}
	if asset.Owner != owner {
		return fmt.Errorf("%w: asset %d is owned by %d", common.ErrNotOwner, assetID, asset.Owner)
	}
	if l.auths[assetID] == nil {
		l.auths[assetID] = map[int64]bool{}
	}
	l.auths[assetID][agent] = true
	return nil
}

func (l *MemoryLedger) Transfer(ctx context.Context, assetID, from, to, invokedBy int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(assetID, from, to, invokedBy)
}

func (l *MemoryLedger) transferLocked(assetID, from, to, invokedBy int64) error {
	asset, err := l.assetLocked(assetID)
	if err != nil {
		return err
	}
	if invokedBy != from && !l.auths[assetID][invokedBy] {
		return fmt.Errorf("%w: %d may not move asset %d", common.ErrNotAuthorized, invokedBy, assetID)
	}
	if asset.Owner != from {
		return fmt.Errorf("%w: asset %d is owned by %d, not %d", common.ErrOwnershipMismatch, assetID, asset.Owner, from)
	}
	asset.Owner = to
	asset.UpdatedAt = bun.NullTime{Time: time.Now()}
	delete(l.auths, assetID)
	return nil
}

func (l *MemoryLedger) OwnerOf(ctx context.Context, assetID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	asset, err := l.assetLocked(assetID)
	if err != nil {
		return 0, err
	}
	return asset.Owner, nil
}

func (l *MemoryLedger) DescriptorOf(ctx context.Context, assetID int64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	asset, err := l.assetLocked(assetID)
	if err != nil {
		return "", err
	}
	return asset.DescriptorRef, nil
}

func (l *MemoryLedger) Purchase(ctx context.Context, itemID, payment, buyer int64) (*models.Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, err := l.itemLocked(itemID)
	if err != nil {
		return nil, err
	}
	if item.Sold {
		return nil, fmt.Errorf("%w: item %d", common.ErrAlreadySold, itemID)
	}
	// sellers cannot buy their own listing
	if buyer == item.Seller {
		return nil, fmt.Errorf("%w: item %d is the buyer's own listing", common.ErrInvalidArgument, itemID)
	}
	total, err := TotalPrice(item.Price, l.feeBasisPoints)
	if err != nil {
		return nil, err
	}
	if payment != total {
		return nil, fmt.Errorf("%w: total price of item %d is %d, got %d", common.ErrInsufficientPayment, itemID, total, payment)
	}
	asset, err := l.assetLocked(item.AssetID)
	if err != nil {
		return nil, err
	}
	if asset.Owner != item.Seller {
		return nil, fmt.Errorf("%w: listed asset %d owned by %d, seller is %d", common.ErrFatal, item.AssetID, asset.Owner, item.Seller)
	}
	if err := l.transferLocked(item.AssetID, item.Seller, buyer, l.platformID); err != nil {
		return nil, err
	}
	l.balances[buyer] -= total
	l.balances[item.Seller] += item.Price
	l.fees += total - item.Price
	item.Sold = true
	item.SoldAt = bun.NullTime{Time: time.Now()}
	copied := *item
	return &copied, nil
}

func (l *MemoryLedger) Resell(ctx context.Context, itemID, newPrice, caller int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, err := l.itemLocked(itemID)
	if err != nil {
		return 0, err
	}
	return l.createListingLocked(item.AssetID, caller, newPrice)
}

func (l *MemoryLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

// CollectedFees reports the platform's accumulated fee balance.
func (l *MemoryLedger) CollectedFees() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fees
}

func (l *MemoryLedger) assetLocked(assetID int64) (*models.Asset, error) {
	if assetID < 1 || assetID > int64(len(l.assets)) {
		return nil, fmt.Errorf("%w: asset %d", common.ErrNotFound, assetID)
	}
	return &l.assets[assetID-1], nil
}

func (l *MemoryLedger) itemLocked(itemID int64) (*models.Item, error) {
	if itemID < 1 || itemID > int64(len(l.items)) {
		return nil, fmt.Errorf("%w: item %d", common.ErrNotFound, itemID)
	}
	return &l.items[itemID-1], nil
}
