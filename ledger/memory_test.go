package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udemarket/markethub/common"
)

const testPlatformID = int64(1)

func newTestLedger() *MemoryLedger {
	return NewMemoryLedger(500, testPlatformID)
}

// mintAndList mints an asset for the owner, grants the platform transfer
// agency and lists it, returning asset and item ids.
func mintAndList(t *testing.T, l *MemoryLedger, owner, price int64) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	assetID, err := l.Mint(ctx, owner, "ref-descriptor")
	assert.NoError(t, err)
	assert.NoError(t, l.AuthorizeTransferAgent(ctx, owner, testPlatformID, assetID))
	itemID, err := l.CreateListing(ctx, assetID, owner, price)
	assert.NoError(t, err)
	return assetID, itemID
}

func TestMintAssignsDenseIds(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	first, err := l.Mint(ctx, 2, "ref-a")
	assert.NoError(t, err)
	second, err := l.Mint(ctx, 3, "ref-b")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)

	owner, err := l.OwnerOf(ctx, first)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), owner)

	_, err = l.OwnerOf(ctx, 99)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateListingChecks(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	assetID, err := l.Mint(ctx, 2, "ref-a")
	assert.NoError(t, err)

	// listing without platform authorization fails
	_, err = l.CreateListing(ctx, assetID, 2, 100)
	assert.ErrorIs(t, err, common.ErrNotAuthorized)

	assert.NoError(t, l.AuthorizeTransferAgent(ctx, 2, testPlatformID, assetID))

	// only the owner can list
	_, err = l.CreateListing(ctx, assetID, 3, 100)
	assert.ErrorIs(t, err, common.ErrNotOwner)

	// price must be positive
	_, err = l.CreateListing(ctx, assetID, 2, 0)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	itemID, err := l.CreateListing(ctx, assetID, 2, 100)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), itemID)

	// one active listing per asset
	_, err = l.CreateListing(ctx, assetID, 2, 200)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestPurchaseSettlesOnce(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	seller, buyer := int64(2), int64(3)

	assetID, itemID := mintAndList(t, l, seller, 1000)

	total, err := l.GetTotalPrice(ctx, itemID)
	assert.NoError(t, err)
	assert.Equal(t, int64(1050), total)

	// payment must match the total exactly, listed price is not enough
	_, err = l.Purchase(ctx, itemID, 1000, buyer)
	assert.ErrorIs(t, err, common.ErrInsufficientPayment)
	// overpaying is rejected too
	_, err = l.Purchase(ctx, itemID, 1051, buyer)
	assert.ErrorIs(t, err, common.ErrInsufficientPayment)

	item, err := l.Purchase(ctx, itemID, total, buyer)
	assert.NoError(t, err)
	assert.True(t, item.Sold)
	assert.False(t, item.SoldAt.IsZero())

	// ownership moved and the authorization was consumed
	owner, err := l.OwnerOf(ctx, assetID)
	assert.NoError(t, err)
	assert.Equal(t, buyer, owner)

	// seller gets the listed price, buyer pays the total, fee stays with the platform
	sellerBalance, _ := l.Balance(ctx, seller)
	buyerBalance, _ := l.Balance(ctx, buyer)
	assert.Equal(t, int64(1000), sellerBalance)
	assert.Equal(t, int64(-1050), buyerBalance)
	assert.Equal(t, int64(50), l.CollectedFees())

	// the sold flip is one-way
	_, err = l.Purchase(ctx, itemID, total, int64(4))
	assert.ErrorIs(t, err, common.ErrAlreadySold)
}

func TestSelfPurchaseRejected(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	seller := int64(2)

	_, itemID := mintAndList(t, l, seller, 1000)
	total, err := l.GetTotalPrice(ctx, itemID)
	assert.NoError(t, err)

	_, err = l.Purchase(ctx, itemID, total, seller)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	// nothing settled, the listing is still live
	item, err := l.GetItem(ctx, itemID)
	assert.NoError(t, err)
	assert.False(t, item.Sold)
	sellerBalance, _ := l.Balance(ctx, seller)
	assert.Zero(t, sellerBalance)
	assert.Zero(t, l.CollectedFees())
}

func TestConcurrentPurchaseSingleWinner(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	seller := int64(2)

	_, itemID := mintAndList(t, l, seller, 1000)
	total, err := l.GetTotalPrice(ctx, itemID)
	assert.NoError(t, err)

	buyers := 8
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buyer := int64(10 + i)
			_, errs[i] = l.Purchase(ctx, itemID, total, buyer)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, common.ErrAlreadySold)
		}
	}
	assert.Equal(t, 1, winners)
	// exactly one settlement happened
	assert.Equal(t, int64(50), l.CollectedFees())
	sellerBalance, _ := l.Balance(ctx, seller)
	assert.Equal(t, int64(1000), sellerBalance)
}

func TestResaleFlow(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	creator, buyer := int64(2), int64(3)

	assetID, itemID := mintAndList(t, l, creator, 1000)
	_, err := l.Purchase(ctx, itemID, 1050, buyer)
	assert.NoError(t, err)

	// resale without re-granting transfer agency fails
	_, err = l.Resell(ctx, itemID, 2000, buyer)
	assert.ErrorIs(t, err, common.ErrNotAuthorized)

	// only the current owner can resell
	assert.NoError(t, l.AuthorizeTransferAgent(ctx, buyer, testPlatformID, assetID))
	_, err = l.Resell(ctx, itemID, 2000, creator)
	assert.ErrorIs(t, err, common.ErrNotOwner)

	newItemID, err := l.Resell(ctx, itemID, 2000, buyer)
	assert.NoError(t, err)
	assert.Equal(t, itemID+1, newItemID)

	// the old row is untouched, the new row carries creator provenance
	oldItem, err := l.GetItem(ctx, itemID)
	assert.NoError(t, err)
	assert.True(t, oldItem.Sold)
	newItem, err := l.GetItem(ctx, newItemID)
	assert.NoError(t, err)
	assert.False(t, newItem.Sold)
	assert.Equal(t, buyer, newItem.Seller)
	assert.Equal(t, creator, newItem.Creator)
	assert.Equal(t, int64(2000), newItem.Price)

	// creator buys it back at the new price
	_, err = l.Purchase(ctx, newItemID, 2100, creator)
	assert.NoError(t, err)
	creatorBalance, _ := l.Balance(ctx, creator)
	buyerBalance, _ := l.Balance(ctx, buyer)
	assert.Equal(t, int64(1000-2100), creatorBalance)
	assert.Equal(t, int64(-1050+2000), buyerBalance)
	assert.Equal(t, int64(150), l.CollectedFees())
}

func TestTransferClearsAuthorizations(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	assetID, err := l.Mint(ctx, 2, "ref-a")
	assert.NoError(t, err)
	assert.NoError(t, l.AuthorizeTransferAgent(ctx, 2, testPlatformID, assetID))

	// a stranger cannot move the asset
	err = l.Transfer(ctx, assetID, 2, 4, 5)
	assert.ErrorIs(t, err, common.ErrNotAuthorized)

	// the owner can always move their own asset
	assert.NoError(t, l.Transfer(ctx, assetID, 2, 3, 2))
	owner, err := l.OwnerOf(ctx, assetID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), owner)

	// the platform's old grant did not survive the transfer
	err = l.Transfer(ctx, assetID, 3, 4, testPlatformID)
	assert.ErrorIs(t, err, common.ErrNotAuthorized)

	// from must match the actual owner
	err = l.Transfer(ctx, assetID, 2, 4, 2)
	assert.ErrorIs(t, err, common.ErrOwnershipMismatch)
}

func TestListItemsFilters(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	assetA, itemA := mintAndList(t, l, 2, 100)
	_, err := l.Purchase(ctx, itemA, 105, 3)
	assert.NoError(t, err)
	_, itemB := mintAndList(t, l, 4, 200)

	count, err := l.ItemCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	sold := true
	items, err := l.ListItems(ctx, ItemFilter{Sold: &sold})
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, itemA, items[0].ID)

	items, err = l.ListItems(ctx, ItemFilter{Seller: 4})
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, itemB, items[0].ID)

	items, err = l.ListItems(ctx, ItemFilter{AssetID: assetA})
	assert.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = l.ListItems(ctx, ItemFilter{Creator: 2})
	assert.NoError(t, err)
	assert.Len(t, items, 1)
}
