// Package ledger defines the client interface to the ordered ledger that
// holds item and asset state, together with a Postgres-backed
// implementation and an in-memory implementation with identical semantics.
//
// All writes are applied in a single global order (database row locks for
// Postgres, one mutex for memory), which is what makes Purchase and Resell
// linearizable with respect to the sold flag and the asset owner. Reads
// may see a slightly stale snapshot but never a half-applied settlement.
package ledger

import (
	"context"

	"github.com/udemarket/markethub/db/models"
)

// ItemFilter narrows ListItems. Zero values match everything; identities
// are 1-based so 0 means "any".
type ItemFilter struct {
	Seller  int64
	Creator int64
	AssetID int64
	Sold    *bool
}

// Ledger is the narrow client interface the rest of the service talks
// through. Every method is one logical ledger operation; failures are
// reported with the error kinds in the common package.
type Ledger interface {
	// CreateListing allocates the next item id for a new listing. The
	// seller must currently own the asset and must have granted the
	// platform transfer agency.
	CreateListing(ctx context.Context, assetID, seller, price int64) (int64, error)
	GetItem(ctx context.Context, itemID int64) (*models.Item, error)
	GetTotalPrice(ctx context.Context, itemID int64) (int64, error)
	ItemCount(ctx context.Context) (int64, error)
	// ListItems is a linear scan over the whole item table with optional
	// filters. O(item count) per call; the catalog exposes no index
	// beyond the primary key.
	ListItems(ctx context.Context, filter ItemFilter) ([]models.Item, error)

	// Mint allocates the next asset id. Minting the same descriptor twice
	// produces two distinct assets; callers wanting single-instance
	// semantics must deduplicate by descriptor before minting.
	Mint(ctx context.Context, owner int64, descriptorRef string) (int64, error)
	// AuthorizeTransferAgent is idempotent: re-adding an existing grant is
	// a no-op.
	AuthorizeTransferAgent(ctx context.Context, owner, agent, assetID int64) error
	// Transfer moves the asset and clears all transfer authorizations, so
	// each transfer cycle needs a fresh grant.
	Transfer(ctx context.Context, assetID, from, to, invokedBy int64) error
	OwnerOf(ctx context.Context, assetID int64) (int64, error)
	DescriptorOf(ctx context.Context, assetID int64) (string, error)

	// Purchase settles a listing: exact payment required, at most one
	// buyer wins, and the ownership transfer, seller payout and sold flip
	// commit as one atomic operation.
	Purchase(ctx context.Context, itemID, payment, buyer int64) (*models.Item, error)
	// Resell creates a new listing for an already-sold asset. The caller
	// must be the current owner (not the historical seller) and must have
	// re-granted the platform transfer agency.
	Resell(ctx context.Context, itemID, newPrice, caller int64) (int64, error)

	// Balance is the caller's current account balance in minor units.
	Balance(ctx context.Context, userID int64) (int64, error)
}
