package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Item : Item (listing) Model
//
// Item rows are append-only: Sold flips false to true exactly once and no
// other field ever changes. A resale creates a new row for the same asset;
// the full sequence of rows for an asset is its sale history. Item IDs are
// dense, 1-based and never reused.
type Item struct {
	ID        int64        `json:"item_id" bun:",pk,autoincrement"`
	AssetID   int64        `json:"asset_id" bun:",notnull"`
	Asset     *Asset       `json:"-" bun:"rel:belongs-to,join:asset_id=id"`
	Price     int64        `json:"price" bun:",notnull"`
	Seller    int64        `json:"seller" bun:",notnull"`
	Creator   int64        `json:"creator" bun:",notnull"`
	Sold      bool         `json:"sold" bun:",notnull,default:false"`
	CreatedAt time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	SoldAt    bun.NullTime `json:"sold_at"`
}

func (i *Item) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.SoldAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Item)(nil)
