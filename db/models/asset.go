package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Asset : Asset Model
//
// Assets are created once by mint and never deleted. DescriptorRef and
// Creator are immutable after mint; Owner changes on transfer. Asset IDs
// are dense and 1-based.
type Asset struct {
	ID            int64        `json:"id" bun:",pk,autoincrement"`
	DescriptorRef string       `json:"descriptor_ref" bun:",notnull"`
	Owner         int64        `json:"owner" bun:",notnull"`
	Creator       int64        `json:"creator" bun:",notnull"`
	CreatedAt     time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt     bun.NullTime `json:"updated_at"`
}

func (a *Asset) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		a.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Asset)(nil)

// AssetAuthorization : Transfer authorization row.
//
// An agent listed here may move the asset on the owner's behalf. Every
// transfer clears all authorizations for the asset, so a fresh grant is
// required per transfer cycle.
type AssetAuthorization struct {
	ID        int64     `bun:",pk,autoincrement"`
	AssetID   int64     `bun:",notnull,unique:asset_agent"`
	Asset     *Asset    `bun:"rel:belongs-to,join:asset_id=id"`
	Agent     int64     `bun:",notnull,unique:asset_agent"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
