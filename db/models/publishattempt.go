package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// PublishAttempt : Publish pipeline attempt Model
//
// One row per publish pipeline run. Stage is the last completed stage and
// is persisted before the next stage starts, so a crashed attempt resumes
// from where it stopped instead of re-running earlier stages. Once AssetID
// is set a resume must never mint again.
type PublishAttempt struct {
	ID            string       `json:"attempt_id" bun:",pk"`
	UserID        int64        `json:"user_id" bun:",notnull"`
	Name          string       `json:"name" bun:",notnull"`
	Description   string       `json:"description" bun:",nullzero"`
	Price         int64        `json:"price" bun:",notnull"`
	Stage         string       `json:"stage" bun:",notnull,default:'initialized'"`
	ContentRef    string       `json:"content_ref" bun:",nullzero"`
	DescriptorRef string       `json:"descriptor_ref" bun:",nullzero"`
	AssetID       int64        `json:"asset_id" bun:",nullzero"`
	ItemID        int64        `json:"item_id" bun:",nullzero"`
	ErrorMessage  string       `json:"error_message,omitempty" bun:",nullzero"`
	CreatedAt     time.Time    `json:"created_at" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt     bun.NullTime `json:"updated_at"`
}

func (p *PublishAttempt) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		p.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*PublishAttempt)(nil)
