package service

import (
	"context"
)

// Mint registers a new asset owned by the caller and bound to the given
// descriptor. Minting the same descriptor twice creates two distinct
// assets; the publisher deduplicates uploads at the content store level
// but never at mint.
func (svc *MarkethubService) Mint(ctx context.Context, owner int64, descriptorRef string) (int64, error) {
	assetID, err := svc.Ledger.Mint(ctx, owner, descriptorRef)
	if err != nil {
		return 0, err
	}
	svc.Logger.Infof("Minted asset asset_id:%d owner:%d descriptor:%s", assetID, owner, descriptorRef)
	return assetID, nil
}

// AuthorizePlatform grants the platform user transfer agency over an
// asset. Required before the asset can be listed, and again before every
// resale because transfers clear authorizations.
func (svc *MarkethubService) AuthorizePlatform(ctx context.Context, owner, assetID int64) error {
	return svc.Ledger.AuthorizeTransferAgent(ctx, owner, svc.PlatformID, assetID)
}

func (svc *MarkethubService) OwnerOf(ctx context.Context, assetID int64) (int64, error) {
	return svc.Ledger.OwnerOf(ctx, assetID)
}

func (svc *MarkethubService) DescriptorOf(ctx context.Context, assetID int64) (string, error) {
	return svc.Ledger.DescriptorOf(ctx, assetID)
}
