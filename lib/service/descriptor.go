package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/udemarket/markethub/common"
)

// Descriptor is the stored asset descriptor. Image is the gateway URL of
// the asset blob, resolvable without talking to the store API.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// StoreDescriptor uploads the descriptor for an asset blob and returns
// the descriptor's content reference.
func (svc *MarkethubService) StoreDescriptor(ctx context.Context, name, description, contentRef string) (string, error) {
	descriptor := Descriptor{
		Name:        name,
		Description: description,
		Image:       svc.ContentStore.GatewayURL(contentRef),
	}
	payload, err := json.Marshal(descriptor)
	if err != nil {
		return "", fmt.Errorf("%w: encoding descriptor: %s", common.ErrFatal, err)
	}
	return svc.ContentStore.Put(ctx, payload)
}

// ResolveDescriptor fetches and decodes the descriptor of an asset.
func (svc *MarkethubService) ResolveDescriptor(ctx context.Context, assetID int64) (*Descriptor, error) {
	ref, err := svc.Ledger.DescriptorOf(ctx, assetID)
	if err != nil {
		return nil, err
	}
	payload, err := svc.ContentStore.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	var descriptor Descriptor
	if err := json.Unmarshal(payload, &descriptor); err != nil {
		return nil, fmt.Errorf("%w: decoding descriptor %s: %s", common.ErrFatal, ref, err)
	}
	return &descriptor, nil
}
