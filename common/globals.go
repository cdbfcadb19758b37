package common

const (
	AccountTypeIncoming = "incoming"
	AccountTypeCurrent  = "current"
	AccountTypeOutgoing = "outgoing"
	AccountTypeFees     = "fees"

	// Publish pipeline stages, in order. An attempt's stage is the last
	// stage that completed and was persisted.
	PublishStageInitialized      = "initialized"
	PublishStageAssetStored      = "asset_stored"
	PublishStageDescriptorStored = "descriptor_stored"
	PublishStageMinted           = "minted"
	PublishStageAuthorized       = "authorized"
	PublishStageListed           = "listed"

	ItemEventListed  = "item.listed"
	ItemEventSold    = "item.sold"
	AssetEventMinted = "asset.minted"

	// Login of the reserved platform user. It acts as the transfer agent
	// during settlement and its fees account receives the platform fee.
	PlatformLogin = "platform"

	FeeBasisPointDivisor = 10000
)

// PublishStageRank returns the position of a stage in the pipeline order.
// Unknown stages rank before everything else.
func PublishStageRank(stage string) int {
	switch stage {
	case PublishStageAssetStored:
		return 1
	case PublishStageDescriptorStored:
		return 2
	case PublishStageMinted:
		return 3
	case PublishStageAuthorized:
		return 4
	case PublishStageListed:
		return 5
	default:
		return 0
	}
}
