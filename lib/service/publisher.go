package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/db/models"
)

const publishStageMaxRetries = 4

// PublishRequest carries everything needed to take an asset from raw
// bytes to a live listing in one call.
type PublishRequest struct {
	UserID      int64
	Name        string
	Description string
	Price       int64
	File        []byte
}

// StageError reports which pipeline stage failed together with the
// persisted attempt, so the caller can hand the attempt id back to the
// user for a later resume.
type StageError struct {
	Stage   string
	Attempt *models.PublishAttempt
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("publish stage %s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Publish runs the full pipeline: store the asset bytes, store the
// descriptor, mint, authorize the platform as transfer agent and list.
// The attempt row is updated after every completed stage; on failure the
// returned StageError carries the attempt for resumption.
func (svc *MarkethubService) Publish(ctx context.Context, req PublishRequest) (*models.PublishAttempt, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrInvalidArgument)
	}
	if req.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", common.ErrInvalidArgument)
	}
	if svc.Config.MaxListingPrice > 0 && req.Price > svc.Config.MaxListingPrice {
		return nil, fmt.Errorf("%w: price exceeds maximum of %d", common.ErrInvalidArgument, svc.Config.MaxListingPrice)
	}
	if len(req.File) == 0 {
		return nil, fmt.Errorf("%w: asset file is required", common.ErrInvalidArgument)
	}

	attempt := &models.PublishAttempt{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stage:       common.PublishStageInitialized,
	}
	if err := svc.Attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}
	svc.Logger.Infof("Starting publish attempt_id:%s user_id:%d", attempt.ID, req.UserID)
	return svc.runPipeline(ctx, attempt, req.File)
}

// ResumePublish picks up a failed attempt at its last completed stage.
// Attempts that never stored their asset bytes cannot resume because the
// upload is not retained; the user re-publishes instead. Resuming never
// repeats a completed stage, in particular an attempt past the mint
// stage will not mint a second asset.
func (svc *MarkethubService) ResumePublish(ctx context.Context, attemptID string, userID int64) (*models.PublishAttempt, error) {
	attempt, err := svc.Attempts.Find(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("%w: attempt %s belongs to another user", common.ErrNotOwner, attemptID)
	}
	if attempt.Stage == common.PublishStageListed {
		return attempt, nil
	}
	if common.PublishStageRank(attempt.Stage) < common.PublishStageRank(common.PublishStageAssetStored) {
		return nil, fmt.Errorf("%w: attempt %s failed before its asset was stored, publish again", common.ErrInvalidArgument, attemptID)
	}
	svc.Logger.Infof("Resuming publish attempt_id:%s stage:%s", attempt.ID, attempt.Stage)
	return svc.runPipeline(ctx, attempt, nil)
}

// runPipeline advances the attempt stage by stage until listed. Each
// stage persists its output before the next stage starts.
func (svc *MarkethubService) runPipeline(ctx context.Context, attempt *models.PublishAttempt, file []byte) (*models.PublishAttempt, error) {
	for attempt.Stage != common.PublishStageListed {
		var err error
		switch attempt.Stage {
		case common.PublishStageInitialized:
			err = svc.stageStoreAsset(ctx, attempt, file)
			// the upload buffer is not needed past this stage
			file = nil
		case common.PublishStageAssetStored:
			err = svc.stageStoreDescriptor(ctx, attempt)
		case common.PublishStageDescriptorStored:
			err = svc.stageMint(ctx, attempt)
		case common.PublishStageMinted:
			err = svc.stageAuthorize(ctx, attempt)
		case common.PublishStageAuthorized:
			err = svc.stageList(ctx, attempt)
		default:
			err = fmt.Errorf("%w: unknown publish stage %q", common.ErrFatal, attempt.Stage)
		}
		if err != nil {
			return nil, svc.failAttempt(ctx, attempt, err)
		}
	}
	svc.Logger.Infof("Publish complete attempt_id:%s asset_id:%d item_id:%d", attempt.ID, attempt.AssetID, attempt.ItemID)
	return attempt, nil
}

func (svc *MarkethubService) stageStoreAsset(ctx context.Context, attempt *models.PublishAttempt, file []byte) error {
	var ref string
	err := svc.retryTransient(ctx, func() (err error) {
		ref, err = svc.ContentStore.Put(ctx, file)
		return err
	})
	if err != nil {
		return err
	}
	attempt.ContentRef = ref
	return svc.advanceStage(ctx, attempt, common.PublishStageAssetStored)
}

func (svc *MarkethubService) stageStoreDescriptor(ctx context.Context, attempt *models.PublishAttempt) error {
	var ref string
	err := svc.retryTransient(ctx, func() (err error) {
		ref, err = svc.StoreDescriptor(ctx, attempt.Name, attempt.Description, attempt.ContentRef)
		return err
	})
	if err != nil {
		return err
	}
	attempt.DescriptorRef = ref
	return svc.advanceStage(ctx, attempt, common.PublishStageDescriptorStored)
}

func (svc *MarkethubService) stageMint(ctx context.Context, attempt *models.PublishAttempt) error {
	// Mint is atomic in both ledger implementations: a failed call has
	// created no asset, so retrying a transient failure cannot double
	// mint. Once the id is persisted this stage never runs again.
	var assetID int64
	err := svc.retryTransient(ctx, func() (err error) {
		assetID, err = svc.Ledger.Mint(ctx, attempt.UserID, attempt.DescriptorRef)
		return err
	})
	if err != nil {
		return err
	}
	attempt.AssetID = assetID
	svc.Logger.Infof("Minted asset asset_id:%d attempt_id:%s", assetID, attempt.ID)
	svc.EventPubSub.Publish(userTopic(attempt.UserID), models.ItemEvent{
		Type: common.AssetEventMinted,
		Item: models.Item{AssetID: assetID, Seller: attempt.UserID},
	})
	return svc.advanceStage(ctx, attempt, common.PublishStageMinted)
}

func (svc *MarkethubService) stageAuthorize(ctx context.Context, attempt *models.PublishAttempt) error {
	err := svc.retryTransient(ctx, func() error {
		return svc.Ledger.AuthorizeTransferAgent(ctx, attempt.UserID, svc.PlatformID, attempt.AssetID)
	})
	if err != nil {
		return err
	}
	return svc.advanceStage(ctx, attempt, common.PublishStageAuthorized)
}

func (svc *MarkethubService) stageList(ctx context.Context, attempt *models.PublishAttempt) error {
	var itemID int64
	err := svc.retryTransient(ctx, func() (err error) {
		itemID, err = svc.CreateListing(ctx, attempt.AssetID, attempt.UserID, attempt.Price)
		return err
	})
	if err != nil {
		return err
	}
	attempt.ItemID = itemID
	return svc.advanceStage(ctx, attempt, common.PublishStageListed)
}

func (svc *MarkethubService) advanceStage(ctx context.Context, attempt *models.PublishAttempt, stage string) error {
	attempt.Stage = stage
	attempt.ErrorMessage = ""
	return svc.Attempts.Update(ctx, attempt)
}

func (svc *MarkethubService) failAttempt(ctx context.Context, attempt *models.PublishAttempt, stageErr error) error {
	attempt.ErrorMessage = stageErr.Error()
	if err := svc.Attempts.Update(ctx, attempt); err != nil {
		svc.Logger.Errorf("Failed to record publish error attempt_id:%s: %v", attempt.ID, err)
	}
	svc.Logger.Errorf("Publish failed attempt_id:%s stage:%s: %v", attempt.ID, attempt.Stage, stageErr)
	return &StageError{Stage: attempt.Stage, Attempt: attempt, Err: stageErr}
}

// retryTransient retries the operation with exponential backoff for as
// long as it keeps failing transiently. Any other error aborts at once.
func (svc *MarkethubService) retryTransient(ctx context.Context, operation func() error) error {
	retryable := func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrTransient) {
			svc.Logger.Infof("Retrying transient publish failure: %v", err)
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(retryable, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), publishStageMaxRetries), ctx))
}
