package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ziflex/lecho/v3"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/contentstore"
	"github.com/udemarket/markethub/db/models"
	"github.com/udemarket/markethub/ledger"
)

const (
	testPlatformID = int64(1)
	testUserID     = int64(2)
)

func newTestService() *MarkethubService {
	return &MarkethubService{
		Config:       &Config{FeeBasisPoints: 500},
		Ledger:       ledger.NewMemoryLedger(500, testPlatformID),
		ContentStore: contentstore.NewMemoryStore(),
		Attempts:     NewMemoryAttemptStore(),
		Logger:       lecho.New(io.Discard),
		EventPubSub:  NewPubsub(),
		PlatformID:   testPlatformID,
	}
}

// scriptedStore fails scripted Put calls, counted from 1, and delegates
// everything else to the real in-memory store.
type scriptedStore struct {
	*contentstore.MemoryStore
	mu       sync.Mutex
	puts     int
	failures map[int]error
}

func (s *scriptedStore) Put(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	s.puts++
	err := s.failures[s.puts]
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.MemoryStore.Put(ctx, data)
}

func testPublishRequest() PublishRequest {
	return PublishRequest{
		UserID:      testUserID,
		Name:        "sunset",
		Description: "a sunset",
		Price:       1000,
		File:        []byte("the asset bytes"),
	}
}

func TestPublishHappyPath(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	events := make(chan models.ItemEvent, 8)
	_, err := svc.EventPubSub.Subscribe(userTopic(testUserID), events)
	assert.NoError(t, err)

	attempt, err := svc.Publish(ctx, testPublishRequest())
	assert.NoError(t, err)
	assert.Equal(t, common.PublishStageListed, attempt.Stage)
	assert.NotZero(t, attempt.AssetID)
	assert.NotZero(t, attempt.ItemID)
	assert.NotEmpty(t, attempt.ContentRef)
	assert.NotEmpty(t, attempt.DescriptorRef)
	assert.Empty(t, attempt.ErrorMessage)

	// the attempt survives as persisted state, not just the return value
	stored, err := svc.Attempts.Find(ctx, attempt.ID)
	assert.NoError(t, err)
	assert.Equal(t, common.PublishStageListed, stored.Stage)
	assert.Equal(t, attempt.ItemID, stored.ItemID)

	owner, err := svc.Ledger.OwnerOf(ctx, attempt.AssetID)
	assert.NoError(t, err)
	assert.Equal(t, testUserID, owner)

	descriptor, err := svc.ResolveDescriptor(ctx, attempt.AssetID)
	assert.NoError(t, err)
	assert.Equal(t, "sunset", descriptor.Name)
	assert.Equal(t, "a sunset", descriptor.Description)
	assert.NotEmpty(t, descriptor.Image)

	// one blob for the asset bytes, one for the descriptor
	assert.Equal(t, 2, svc.ContentStore.(*contentstore.MemoryStore).Len())

	assert.Equal(t, common.AssetEventMinted, (<-events).Type)
	listed := <-events
	assert.Equal(t, common.ItemEventListed, listed.Type)
	assert.Equal(t, attempt.ItemID, listed.Item.ID)
}

func TestPublishValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	req := testPublishRequest()
	req.Name = "  "
	_, err := svc.Publish(ctx, req)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	req = testPublishRequest()
	req.Price = 0
	_, err = svc.Publish(ctx, req)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	svc.Config.MaxListingPrice = 500
	req = testPublishRequest()
	_, err = svc.Publish(ctx, req)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	svc.Config.MaxListingPrice = 0

	req = testPublishRequest()
	req.File = nil
	_, err = svc.Publish(ctx, req)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestPublishRetriesTransientFailures(t *testing.T) {
	svc := newTestService()
	store := &scriptedStore{
		MemoryStore: contentstore.NewMemoryStore(),
		failures:    map[int]error{1: fmt.Errorf("%w: store unreachable", common.ErrTransient)},
	}
	svc.ContentStore = store

	attempt, err := svc.Publish(context.Background(), testPublishRequest())
	assert.NoError(t, err)
	assert.Equal(t, common.PublishStageListed, attempt.Stage)
	// first Put failed, second succeeded, third stored the descriptor
	assert.Equal(t, 3, store.puts)
}

func TestPublishStageFailureRecordsAttempt(t *testing.T) {
	svc := newTestService()
	store := &scriptedStore{
		MemoryStore: contentstore.NewMemoryStore(),
		failures:    map[int]error{2: errors.New("store rejected descriptor")},
	}
	svc.ContentStore = store
	ctx := context.Background()

	_, err := svc.Publish(ctx, testPublishRequest())
	assert.Error(t, err)

	var stageErr *StageError
	assert.ErrorAs(t, err, &stageErr)
	// the asset bytes made it, the descriptor did not
	assert.Equal(t, common.PublishStageAssetStored, stageErr.Stage)
	assert.NotEmpty(t, stageErr.Attempt.ContentRef)
	assert.NotEmpty(t, stageErr.Attempt.ErrorMessage)

	stored, findErr := svc.Attempts.Find(ctx, stageErr.Attempt.ID)
	assert.NoError(t, findErr)
	assert.Equal(t, common.PublishStageAssetStored, stored.Stage)
	assert.NotEmpty(t, stored.ErrorMessage)
}

func TestResumePublish(t *testing.T) {
	svc := newTestService()
	store := &scriptedStore{
		MemoryStore: contentstore.NewMemoryStore(),
		failures:    map[int]error{2: errors.New("store rejected descriptor")},
	}
	svc.ContentStore = store
	ctx := context.Background()

	_, err := svc.Publish(ctx, testPublishRequest())
	var stageErr *StageError
	assert.ErrorAs(t, err, &stageErr)

	attempt, err := svc.ResumePublish(ctx, stageErr.Attempt.ID, testUserID)
	assert.NoError(t, err)
	assert.Equal(t, common.PublishStageListed, attempt.Stage)
	assert.Empty(t, attempt.ErrorMessage)

	// exactly one asset and one item exist
	_, err = svc.Ledger.OwnerOf(ctx, attempt.AssetID)
	assert.NoError(t, err)
	_, err = svc.Ledger.OwnerOf(ctx, attempt.AssetID+1)
	assert.ErrorIs(t, err, common.ErrNotFound)
	count, err := svc.ItemCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestResumeNeverRemints(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// an attempt that minted and then crashed before authorizing
	assetID, err := svc.Ledger.Mint(ctx, testUserID, "ref-descriptor")
	assert.NoError(t, err)
	attempt := &models.PublishAttempt{
		ID:            "attempt-minted",
		UserID:        testUserID,
		Name:          "sunset",
		Price:         1000,
		Stage:         common.PublishStageMinted,
		ContentRef:    "ref-content",
		DescriptorRef: "ref-descriptor",
		AssetID:       assetID,
	}
	assert.NoError(t, svc.Attempts.Create(ctx, attempt))

	resumed, err := svc.ResumePublish(ctx, attempt.ID, testUserID)
	assert.NoError(t, err)
	assert.Equal(t, common.PublishStageListed, resumed.Stage)
	assert.Equal(t, assetID, resumed.AssetID)
	_, err = svc.Ledger.OwnerOf(ctx, assetID+1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestResumeListedIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	attempt, err := svc.Publish(ctx, testPublishRequest())
	assert.NoError(t, err)

	resumed, err := svc.ResumePublish(ctx, attempt.ID, testUserID)
	assert.NoError(t, err)
	assert.Equal(t, attempt.ItemID, resumed.ItemID)

	count, err := svc.ItemCount(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPublishStopsOnCancelledContext(t *testing.T) {
	svc := newTestService()
	store := &scriptedStore{
		MemoryStore: contentstore.NewMemoryStore(),
		failures:    map[int]error{1: fmt.Errorf("%w: store unreachable", common.ErrTransient)},
	}
	svc.ContentStore = store
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Publish(ctx, testPublishRequest())
	assert.Error(t, err)

	// the cancelled attempt is recorded and nothing was minted or listed
	var stageErr *StageError
	assert.ErrorAs(t, err, &stageErr)
	assert.Equal(t, common.PublishStageInitialized, stageErr.Stage)
	count, countErr := svc.ItemCount(context.Background())
	assert.NoError(t, countErr)
	assert.Zero(t, count)
}

func TestResumeChecks(t *testing.T) {
	svc := newTestService()
	store := &scriptedStore{
		MemoryStore: contentstore.NewMemoryStore(),
		failures:    map[int]error{2: errors.New("store rejected descriptor")},
	}
	svc.ContentStore = store
	ctx := context.Background()

	_, err := svc.ResumePublish(ctx, "no-such-attempt", testUserID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.Publish(ctx, testPublishRequest())
	var stageErr *StageError
	assert.ErrorAs(t, err, &stageErr)

	// only the attempt's owner may resume it
	_, err = svc.ResumePublish(ctx, stageErr.Attempt.ID, testUserID+1)
	assert.ErrorIs(t, err, common.ErrNotOwner)

	// an attempt that never stored its upload cannot resume
	initialized := &models.PublishAttempt{
		ID:     "attempt-initialized",
		UserID: testUserID,
		Name:   "sunset",
		Price:  1000,
		Stage:  common.PublishStageInitialized,
	}
	assert.NoError(t, svc.Attempts.Create(ctx, initialized))
	_, err = svc.ResumePublish(ctx, initialized.ID, testUserID)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}
