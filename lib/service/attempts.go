package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/uptrace/bun"

	"github.com/udemarket/markethub/common"
	"github.com/udemarket/markethub/db/models"
)

// AttemptStore persists publish attempts between stages so a crashed
// pipeline can be resumed.
type AttemptStore interface {
	Create(ctx context.Context, attempt *models.PublishAttempt) error
	Update(ctx context.Context, attempt *models.PublishAttempt) error
	Find(ctx context.Context, attemptID string) (*models.PublishAttempt, error)
}

type DBAttemptStore struct {
	DB *bun.DB
}

func NewDBAttemptStore(db *bun.DB) *DBAttemptStore {
	return &DBAttemptStore{DB: db}
}

func (s *DBAttemptStore) Create(ctx context.Context, attempt *models.PublishAttempt) error {
	_, err := s.DB.NewInsert().Model(attempt).Exec(ctx)
	return err
}

func (s *DBAttemptStore) Update(ctx context.Context, attempt *models.PublishAttempt) error {
	_, err := s.DB.NewUpdate().Model(attempt).WherePK().Exec(ctx)
	return err
}

func (s *DBAttemptStore) Find(ctx context.Context, attemptID string) (*models.PublishAttempt, error) {
	var attempt models.PublishAttempt
	err := s.DB.NewSelect().Model(&attempt).Where("id = ?", attemptID).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: publish attempt %s", common.ErrNotFound, attemptID)
		}
		return nil, err
	}
	return &attempt, nil
}

// MemoryAttemptStore backs tests and single-process deployments.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]models.PublishAttempt
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{attempts: make(map[string]models.PublishAttempt)}
}

func (s *MemoryAttemptStore) Create(ctx context.Context, attempt *models.PublishAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; ok {
		return fmt.Errorf("%w: duplicate attempt id %s", common.ErrInvalidArgument, attempt.ID)
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

func (s *MemoryAttemptStore) Update(ctx context.Context, attempt *models.PublishAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.ID]; !ok {
		return fmt.Errorf("%w: publish attempt %s", common.ErrNotFound, attempt.ID)
	}
	s.attempts[attempt.ID] = *attempt
	return nil
}

func (s *MemoryAttemptStore) Find(ctx context.Context, attemptID string) (*models.PublishAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, fmt.Errorf("%w: publish attempt %s", common.ErrNotFound, attemptID)
	}
	return &attempt, nil
}
