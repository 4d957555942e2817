package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// RecentVouchCount is how many recent vouches of each sign a summary carries.
const RecentVouchCount = 5

// VouchStore is the model surface the service builds on.
type VouchStore interface {
	InsertVouch(ctx context.Context, vouch *types.Vouch) (*types.Vouch, error)
	GetLastVouchBetween(ctx context.Context, voucherID, vouchedID string) (*types.Vouch, error)
	GetLastVouch(ctx context.Context) (*types.Vouch, error)
	DeleteByMessageID(ctx context.Context, messageID string) (bool, error)
	CountVouches(ctx context.Context, vouchedID string, amount int) (int, error)
	CountUniqueVouchers(ctx context.Context, vouchedID string) (int, error)
	GetRecentVouches(ctx context.Context, vouchedID string, amount, limit int) ([]*types.Vouch, error)
}

// VouchService handles vouch ledger business logic. It is the single store
// surface the command handlers depend on.
type VouchService struct {
	model  VouchStore
	logger *zap.Logger
}

// NewVouch creates a new vouch service.
func NewVouch(model VouchStore, logger *zap.Logger) *VouchService {
	return &VouchService{
		model:  model,
		logger: logger.Named("vouch_service"),
	}
}

// InsertVouch persists a new vouch record.
func (s *VouchService) InsertVouch(ctx context.Context, vouch *types.Vouch) (*types.Vouch, error) {
	return s.model.InsertVouch(ctx, vouch)
}

// GetLastVouchBetween returns the most recent vouch for a directed pair.
func (s *VouchService) GetLastVouchBetween(ctx context.Context, voucherID, vouchedID string) (*types.Vouch, error) {
	return s.model.GetLastVouchBetween(ctx, voucherID, vouchedID)
}

// GetLastVouch returns the globally most recent vouch.
func (s *VouchService) GetLastVouch(ctx context.Context) (*types.Vouch, error) {
	return s.model.GetLastVouch(ctx)
}

// DeleteByMessageID removes the vouch created by the given origin message.
func (s *VouchService) DeleteByMessageID(ctx context.Context, messageID string) (bool, error) {
	return s.model.DeleteByMessageID(ctx, messageID)
}

// GetSummary computes the reputation summary for a user. The five underlying
// reads are independent, so they run as parallel sub-queries.
func (s *VouchService) GetSummary(ctx context.Context, vouchedID string) (*types.VouchSummary, error) {
	var summary types.VouchSummary
	var mu sync.Mutex

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		count, err := s.model.CountVouches(ctx, vouchedID, 1)
		if err != nil {
			return fmt.Errorf("failed to count positive vouches: %w", err)
		}

		mu.Lock()
		summary.PositiveVouches = count
		mu.Unlock()

		return nil
	})

	p.Go(func(ctx context.Context) error {
		count, err := s.model.CountVouches(ctx, vouchedID, -1)
		if err != nil {
			return fmt.Errorf("failed to count negative vouches: %w", err)
		}

		mu.Lock()
		summary.NegativeVouches = count
		mu.Unlock()

		return nil
	})

	p.Go(func(ctx context.Context) error {
		count, err := s.model.CountUniqueVouchers(ctx, vouchedID)
		if err != nil {
			return fmt.Errorf("failed to count unique vouchers: %w", err)
		}

		mu.Lock()
		summary.UniqueVouchers = count
		mu.Unlock()

		return nil
	})

	p.Go(func(ctx context.Context) error {
		vouches, err := s.model.GetRecentVouches(ctx, vouchedID, 1, RecentVouchCount)
		if err != nil {
			return fmt.Errorf("failed to get recent positive vouches: %w", err)
		}

		mu.Lock()
		summary.RecentPositiveVouches = vouches
		mu.Unlock()

		return nil
	})

	p.Go(func(ctx context.Context) error {
		vouches, err := s.model.GetRecentVouches(ctx, vouchedID, -1, RecentVouchCount)
		if err != nil {
			return fmt.Errorf("failed to get recent negative vouches: %w", err)
		}

		mu.Lock()
		summary.RecentNegativeVouches = vouches
		mu.Unlock()

		return nil
	})

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build vouch summary: %w", err)
	}

	summary.VouchScore = summary.PositiveVouches - summary.NegativeVouches

	return &summary, nil
}
