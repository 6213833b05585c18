package accounts

import (
	"context"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes an account. Accounts that ever received a distribution, or
// that act as a rollup parent, may not be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	used, err := s.repo.UsedAccountIDs(ctx)
	if err != nil {
		return err
	}
	for _, u := range used {
		if u == id {
			return shared.ErrAccountInUse
		}
	}
	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return shared.ErrAccountInUse
	}
	return s.repo.Delete(ctx, id)
}
