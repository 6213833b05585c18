package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

type fakeAccountRepo struct {
	accounts map[int64]Account
	used     []int64
	children map[int64]bool
}

func (f *fakeAccountRepo) List(_ context.Context) ([]Account, error) {
	out := make([]Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAccountRepo) Get(_ context.Context, id int64) (Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccountRepo) UsedAccountIDs(_ context.Context) ([]int64, error) {
	return f.used, nil
}

func (f *fakeAccountRepo) HasChildren(_ context.Context, id int64) (bool, error) {
	return f.children[id], nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.accounts[id]; !ok {
		return shared.ErrAccountNotFound
	}
	delete(f.accounts, id)
	return nil
}

func TestDeleteRefusesUsedAccount(t *testing.T) {
	repo := &fakeAccountRepo{
		accounts: map[int64]Account{7: {ID: 7, Code: "1000"}},
		used:     []int64{7},
		children: map[int64]bool{},
	}
	svc := NewService(repo)

	err := svc.Delete(context.Background(), 7)
	require.ErrorIs(t, err, shared.ErrAccountInUse)
	require.Contains(t, repo.accounts, int64(7))
}

func TestDeleteRefusesRollupParent(t *testing.T) {
	repo := &fakeAccountRepo{
		accounts: map[int64]Account{9: {ID: 9, Code: "4999"}},
		children: map[int64]bool{9: true},
	}
	svc := NewService(repo)

	require.ErrorIs(t, svc.Delete(context.Background(), 9), shared.ErrAccountInUse)
}

func TestDeleteRemovesUntouchedAccount(t *testing.T) {
	repo := &fakeAccountRepo{
		accounts: map[int64]Account{3: {ID: 3, Code: "5100"}},
		children: map[int64]bool{},
	}
	svc := NewService(repo)

	require.NoError(t, svc.Delete(context.Background(), 3))
	require.NotContains(t, repo.accounts, int64(3))
}
