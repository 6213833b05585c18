package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

func ptr(v int64) *int64 { return &v }

func TestDirectoryAncestors(t *testing.T) {
	dir := NewDirectory([]Account{
		{ID: 1, Code: "1", Type: AccountTypeAsset},
		{ID: 10, Code: "10", Type: AccountTypeAsset, ParentID: ptr(1)},
		{ID: 100, Code: "1000", Type: AccountTypeAsset, ParentID: ptr(10)},
	}, []int64{100})

	chain, err := dir.Ancestors(100)
	require.NoError(t, err)
	require.Equal(t, []int64{10, 1}, chain)

	require.True(t, dir.IsParent(1))
	require.True(t, dir.IsParent(10))
	require.False(t, dir.IsParent(100))
	require.True(t, dir.IsUsed(100))
	require.False(t, dir.IsUsed(10))
}

func TestDirectoryAncestorsDetectsCycle(t *testing.T) {
	dir := NewDirectory([]Account{
		{ID: 1, ParentID: ptr(2)},
		{ID: 2, ParentID: ptr(1)},
	}, nil)

	_, err := dir.Ancestors(1)
	require.ErrorIs(t, err, shared.ErrInvalidAccountHierarchy)
}

func TestDirectoryGetMissing(t *testing.T) {
	dir := NewDirectory(nil, nil)
	_, err := dir.Get(7)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}
