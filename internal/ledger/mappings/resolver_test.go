package mappings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/categories"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

func ptr(v int64) *int64 { return &v }

func testDirectory() *accounts.Directory {
	return accounts.NewDirectory([]accounts.Account{
		{ID: 1, Code: "1000", Type: accounts.AccountTypeAsset},
		{ID: 2, Code: "1100", Type: accounts.AccountTypeAsset},
		{ID: 3, Code: "1200", Type: accounts.AccountTypeAsset},
		{ID: 4, Code: "1300", Type: accounts.AccountTypeAsset},
		{ID: 5, Code: "1400", Type: accounts.AccountTypeAsset},
		{ID: 9, Code: "1", Type: accounts.AccountTypeAsset},
		{ID: 10, Code: "1500", Type: accounts.AccountTypeAsset, ParentID: ptr(9)},
	}, nil)
}

func testCategories() []categories.Category {
	// electronics -> hardware (parent)
	return []categories.Category{
		{ID: 20, Code: "HW", Name: "Hardware"},
		{ID: 21, Code: "EL", Name: "Electronics", ParentID: ptr(20)},
	}
}

func TestResolveFallbackOrder(t *testing.T) {
	dir := testDirectory()
	cats := testCategories()
	maps := []AccountMapping{
		{TypeCode: "Receivables", CategoryID: ptr(21), SiteID: ptr(7), AccountID: 1},
		{TypeCode: "Receivables", CategoryID: ptr(20), SiteID: ptr(7), AccountID: 2},
		{TypeCode: "Receivables", CategoryID: ptr(21), AccountID: 3},
		{TypeCode: "Receivables", CategoryID: ptr(20), AccountID: 4},
		{TypeCode: "Receivables", AccountID: 5},
	}

	// Peel the most specific mapping off one layer at a time; each removal
	// must fall through to the next level in order.
	expect := []string{"1000", "1100", "1200", "1300", "1400"}
	for i, want := range expect {
		r := NewResolver(maps[i:], cats, dir)
		acct, err := r.Resolve("Receivables", ptr(21), ptr(7))
		require.NoError(t, err, "layer %d", i)
		require.Equal(t, want, acct.Code, "layer %d", i)
	}
}

func TestResolveDeterminism(t *testing.T) {
	r := NewResolver([]AccountMapping{
		{TypeCode: "Revenue", CategoryID: ptr(21), AccountID: 3},
		{TypeCode: "Revenue", AccountID: 5},
	}, testCategories(), testDirectory())

	for i := 0; i < 5; i++ {
		acct, err := r.Resolve("Revenue", ptr(21), nil)
		require.NoError(t, err)
		require.Equal(t, "1200", acct.Code)
	}
}

func TestResolveParentCategoryFallback(t *testing.T) {
	// Mapping exists only at the parent category level.
	r := NewResolver([]AccountMapping{
		{TypeCode: "Revenue", CategoryID: ptr(20), AccountID: 4},
	}, testCategories(), testDirectory())

	acct, err := r.Resolve("Revenue", ptr(21), nil)
	require.NoError(t, err)
	require.Equal(t, "1300", acct.Code)
}

func TestResolveSiteOnlyHasNoFallback(t *testing.T) {
	r := NewResolver([]AccountMapping{
		{TypeCode: "FreightOut", AccountID: 5},
	}, nil, testDirectory())

	_, err := r.Resolve("FreightOut", nil, ptr(7))
	require.ErrorIs(t, err, shared.ErrUnresolvedMapping)

	// Without any scoping the type-level mapping applies.
	acct, err := r.Resolve("FreightOut", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "1400", acct.Code)
}

func TestResolveParentAccountRejected(t *testing.T) {
	r := NewResolver([]AccountMapping{
		{TypeCode: "Receivables", AccountID: 9},
	}, nil, testDirectory())

	_, err := r.Resolve("Receivables", nil, nil)
	require.ErrorIs(t, err, shared.ErrPostingToParent)
}

func TestResolveCategoryCycleDetected(t *testing.T) {
	cats := []categories.Category{
		{ID: 30, ParentID: ptr(31)},
		{ID: 31, ParentID: ptr(30)},
	}
	r := NewResolver([]AccountMapping{
		{TypeCode: "Revenue", AccountID: 5},
	}, cats, testDirectory())

	_, err := r.Resolve("Revenue", ptr(30), nil)
	require.ErrorIs(t, err, shared.ErrInvalidCategoryHierarchy)
}

func TestResolveUnresolvedNamesTypeCode(t *testing.T) {
	r := NewResolver(nil, nil, testDirectory())
	_, err := r.Resolve("TaxOut", nil, nil)
	require.ErrorIs(t, err, shared.ErrUnresolvedMapping)
	require.Contains(t, err.Error(), "TaxOut")
}
