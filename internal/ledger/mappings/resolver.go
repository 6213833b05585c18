package mappings

import (
	"fmt"

	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/categories"
	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

type mapKey struct {
	typeCode string
	category int64
	site     int64
}

// Resolver maps an abstract account type code plus optional category/site
// context to a concrete leaf ledger account. It works entirely on in-memory
// snapshots loaded once per batch, so resolution is deterministic for a
// fixed mapping table and category tree.
type Resolver struct {
	index      map[mapKey]int64
	categories map[int64]categories.Category
	directory  *accounts.Directory
}

// NewResolver indexes the mapping table against the category tree and the
// account directory snapshot.
func NewResolver(maps []AccountMapping, cats []categories.Category, dir *accounts.Directory) *Resolver {
	r := &Resolver{
		index:      make(map[mapKey]int64, len(maps)),
		categories: make(map[int64]categories.Category, len(cats)),
		directory:  dir,
	}
	for _, m := range maps {
		key := mapKey{typeCode: m.TypeCode}
		if m.CategoryID != nil {
			key.category = *m.CategoryID
		}
		if m.SiteID != nil {
			key.site = *m.SiteID
		}
		r.index[key] = m.AccountID
	}
	for _, c := range cats {
		r.categories[c.ID] = c
	}
	return r
}

// Resolve walks the mapping hierarchy most-specific first:
// (type, category, site) up through category parents with the site applied,
// then (type, category) up through category parents without the site, then
// (type) alone. With only a site and no category the chain is (type, site)
// and nothing further. A match on a parent (rollup) account fails
// immediately; an exhausted chain fails naming the original type code.
func (r *Resolver) Resolve(typeCode string, categoryID, siteID *int64) (accounts.Account, error) {
	if categoryID != nil {
		if siteID != nil {
			if acct, ok, err := r.walkCategories(typeCode, *categoryID, *siteID); ok || err != nil {
				return acct, err
			}
		}
		if acct, ok, err := r.walkCategories(typeCode, *categoryID, 0); ok || err != nil {
			return acct, err
		}
		if acct, ok, err := r.lookup(typeCode, 0, 0); ok || err != nil {
			return acct, err
		}
		return accounts.Account{}, fmt.Errorf("%w: %q", shared.ErrUnresolvedMapping, typeCode)
	}
	if siteID != nil {
		// Site without category has no further fallback.
		if acct, ok, err := r.lookup(typeCode, 0, *siteID); ok || err != nil {
			return acct, err
		}
		return accounts.Account{}, fmt.Errorf("%w: %q", shared.ErrUnresolvedMapping, typeCode)
	}
	if acct, ok, err := r.lookup(typeCode, 0, 0); ok || err != nil {
		return acct, err
	}
	return accounts.Account{}, fmt.Errorf("%w: %q", shared.ErrUnresolvedMapping, typeCode)
}

// walkCategories tries (type, category, site) for the category and each of
// its ancestors in turn. A revisited category id means the tree is corrupt.
func (r *Resolver) walkCategories(typeCode string, categoryID, siteID int64) (accounts.Account, bool, error) {
	visited := make(map[int64]bool)
	cur := categoryID
	for {
		if visited[cur] {
			return accounts.Account{}, false, fmt.Errorf("%w: category %d", shared.ErrInvalidCategoryHierarchy, cur)
		}
		visited[cur] = true
		if acct, ok, err := r.lookup(typeCode, cur, siteID); ok || err != nil {
			return acct, ok, err
		}
		cat, ok := r.categories[cur]
		if !ok || cat.ParentID == nil {
			return accounts.Account{}, false, nil
		}
		cur = *cat.ParentID
	}
}

func (r *Resolver) lookup(typeCode string, categoryID, siteID int64) (accounts.Account, bool, error) {
	id, ok := r.index[mapKey{typeCode: typeCode, category: categoryID, site: siteID}]
	if !ok {
		return accounts.Account{}, false, nil
	}
	acct, err := r.directory.Get(id)
	if err != nil {
		return accounts.Account{}, true, err
	}
	if r.directory.IsParent(acct.ID) {
		return accounts.Account{}, true, fmt.Errorf("%w: account %s", shared.ErrPostingToParent, acct.Code)
	}
	return acct, true, nil
}
