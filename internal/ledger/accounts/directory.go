package accounts

import (
	"fmt"

	"github.com/halcyon-erp/halcyon/internal/ledger/shared"
)

// Directory is a read-only snapshot of the chart of accounts loaded once per
// posting batch. Accounts are kept in an id-keyed arena; hierarchy walks go
// through repeated id lookups so a corrupt parent chain surfaces as an error
// instead of unbounded recursion.
type Directory struct {
	byID    map[int64]Account
	parents map[int64]bool
	used    map[int64]bool
}

// NewDirectory indexes the supplied accounts. usedIDs lists accounts that
// have ever been referenced by a posted distribution.
func NewDirectory(accts []Account, usedIDs []int64) *Directory {
	d := &Directory{
		byID:    make(map[int64]Account, len(accts)),
		parents: make(map[int64]bool),
		used:    make(map[int64]bool, len(usedIDs)),
	}
	for _, a := range accts {
		d.byID[a.ID] = a
	}
	for _, a := range accts {
		if a.ParentID != nil {
			d.parents[*a.ParentID] = true
		}
	}
	for _, id := range usedIDs {
		d.used[id] = true
	}
	return d
}

// Get returns the account by id.
func (d *Directory) Get(id int64) (Account, error) {
	a, ok := d.byID[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: id %d", shared.ErrAccountNotFound, id)
	}
	return a, nil
}

// IsParent reports whether at least one account references id as its parent.
func (d *Directory) IsParent(id int64) bool {
	return d.parents[id]
}

// IsUsed reports whether a posted distribution has ever referenced id.
func (d *Directory) IsUsed(id int64) bool {
	return d.used[id]
}

// Ancestors returns the parent chain of id, nearest first, excluding id
// itself. A cycle in the parent links is reported as an error.
func (d *Directory) Ancestors(id int64) ([]int64, error) {
	visited := map[int64]bool{id: true}
	var chain []int64
	cur, err := d.Get(id)
	if err != nil {
		return nil, err
	}
	for cur.ParentID != nil {
		pid := *cur.ParentID
		if visited[pid] {
			return nil, fmt.Errorf("%w: account %d", shared.ErrInvalidAccountHierarchy, pid)
		}
		visited[pid] = true
		parent, err := d.Get(pid)
		if err != nil {
			return nil, err
		}
		chain = append(chain, pid)
		cur = parent
	}
	return chain, nil
}
