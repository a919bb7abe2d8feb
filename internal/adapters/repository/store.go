// Package repository derives ranked leaderboards from the record store.
package repository

import (
	"context"

	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/internal/domain/types"
)

// Source streams every readable record in store order.
type Source interface {
	ScanRecords(ctx context.Context, fn func(model.Record)) error
}

// Index answers ranking queries from the latest snapshot.
type Index interface {
	// Refresh rebuilds the snapshot unless the previous one is still fresh.
	// It reports whether a rebuild happened.
	Refresh(ctx context.Context) (bool, error)

	// Rank returns the 1-based position of name in the list for skill.
	Rank(skill model.Skill, name string) (int, bool)

	// Ranks returns every list position of name, keyed by skill or PowerLevel.
	Ranks(name string) map[model.Skill]int

	// Page returns one page of the list for skill. Pages start at 1.
	Page(skill model.Skill, page, size int) []types.PlayerStat
}
