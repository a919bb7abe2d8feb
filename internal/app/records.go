package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/flatboard/internal/adapters/flatfile"
	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/pkg/logger"
)

var errNilUUID = errors.New("cannot create a record without a uuid")

// LoadRecord finds the record for a player. A stored record with an identity
// matches id when id is set, otherwise it matches name; a record without an
// identity always matches by name. When the stored name differs from name the
// change is logged and applied to the result. With create set and no match, a
// new record is appended. The bool is false when nothing was found or created.
func (d *Database) LoadRecord(ctx context.Context, name string, id uuid.UUID, create bool) (*model.Record, bool) {
	var found *model.Record

	err := d.store.ViewOrAppend(ctx, func(lines []string) (string, error) {
		for _, line := range lines {
			if line == "" {
				continue
			}
			storedName, storedID := identity(line)
			if !matches(storedName, storedID, name, id) {
				continue
			}
			dec, err := d.pipeline.Process(ctx, line)
			if err != nil {
				continue
			}
			rec := dec.Record
			found = &rec
			return "", nil
		}
		if !create {
			return "", nil
		}
		if id == uuid.Nil {
			return "", errNilUUID
		}
		rec := model.NewRecord(name, id, d.startingLevel, d.healthbar)
		rec.LastLogin = d.now().Unix()
		found = &rec
		return flatfile.Encode(rec), nil
	})
	if err != nil {
		d.log.Error(ctx, "failed to load record",
			logger.String("name", name),
			logger.String("uuid", id.String()),
			logger.Error(err),
		)
		return nil, false
	}
	if found == nil {
		return nil, false
	}

	if name != "" && !strings.EqualFold(found.Name, name) {
		d.log.Info(ctx, "name change detected",
			logger.String("from", found.Name),
			logger.String("to", name),
		)
		found.Name = name
	}
	return found, true
}

func matches(storedName, storedID, name string, id uuid.UUID) bool {
	if storedID == "" || flatfile.IsNullUUID(storedID) || id == uuid.Nil {
		return strings.EqualFold(storedName, name)
	}
	return strings.EqualFold(storedID, id.String())
}

// SaveRecord writes rec over the first stored line with the same identity or
// name and stamps the last login. Later lines for the same player are
// dropped; a player not yet stored is appended.
func (d *Database) SaveRecord(ctx context.Context, rec model.Record) bool {
	rec.LastLogin = d.now().Unix()
	encoded := flatfile.Encode(rec)
	id := ""
	if rec.HasUUID() {
		id = rec.UUID.String()
	}

	err := d.store.Update(ctx, func(lines []string) ([]string, error) {
		out := make([]string, 0, len(lines)+1)
		written := false
		for _, line := range lines {
			storedName, storedID := identity(line)
			same := strings.EqualFold(storedName, rec.Name) ||
				(id != "" && strings.EqualFold(storedID, id))
			if line == "" || !same {
				out = append(out, line)
				continue
			}
			if written {
				d.log.Warn(ctx, "dropping duplicate line on save", logger.String("name", storedName))
				continue
			}
			out = append(out, encoded)
			written = true
		}
		if !written {
			out = append(out, encoded)
		}
		return out, nil
	})
	if err != nil {
		d.log.Error(ctx, "failed to save record", logger.String("name", rec.Name), logger.Error(err))
		return false
	}
	return true
}

// RemoveRecord deletes the first record named name, ignoring case. It
// reports whether a record was removed.
func (d *Database) RemoveRecord(ctx context.Context, name string) bool {
	removed := false
	err := d.store.Update(ctx, func(lines []string) ([]string, error) {
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if !removed && line != "" {
				if storedName, _ := identity(line); strings.EqualFold(storedName, name) {
					removed = true
					continue
				}
			}
			out = append(out, line)
		}
		if !removed {
			return nil, flatfile.ErrNoChange
		}
		return out, nil
	})
	if err != nil {
		d.log.Error(ctx, "failed to remove record", logger.String("name", name), logger.Error(err))
		return false
	}
	if removed {
		d.board.Invalidate()
		d.log.Info(ctx, "record removed", logger.String("name", name))
	}
	return removed
}

// ListAllNames returns the username of every stored line in file order.
func (d *Database) ListAllNames(ctx context.Context) []string {
	return d.names(ctx, func(string) bool { return true })
}

// ListNamesForBackfill returns the names of records stored without an identity.
func (d *Database) ListNamesForBackfill(ctx context.Context) []string {
	return d.names(ctx, func(id string) bool {
		return id == "" || flatfile.IsNullUUID(id)
	})
}

func (d *Database) names(ctx context.Context, keep func(id string) bool) []string {
	names := []string{}
	err := d.store.View(ctx, func(lines []string) error {
		for _, line := range lines {
			if line == "" {
				continue
			}
			name, id := identity(line)
			if keep(id) {
				names = append(names, name)
			}
		}
		return nil
	})
	if err != nil {
		d.log.Error(ctx, "failed to list names", logger.Error(err))
	}
	return names
}
