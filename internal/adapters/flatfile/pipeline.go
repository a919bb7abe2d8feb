package flatfile

import (
	"context"
	"errors"

	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/pkg/logger"
	"github.com/okian/flatboard/pkg/metrics"
)

// Decoded is one line after the full read pipeline.
type Decoded struct {
	// Fields is the migrated and repaired field list.
	Fields    RawFields
	Record    model.Record
	Migration Migration
	Repair    Repair
}

// Changed reports whether the stored line differs from Fields.
func (d Decoded) Changed() bool {
	return d.Migration.Updated || d.Repair.Corrupted
}

// Line renders the upgraded fields for writing back.
func (d Decoded) Line() string {
	return Join(d.Fields)
}

// Pipeline runs stored lines through decode, migration, repair and typing.
type Pipeline struct {
	Migrator  Migrator
	Validator Validator
	Log       logger.Logger
}

// Process upgrades and types one line. Lines that cannot be recovered return
// an error wrapping ErrEmptyLine, ErrMalformedUUID, ErrSchemaTooOld or
// ErrBuildRecord. Drops are logged; callers only skip the line.
func (p *Pipeline) Process(ctx context.Context, line string) (Decoded, error) {
	raw, err := p.Decode(ctx, line)
	if err != nil {
		return Decoded{}, err
	}
	return p.Upgrade(ctx, raw)
}

// Decode splits line, logging a dropped record.
func (p *Pipeline) Decode(ctx context.Context, line string) (RawFields, error) {
	raw, err := Decode(line)
	if err != nil {
		p.dropped(ctx, err)
		return nil, err
	}
	return raw, nil
}

// Upgrade migrates, repairs and types raw fields.
func (p *Pipeline) Upgrade(ctx context.Context, raw RawFields) (Decoded, error) {
	var (
		out Decoded
		err error
	)

	out.Migration, err = p.Migrator.Migrate(raw)
	if err != nil {
		p.dropped(ctx, err)
		return out, err
	}

	out.Repair = p.Validator.Validate(out.Migration.Fields)
	out.Fields = out.Repair.Fields

	out.Record, err = Build(out.Fields)
	if err != nil {
		p.dropped(ctx, err)
		return out, err
	}
	return out, nil
}

func (p *Pipeline) dropped(ctx context.Context, err error) {
	if errors.Is(err, ErrEmptyLine) {
		return
	}
	log := p.Log
	if log == nil {
		log = logger.Get().Named("flatfile")
	}

	switch {
	case errors.Is(err, ErrMalformedUUID):
		metrics.RecordDropped(metrics.DropMalformedUUID)
		log.Warn(ctx, "dropping record with malformed uuid", logger.Error(err))
	case errors.Is(err, ErrSchemaTooOld):
		metrics.RecordDropped(metrics.DropSchemaTooOld)
		log.Warn(ctx, "dropping malformed or pre 1.0 record", logger.Error(err))
	default:
		metrics.RecordDropped(metrics.DropBuildFailure)
		log.Error(ctx, "failed to build record", logger.Error(err))
	}
}
