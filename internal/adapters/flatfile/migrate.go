package flatfile

import (
	"fmt"
	"strconv"

	"github.com/okian/flatboard/internal/domain/model"
)

// Migration is the outcome of upgrading one field list.
type Migration struct {
	Fields RawFields
	// Updated is set when any step fired or a level was clamped.
	Updated bool
	// OldVersion names the release the record was written before, "" if the
	// layout was already current.
	OldVersion string
	// Truncated lists the skills whose level was clamped to its cap.
	Truncated []model.Skill
}

// migrationStep upgrades field lists that are still short enough to need it.
type migrationStep struct {
	version string
	// overrides lets the step replace a version recorded by an earlier step.
	overrides bool
	applies   func(f RawFields) bool
	apply     func(f RawFields, m *Migrator) RawFields
}

func upTo(n int) func(RawFields) bool {
	return func(f RawFields) bool { return len(f) <= n }
}

func appendValues(values ...string) func(RawFields, *Migrator) RawFields {
	return func(f RawFields, _ *Migrator) RawFields { return append(f, values...) }
}

var migrationSteps = []migrationStep{
	{
		// Spout HUD support removed.
		version: "1.4.07",
		applies: func(f RawFields) bool { return len(f) > FieldLegacyMarker && f[FieldLegacyMarker] != "" },
		apply: func(f RawFields, _ *Migrator) RawFields {
			f[FieldLegacyMarker] = ""
			return f
		},
	},
	{version: "1.1.06", overrides: true, applies: upTo(33), apply: appendValues("")},
	{version: "1.2.00", applies: upTo(35), apply: appendValues("0", "0")},
	{version: "1.3.00", applies: upTo(36), apply: appendValues("0")},
	{version: "1.4.00", applies: upTo(37), apply: appendValues("0")},
	{
		version: "1.4.06",
		applies: upTo(38),
		apply: func(f RawFields, m *Migrator) RawFields {
			return append(f, string(m.healthbar()))
		},
	},
	{version: "1.4.08", applies: upTo(39), apply: appendValues("0", "0")},
	{version: "1.5.01", applies: upTo(41), apply: appendValues(NullUUID)},
	{version: "1.5.02", applies: upTo(42), apply: appendValues("0")},
	{version: "2.1.133", applies: upTo(43), apply: appendValues("0")},
	{
		version: "2.1.134",
		applies: func(f RawFields) bool { return len(f) < FieldCount },
		apply:   padToCurrent,
	},
}

// padToCurrent grows a list to the current width and seeds the columns added
// with tridents and crossbows.
func padToCurrent(f RawFields, _ *Migrator) RawFields {
	out := make(RawFields, FieldCount)
	copy(out, f)

	for _, s := range []model.Skill{model.Tridents, model.Crossbows} {
		out[levelIndex[s]] = "0"
		out[xpIndex[s]] = "0"
	}
	for s := 0; s < model.SkillCount; s++ {
		out[BarStateIndex(model.Skill(s))] = string(model.DefaultBarState(model.Skill(s)))
	}
	for _, a := range []model.Ability{model.ArcherySuper, model.SuperShotgun, model.TridentSuper} {
		out[cooldownIndex[a]] = "0"
	}
	out[FieldChatSpy] = "0"
	out[FieldLeaderboardIgnored] = "0"
	// The column existed before but was never written.
	out[FieldLastLogin] = "0"
	return out
}

// Migrator upgrades historical layouts to the current width. The steps taken
// depend only on the length of the input, never on its content.
type Migrator struct {
	// DefaultHealthbar fills the healthbar column when it is introduced.
	DefaultHealthbar model.HealthbarType
	// Caps holds a maximum level per skill; negative means uncapped. A nil
	// Caps disables level truncation.
	Caps *[model.SkillCount]int
}

func (m *Migrator) healthbar() model.HealthbarType {
	if m.DefaultHealthbar == "" {
		return model.HealthbarHearts
	}
	return m.DefaultHealthbar
}

// Migrate upgrades f in a copy. Lists shorter than MinFieldCount cannot be
// upgraded and return ErrSchemaTooOld. Lists longer than FieldCount, written
// by a newer release, are cut to FieldCount.
func (m *Migrator) Migrate(f RawFields) (Migration, error) {
	if len(f) < MinFieldCount {
		return Migration{}, &DecodeError{
			Name: f.Name(),
			Err:  fmt.Errorf("%w: %d fields", ErrSchemaTooOld, len(f)),
		}
	}

	res := Migration{Fields: f.Clone()}
	for _, step := range migrationSteps {
		if !step.applies(res.Fields) {
			continue
		}
		res.Fields = step.apply(res.Fields, m)
		res.Updated = true
		if res.OldVersion == "" || step.overrides {
			res.OldVersion = step.version
		}
	}

	if len(res.Fields) > FieldCount {
		res.Fields = res.Fields[:FieldCount]
		res.Updated = true
	}

	if m.Caps != nil {
		for _, s := range model.NonChildSkills() {
			limit := m.Caps[s]
			if limit < 0 {
				continue
			}
			i := levelIndex[s]
			lvl, err := strconv.Atoi(res.Fields[i])
			if err != nil || lvl <= limit {
				continue
			}
			res.Fields[i] = strconv.Itoa(limit)
			res.Truncated = append(res.Truncated, s)
			res.Updated = true
		}
	}

	return res, nil
}
