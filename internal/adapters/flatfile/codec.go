package flatfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/flatboard/internal/domain/model"
)

// RawFields is a split line before typing. Its length varies with the schema
// version the line was written under.
type RawFields []string

// Name returns the username column, or "" for an empty list.
func (f RawFields) Name() string {
	if len(f) == 0 {
		return ""
	}
	return f[FieldUsername]
}

// UUIDField returns the raw identity column, or "" when the list is too short
// to carry one.
func (f RawFields) UUIDField() string {
	if len(f) <= FieldUUID {
		return ""
	}
	return f[FieldUUID]
}

// Clone returns a copy that can be mutated independently.
func (f RawFields) Clone() RawFields {
	out := make(RawFields, len(f))
	copy(out, f)
	return out
}

// IsNullUUID reports whether s is the sentinel for a record without identity.
func IsNullUUID(s string) bool {
	return strings.EqualFold(s, NullUUID)
}

// Decode splits one stored line. A trailing CR and one trailing separator are
// stripped and trailing empty fields are dropped. A present identity column
// that is neither empty, NULL nor a parsable UUID yields ErrMalformedUUID.
func Decode(line string) (RawFields, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, ErrEmptyLine
	}
	line = strings.TrimSuffix(line, Separator)

	f := RawFields(strings.Split(line, Separator))
	for len(f) > 1 && f[len(f)-1] == "" {
		f = f[:len(f)-1]
	}

	if raw := f.UUIDField(); raw != "" && !IsNullUUID(raw) {
		if _, err := uuid.Parse(raw); err != nil {
			return nil, &DecodeError{Name: f.Name(), Err: fmt.Errorf("%w: %q", ErrMalformedUUID, raw)}
		}
	}
	return f, nil
}

// Join renders raw fields with the trailing separator and no terminator.
func Join(f RawFields) string {
	return strings.Join(f, Separator) + Separator
}

// Build types a migrated and validated field list.
func Build(f RawFields) (model.Record, error) {
	var r model.Record
	if len(f) != FieldCount {
		return r, buildErr(f, fmt.Errorf("%d fields, want %d", len(f), FieldCount))
	}

	r.Name = f[FieldUsername]

	for _, s := range model.NonChildSkills() {
		lvl, err := strconv.Atoi(f[levelIndex[s]])
		if err != nil {
			return r, buildErr(f, fmt.Errorf("%s: %v", Schema[levelIndex[s]].Name, err))
		}
		xp, err := strconv.ParseFloat(f[xpIndex[s]], 32)
		if err != nil {
			return r, buildErr(f, fmt.Errorf("%s: %v", Schema[xpIndex[s]].Name, err))
		}
		r.Levels[s] = lvl
		r.Experience[s] = float32(xp)
	}

	for a, i := range cooldownIndex {
		v, err := strconv.ParseInt(f[i], 10, 64)
		if err != nil {
			return r, buildErr(f, fmt.Errorf("%s: %v", Schema[i].Name, err))
		}
		r.Cooldowns[a] = v
	}

	for s := 0; s < model.SkillCount; s++ {
		i := BarStateIndex(model.Skill(s))
		b, ok := model.ParseBarState(f[i])
		if !ok {
			return r, buildErr(f, fmt.Errorf("%s: unknown bar state %q", Schema[i].Name, f[i]))
		}
		r.BarStates[s] = b
	}

	h, ok := model.ParseHealthbarType(f[FieldHealthbar])
	if !ok {
		return r, buildErr(f, fmt.Errorf("unknown healthbar %q", f[FieldHealthbar]))
	}
	r.Healthbar = h

	if raw := f[FieldUUID]; raw != "" && !IsNullUUID(raw) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return r, buildErr(f, err)
		}
		r.UUID = id
	}

	ints := []struct {
		idx int
		dst *int64
	}{
		{FieldLastLogin, &r.LastLogin},
		{FieldChimaeraWing, &r.ChimaeraWingDATS},
	}
	for _, c := range ints {
		v, err := strconv.ParseInt(f[c.idx], 10, 64)
		if err != nil {
			return r, buildErr(f, fmt.Errorf("%s: %v", Schema[c.idx].Name, err))
		}
		*c.dst = v
	}

	small := []struct {
		idx int
		dst *int
	}{
		{FieldScoreboardTips, &r.ScoreboardTipsShown},
		{FieldChatSpy, &r.ChatSpy},
		{FieldLeaderboardIgnored, &r.LeaderboardIgnored},
	}
	for _, c := range small {
		v, err := strconv.Atoi(f[c.idx])
		if err != nil {
			return r, buildErr(f, fmt.Errorf("%s: %v", Schema[c.idx].Name, err))
		}
		*c.dst = v
	}

	return r, nil
}

func buildErr(f RawFields, err error) error {
	return &DecodeError{Name: f.Name(), Err: fmt.Errorf("%w: %v", ErrBuildRecord, err)}
}

// Fields lays a record out in column order. Legacy columns stay empty.
func Fields(r model.Record) RawFields {
	f := make(RawFields, FieldCount)

	f[FieldUsername] = r.Name
	for _, s := range model.NonChildSkills() {
		f[levelIndex[s]] = strconv.Itoa(r.Levels[s])
		f[xpIndex[s]] = formatFloat(r.Experience[s])
	}
	for a, i := range cooldownIndex {
		f[i] = strconv.FormatInt(r.Cooldowns[a], 10)
	}
	for s := 0; s < model.SkillCount; s++ {
		b := r.BarStates[s]
		if b == "" {
			b = model.DefaultBarState(model.Skill(s))
		}
		f[BarStateIndex(model.Skill(s))] = string(b)
	}

	h := r.Healthbar
	if h == "" {
		h = model.HealthbarHearts
	}
	f[FieldHealthbar] = string(h)

	f[FieldUUID] = NullUUID
	if r.HasUUID() {
		f[FieldUUID] = r.UUID.String()
	}

	f[FieldLastLogin] = strconv.FormatInt(r.LastLogin, 10)
	f[FieldChimaeraWing] = strconv.FormatInt(r.ChimaeraWingDATS, 10)
	f[FieldScoreboardTips] = strconv.Itoa(r.ScoreboardTipsShown)
	f[FieldChatSpy] = strconv.Itoa(r.ChatSpy)
	f[FieldLeaderboardIgnored] = strconv.Itoa(r.LeaderboardIgnored)
	return f
}

// Encode renders a record as one line without terminator. It never fails.
func Encode(r model.Record) string {
	return Join(Fields(r))
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
