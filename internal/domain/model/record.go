package model

import (
	"strings"

	"github.com/google/uuid"
)

// HealthbarType is the mob healthbar display mode.
type HealthbarType string

const (
	HealthbarHearts   HealthbarType = "HEARTS"
	HealthbarBar      HealthbarType = "BAR"
	HealthbarDisabled HealthbarType = "DISABLED"
)

// ParseHealthbarType resolves a healthbar symbol. Matching is exact, as the
// stored symbols are always upper case.
func ParseHealthbarType(s string) (HealthbarType, bool) {
	switch HealthbarType(s) {
	case HealthbarHearts, HealthbarBar, HealthbarDisabled:
		return HealthbarType(s), true
	}
	return "", false
}

// BarState is the per-skill experience bar display mode.
type BarState string

const (
	BarNormal   BarState = "NORMAL"
	BarAlwaysOn BarState = "ALWAYS_ON"
	BarDisabled BarState = "DISABLED"
)

// ParseBarState resolves a bar state symbol, ignoring case.
func ParseBarState(s string) (BarState, bool) {
	switch b := BarState(strings.ToUpper(s)); b {
	case BarNormal, BarAlwaysOn, BarDisabled:
		return b, true
	}
	return "", false
}

// DefaultBarState is NORMAL for every skill except child skills.
func DefaultBarState(s Skill) BarState {
	if s.IsChild() {
		return BarDisabled
	}
	return BarNormal
}

// SkillLevels holds one level per skill, indexed by Skill. Child skill slots
// are always zero.
type SkillLevels [SkillCount]int

// Sum adds the levels of every non-child skill.
func (l SkillLevels) Sum() int {
	total := 0
	for i, v := range l {
		if !Skill(i).IsChild() {
			total += v
		}
	}
	return total
}

// AllZero reports whether every non-child level is zero.
func (l SkillLevels) AllZero() bool {
	for i, v := range l {
		if !Skill(i).IsChild() && v != 0 {
			return false
		}
	}
	return true
}

// Record is one entity's persisted progression state.
type Record struct {
	Name string
	// UUID is uuid.Nil for records that predate identity assignment.
	UUID uuid.UUID

	Levels     SkillLevels
	Experience [SkillCount]float32
	Cooldowns  [AbilityCount]int64
	BarStates  [SkillCount]BarState

	Healthbar HealthbarType
	// LastLogin is in epoch seconds; zero means unknown.
	LastLogin int64

	ScoreboardTipsShown int
	ChimaeraWingDATS    int64
	ChatSpy             int
	LeaderboardIgnored  int
}

// NewRecord returns a record with every non-child skill at startingLevel and
// default bar states.
func NewRecord(name string, id uuid.UUID, startingLevel int, healthbar HealthbarType) Record {
	r := Record{Name: name, UUID: id, Healthbar: healthbar}
	for i := 0; i < SkillCount; i++ {
		s := Skill(i)
		r.BarStates[s] = DefaultBarState(s)
		if !s.IsChild() {
			r.Levels[s] = startingLevel
		}
	}
	return r
}

// HasUUID reports whether the record has an assigned identity.
func (r Record) HasUUID() bool {
	return r.UUID != uuid.Nil
}

// PowerLevel is the sum of all non-child skill levels.
func (r Record) PowerLevel() int {
	return r.Levels.Sum()
}
