// Package model contains domain models passed between layers.
package model

import "strings"

// Skill identifies a primary skill. Values are ordinals and index the
// per-skill arrays on Record.
type Skill int

// Primary skills in ordinal order. The order is part of the file format:
// bar state columns are laid out in exactly this sequence.
const (
	Acrobatics Skill = iota
	Alchemy
	Archery
	Axes
	Excavation
	Fishing
	Herbalism
	Mining
	Repair
	Salvage
	Smelting
	Swords
	Taming
	Unarmed
	Woodcutting
	Tridents
	Crossbows

	// SkillCount is the number of primary skills.
	SkillCount = int(iota)
)

// PowerLevel selects the aggregate ranking instead of a single skill.
const PowerLevel Skill = -1

var skillNames = [SkillCount]string{
	"ACROBATICS",
	"ALCHEMY",
	"ARCHERY",
	"AXES",
	"EXCAVATION",
	"FISHING",
	"HERBALISM",
	"MINING",
	"REPAIR",
	"SALVAGE",
	"SMELTING",
	"SWORDS",
	"TAMING",
	"UNARMED",
	"WOODCUTTING",
	"TRIDENTS",
	"CROSSBOWS",
}

// String returns the upper-case skill name, or POWER_LEVEL for the aggregate.
func (s Skill) String() string {
	if s == PowerLevel {
		return "POWER_LEVEL"
	}
	if !s.Valid() {
		return "UNKNOWN"
	}
	return skillNames[s]
}

// Valid reports whether s is one of the primary skills.
func (s Skill) Valid() bool {
	return s >= 0 && int(s) < SkillCount
}

// IsChild reports whether s is a child skill. Child skills derive their level
// from parents and carry no level or experience columns.
func (s Skill) IsChild() bool {
	return s == Salvage || s == Smelting
}

// ParseSkill resolves a case-insensitive skill name.
func ParseSkill(name string) (Skill, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "POWER_LEVEL" || n == "POWER" {
		return PowerLevel, true
	}
	for i, s := range skillNames {
		if s == n {
			return Skill(i), true
		}
	}
	return 0, false
}

// NonChildSkills lists the 15 skills that have level and experience columns,
// in ordinal order.
func NonChildSkills() []Skill {
	out := make([]Skill, 0, SkillCount-2)
	for i := 0; i < SkillCount; i++ {
		if s := Skill(i); !s.IsChild() {
			out = append(out, s)
		}
	}
	return out
}

// Ability identifies a super ability whose deactivation timestamp is stored.
type Ability int

const (
	Berserk Ability = iota
	GigaDrillBreaker
	TreeFeller
	GreenTerra
	SerratedStrikes
	SkullSplitter
	SuperBreaker
	BlastMining
	ArcherySuper
	SuperShotgun
	TridentSuper

	// AbilityCount is the number of stored ability cooldowns.
	AbilityCount = int(iota)
)

var abilityNames = [AbilityCount]string{
	"BERSERK",
	"GIGA_DRILL_BREAKER",
	"TREE_FELLER",
	"GREEN_TERRA",
	"SERRATED_STRIKES",
	"SKULL_SPLITTER",
	"SUPER_BREAKER",
	"BLAST_MINING",
	"ARCHERY_SUPER",
	"SUPER_SHOTGUN",
	"TRIDENT_SUPER",
}

func (a Ability) String() string {
	if a < 0 || int(a) >= AbilityCount {
		return "UNKNOWN"
	}
	return abilityNames[a]
}
