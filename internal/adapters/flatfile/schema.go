// Package flatfile implements the line-oriented record store: the field
// layout, the line codec, schema migration, integrity repair and the locked
// whole-file transactions that every store operation runs through.
package flatfile

import (
	"strings"

	"github.com/okian/flatboard/internal/domain/model"
)

const (
	// FieldCount is the number of fields in a current-schema record.
	FieldCount = 70
	// MinFieldCount is the shortest historical layout that can be migrated.
	MinFieldCount = 33

	// Separator delimits fields. Every encoded line also ends with it.
	Separator = ":"
	// Terminator ends every line written to disk.
	Terminator = "\r\n"
	// NullUUID marks a record that predates identity assignment.
	NullUUID = "NULL"
)

// Field indices that the codec and the structure check address directly.
const (
	FieldUsername           = 0
	FieldLegacyMarker       = 33
	FieldLastLogin          = 37
	FieldHealthbar          = 38
	FieldUUID               = 41
	FieldScoreboardTips     = 42
	FieldChimaeraWing       = 43
	FieldBarStateFirst      = 48
	FieldChatSpy            = 68
	FieldLeaderboardIgnored = 69
)

// FieldKind tells the codec how to parse a column and the validator how to
// check it.
type FieldKind int

const (
	KindName FieldKind = iota
	KindInt
	KindFloat
	KindLegacy
	KindHealthbar
	KindUUID
	KindBarState
)

// FieldDescriptor describes one column of the layout.
type FieldDescriptor struct {
	Index int
	Name  string
	Kind  FieldKind
	// AllowEmpty columns may legitimately hold "".
	AllowEmpty bool
	// AllowNonNumeric columns are skipped by the numeric check.
	AllowNonNumeric bool
	// Skill is set for level, experience and bar state columns.
	Skill model.Skill
	// Ability is set for cooldown columns; -1 otherwise.
	Ability model.Ability
}

var (
	levelIndex    [model.SkillCount]int
	xpIndex       [model.SkillCount]int
	cooldownIndex [model.AbilityCount]int

	// Schema is the full column table in index order.
	Schema [FieldCount]FieldDescriptor
)

func init() {
	for i := range levelIndex {
		levelIndex[i] = -1
		xpIndex[i] = -1
	}
	skillColumns := []struct {
		skill     model.Skill
		level, xp int
	}{
		{model.Mining, 1, 4},
		{model.Woodcutting, 5, 6},
		{model.Repair, 7, 15},
		{model.Unarmed, 8, 16},
		{model.Herbalism, 9, 17},
		{model.Excavation, 10, 18},
		{model.Archery, 11, 19},
		{model.Swords, 12, 20},
		{model.Axes, 13, 21},
		{model.Acrobatics, 14, 22},
		{model.Taming, 24, 25},
		{model.Fishing, 34, 35},
		{model.Alchemy, 39, 40},
		{model.Tridents, 44, 45},
		{model.Crossbows, 46, 47},
	}
	for _, c := range skillColumns {
		levelIndex[c.skill] = c.level
		xpIndex[c.skill] = c.xp
	}
	cooldownIndex = [model.AbilityCount]int{
		model.Berserk:          26,
		model.GigaDrillBreaker: 27,
		model.TreeFeller:       28,
		model.GreenTerra:       29,
		model.SerratedStrikes:  30,
		model.SkullSplitter:    31,
		model.SuperBreaker:     32,
		model.BlastMining:      36,
		model.ArcherySuper:     65,
		model.SuperShotgun:     66,
		model.TridentSuper:     67,
	}

	for i := range Schema {
		Schema[i] = FieldDescriptor{Index: i, Kind: KindInt, Skill: -1, Ability: -1}
	}
	set := func(i int, name string, kind FieldKind) {
		Schema[i].Name = name
		Schema[i].Kind = kind
	}

	set(FieldUsername, "username", KindName)
	for _, i := range []int{2, 3, 23} {
		set(i, "legacy", KindLegacy)
	}
	set(FieldLegacyMarker, "legacy_marker", KindLegacy)
	for _, c := range skillColumns {
		name := strings.ToLower(c.skill.String())
		set(c.level, name+"_level", KindInt)
		set(c.xp, name+"_xp", KindFloat)
		Schema[c.level].Skill = c.skill
		Schema[c.xp].Skill = c.skill
	}
	for a, i := range cooldownIndex {
		set(i, strings.ToLower(model.Ability(a).String())+"_dats", KindInt)
		Schema[i].Ability = model.Ability(a)
	}
	set(FieldLastLogin, "last_login", KindInt)
	set(FieldHealthbar, "mob_healthbar", KindHealthbar)
	set(FieldUUID, "uuid", KindUUID)
	set(FieldScoreboardTips, "scoreboard_tips", KindInt)
	set(FieldChimaeraWing, "chimaera_wing_dats", KindInt)
	for s := 0; s < model.SkillCount; s++ {
		i := FieldBarStateFirst + s
		set(i, strings.ToLower(model.Skill(s).String())+"_bar", KindBarState)
		Schema[i].Skill = model.Skill(s)
	}
	set(FieldChatSpy, "chat_spy", KindInt)
	set(FieldLeaderboardIgnored, "leaderboard_ignored", KindInt)

	for _, i := range []int{2, 3, 23, FieldLegacyMarker, FieldUUID} {
		Schema[i].AllowEmpty = true
	}
	for _, i := range []int{FieldUsername, 2, 3, 23, FieldLegacyMarker, FieldHealthbar, FieldUUID} {
		Schema[i].AllowNonNumeric = true
	}
}

// LevelIndex returns the level column of s, or -1 for child skills.
func LevelIndex(s model.Skill) int {
	if !s.Valid() {
		return -1
	}
	return levelIndex[s]
}

// XPIndex returns the experience column of s, or -1 for child skills.
func XPIndex(s model.Skill) int {
	if !s.Valid() {
		return -1
	}
	return xpIndex[s]
}

// BarStateIndex returns the bar state column of s.
func BarStateIndex(s model.Skill) int {
	return FieldBarStateFirst + int(s)
}

// CooldownIndex returns the DATS column of a.
func CooldownIndex(a model.Ability) int {
	return cooldownIndex[a]
}
