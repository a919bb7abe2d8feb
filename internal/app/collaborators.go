package service

import (
	"context"
	"time"

	"github.com/okian/flatboard/internal/domain/model"
)

// Destination receives records streamed by ConvertTo.
type Destination interface {
	SaveRecord(ctx context.Context, rec model.Record) bool
}

// LastSeenProvider reports when a player was last seen by the host.
type LastSeenProvider interface {
	LastSeen(ctx context.Context, name string) (time.Time, bool)
}

// UpgradeType names a one-time data upgrade.
type UpgradeType string

const (
	UpgradeAddFishing             UpgradeType = "ADD_FISHING"
	UpgradeAddBlastMiningCooldown UpgradeType = "ADD_BLAST_MINING_COOLDOWN"
	UpgradeAddSQLIndexes          UpgradeType = "ADD_SQL_INDEXES"
	UpgradeAddMobHealthbars       UpgradeType = "ADD_MOB_HEALTHBARS"
	UpgradeDropSpout              UpgradeType = "DROP_SPOUT"
	UpgradeAddAlchemy             UpgradeType = "ADD_ALCHEMY"
	UpgradeAddUUIDs               UpgradeType = "ADD_UUIDS"
)

// structureUpgrades are marked completed by every structure check of an
// existing file.
var structureUpgrades = []UpgradeType{
	UpgradeAddFishing,
	UpgradeAddBlastMiningCooldown,
	UpgradeAddSQLIndexes,
	UpgradeAddMobHealthbars,
	UpgradeDropSpout,
	UpgradeAddAlchemy,
}

// UpgradeTracker remembers which one-time upgrades already ran.
type UpgradeTracker interface {
	ShouldUpgrade(u UpgradeType) bool
	SetUpgradeCompleted(u UpgradeType)
}

// Backfiller assigns identities to records stored without one. It runs on
// its own and calls back into the Database.
type Backfiller interface {
	Start(ctx context.Context, names []string)
}
