// Package persistence saves and restores a player's progression in named
// slots. A slot holds one compressed, hashed JSON snapshot.
package persistence

import (
	"errors"
	"time"

	"github.com/tomz197/asteroid-idle/internal/colony"
	"github.com/tomz197/asteroid-idle/internal/economy"
	"github.com/tomz197/asteroid-idle/internal/upgrade"
)

// Snapshot versions. Version 1 saves carry no stat block.
const (
	VersionLegacy = 1
	Version       = 2
)

var (
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrSlotNotFound    = errors.New("save slot not found")
)

// Snapshot is the persisted layout of one session.
type Snapshot struct {
	Version   int             `json:"version"`
	SavedAt   time.Time       `json:"saved_at"`
	Resources economy.Amounts `json:"resources"`
	Rates     economy.Amounts `json:"rates"`
	Stats     economy.Stats   `json:"stats,omitempty"`
	Upgrades  []UpgradeRecord `json:"upgrades"`
	Colonies  []colony.ID     `json:"colonies,omitempty"`
}

// UpgradeRecord is the purchased flag of one catalog node.
type UpgradeRecord struct {
	ID        upgrade.ID `json:"id"`
	Purchased bool       `json:"purchased"`
}

// Purchased returns the ids flagged purchased, in record order.
func (s Snapshot) Purchased() []upgrade.ID {
	var ids []upgrade.ID
	for _, u := range s.Upgrades {
		if u.Purchased {
			ids = append(ids, u.ID)
		}
	}
	return ids
}
