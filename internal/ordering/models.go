package ordering

import (
	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/team"
)

// ItemType is the kind of record an ordering item points at.
type ItemType string

const (
	TypeArtist ItemType = "artist"
	TypeTeam   ItemType = "team"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == TypeArtist || t == TypeTeam
}

// Item is one row of the combined display order.
type Item struct {
	ID           string   `json:"id,omitempty"`
	ItemType     ItemType `json:"item_type"`
	ItemID       string   `json:"item_id"`
	DisplayOrder int      `json:"display_order"`
}

// Key identifies the record an item points at.
type Key struct {
	Type ItemType
	ID   string
}

// Key returns the (type, id) pair of the item.
func (it Item) Key() Key {
	return Key{Type: it.ItemType, ID: it.ItemID}
}

// Artist is the public card of a dancer in a listing.
type Artist struct {
	ID string `json:"id"`
	account.Profile
}

// Entry is an ordering item resolved to its artist or team.
type Entry struct {
	Item
	Artist *Artist    `json:"artist,omitempty"`
	Team   *team.Team `json:"team,omitempty"`
}

func artistCard(a *account.Account) *Artist {
	return &Artist{ID: a.ID, Profile: a.Profile}
}
