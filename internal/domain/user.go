package domain

import (
	"github.com/google/uuid"
)

// Profile is the display projection of a family member as resolved by
// the user directory. It carries just enough to authorize cross-family
// actions and to enrich responses; account credentials live elsewhere.
type Profile struct {
	ID       uuid.UUID `json:"id"`
	FamilyID uuid.UUID `json:"family_id"`
	Nickname string    `json:"nickname"`
	Avatar   string    `json:"avatar,omitempty"`
}
