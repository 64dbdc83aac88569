package models

import "time"

// LiveRoom is the persisted description of a broadcast room. Runtime state
// (participants, stats, PK) lives in the room actor, not here.
type LiveRoom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	HostID    int       `json:"host_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRoomRequest struct {
	ID   string `json:"id" validate:"required,max=64,excludesall=/?#"`
	Name string `json:"name" validate:"required,max=100"`
}

// Stats is a full snapshot of a room's live statistics.
type Stats struct {
	Viewers         int64 `json:"viewers"`
	Likes           int64 `json:"likes"`
	Gifts           int64 `json:"gifts"`
	Revenue         int64 `json:"revenue"`
	Comments        int64 `json:"comments"`
	DurationSeconds int64 `json:"duration"`
}

// GiftCatalogEntry is read-only reference data owned by the catalog.
type GiftCatalogEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// RoomSummary describes an active room held by the registry.
type RoomSummary struct {
	ID           string    `json:"id"`
	HostID       string    `json:"host_id,omitempty"`
	Participants []string  `json:"participants"`
	Stats        Stats     `json:"stats"`
	PKState      string    `json:"pk_state"`
	PKOpponent   string    `json:"pk_opponent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomListing merges a registered room with its live state. Either side may
// be missing: unregistered rooms can be live, registered rooms can be offline.
type RoomListing struct {
	ID     string       `json:"id"`
	Name   string       `json:"name,omitempty"`
	HostID string       `json:"host_id,omitempty"`
	Live   bool         `json:"live"`
	Room   *RoomSummary `json:"room,omitempty"`
}
