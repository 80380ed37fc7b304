package models

import "time"

// Item is one catalog document. It is stored in the index under its ID.
type Item struct {
	ID           string  `json:"id"`
	Product      string  `json:"product"`
	Color        string  `json:"color"`
	Category     string  `json:"category"`
	Manufacturer string  `json:"manufacturer"`
	Price        float64 `json:"price"`
	Total        int     `json:"total"`
}

// ItemInput is the loosely-typed create/update payload.
// Numeric fields are pointers so a missing value can be told apart from zero.
type ItemInput struct {
	Product      string   `json:"product"`
	Color        string   `json:"color"`
	Category     string   `json:"category"`
	Manufacturer string   `json:"manufacturer"`
	Price        *float64 `json:"price"`
	Total        *int     `json:"total"`
}

// ItemsPage is one page of search results.
type ItemsPage struct {
	Items []Item `json:"items"`
	Total int64  `json:"total"`
}

// EventKind names an inventory change.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// ItemEvent is published after every successful mutation and recorded
// in the stock ledger by the worker.
type ItemEvent struct {
	EventID    string    `json:"event_id"`
	Kind       EventKind `json:"kind"`
	ItemID     string    `json:"item_id"`
	// Delta is the signed change in units on hand: +total on create,
	// -n for an update that took n units out, -total on delete.
	Delta      int       `json:"delta"`
	TotalAfter int       `json:"total_after"`
	OccurredAt time.Time `json:"occurred_at"`
}
