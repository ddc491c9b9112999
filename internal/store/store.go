// Package store provides the shared record store the game runs against:
// typed tables of versioned records with conditional writes and a change
// feed. The backing substrate is abstract; everything above it assumes only
// the Store interface.
package store

import "errors"

var (
	// ErrNotFound is returned when no record matches the given id.
	ErrNotFound = errors.New("store: record not found")
	// ErrConflict is returned by Update when the caller's version is stale,
	// i.e. another writer committed since the caller last read the record.
	ErrConflict = errors.New("store: version conflict")
	// ErrExists is returned by Insert when the id is already taken.
	ErrExists = errors.New("store: record already exists")
	// ErrUnavailable is returned when the store cannot serve the request.
	ErrUnavailable = errors.New("store: unavailable")
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Change describes a single committed mutation. Old is nil for inserts and
// New is nil for deletes. Delivery is at-least-once and may interleave
// across tables; subscribers must tolerate duplicates.
type Change struct {
	Table string
	Type  EventType
	ID    string
	Old   any
	New   any
}

// Store is the record store contract. Every record carries a version that
// increases by one on each committed update. There is no unconditional
// overwrite: Update requires the version the writer last observed, so lost
// updates surface as ErrConflict instead of silently dropping writes.
type Store interface {
	Insert(table, id string, record any) error
	Get(table, id string) (record any, version uint64, err error)
	List(table string, match func(any) bool) ([]any, error)
	Update(table, id string, expected uint64, record any) (uint64, error)
	Delete(table, id string) error
	DeleteWhere(table string, match func(any) bool) int
	Subscribe(table string, fn func(Change)) (cancel func())
}
