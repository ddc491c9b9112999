package game

import (
	"errors"

	"dare-wheel/internal/store"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrRoomClosed        = errors.New("room is closed")
	ErrInvalidTransition = errors.New("invalid room state transition")
	ErrAlreadySubmitted  = errors.New("actions already submitted")
	ErrNoJokersRemaining = errors.New("no jokers remaining")
	// ErrConflict means a conditional write lost a race. Callers re-read and
	// decide; for turn commits it means another client handled the round and
	// must never surface to a user.
	ErrConflict         = errors.New("write conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// mapStoreErr folds substrate errors into the game taxonomy.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	case errors.Is(err, store.ErrUnavailable):
		return ErrStoreUnavailable
	default:
		return err
	}
}
