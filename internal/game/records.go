package game

import (
	"sort"
	"strings"

	"dare-wheel/internal/store"
)

// Typed wrappers over the generic record store. Records go in and out by
// value, so a fetched struct is a snapshot tied to the version returned
// alongside it; writers hand both back to Update.

func getRoom(st store.Store, id string) (Room, uint64, error) {
	rec, version, err := st.Get(tableRooms, id)
	if err != nil {
		return Room{}, 0, mapStoreErr(err)
	}
	return rec.(Room), version, nil
}

func findRoomByCode(st store.Store, code string) (Room, uint64, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	recs, err := st.List(tableRooms, func(rec any) bool {
		return rec.(Room).Code == normalized
	})
	if err != nil {
		return Room{}, 0, mapStoreErr(err)
	}
	if len(recs) == 0 {
		return Room{}, 0, ErrNotFound
	}
	room := recs[0].(Room)
	// Re-read through Get so the caller holds the current version.
	return getRoom(st, room.ID)
}

func getPlayer(st store.Store, id string) (Player, uint64, error) {
	rec, version, err := st.Get(tablePlayers, id)
	if err != nil {
		return Player{}, 0, mapStoreErr(err)
	}
	return rec.(Player), version, nil
}

// listPlayers returns the room roster ordered by join time so every client
// derives the same player ordering.
func listPlayers(st store.Store, roomID string) ([]Player, error) {
	recs, err := st.List(tablePlayers, func(rec any) bool {
		return rec.(Player).RoomID == roomID
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	players := make([]Player, 0, len(recs))
	for _, rec := range recs {
		players = append(players, rec.(Player))
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players, nil
}

func getAction(st store.Store, id string) (ActionItem, uint64, error) {
	rec, version, err := st.Get(tableActions, id)
	if err != nil {
		return ActionItem{}, 0, mapStoreErr(err)
	}
	return rec.(ActionItem), version, nil
}

func listActions(st store.Store, roomID string, usedOnly bool, unusedOnly bool) ([]ActionItem, error) {
	recs, err := st.List(tableActions, func(rec any) bool {
		item := rec.(ActionItem)
		if item.RoomID != roomID {
			return false
		}
		if usedOnly && !item.Used {
			return false
		}
		if unusedOnly && item.Used {
			return false
		}
		return true
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	items := make([]ActionItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, rec.(ActionItem))
	}
	return items, nil
}

func getGameState(st store.Store, roomID string) (GameState, uint64, error) {
	rec, version, err := st.Get(tableGameState, roomID)
	if err != nil {
		return GameState{}, 0, mapStoreErr(err)
	}
	return rec.(GameState), version, nil
}
