package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dare-wheel/internal/store"
)

// Pool owns the unimplemented prompts of each room. LoadAvailable fixes a
// uniformly random order once; after that the pool behaves as a consumable
// queue popped from the front. Re-shuffling on every draw would let
// concurrent drawers starve items forever, so the order is sticky.
type Pool struct {
	store     store.Store
	rec       *Recorder
	log       *zap.SugaredLogger
	perPlayer int

	mu     sync.Mutex
	queues map[string][]string // roomID -> remaining action ids, front is next
}

func NewPool(st store.Store, rec *Recorder, log *zap.SugaredLogger, perPlayer int) *Pool {
	if perPlayer <= 0 {
		perPlayer = 5
	}
	return &Pool{
		store:     st,
		rec:       rec,
		log:       log,
		perPlayer: perPlayer,
		queues:    make(map[string][]string),
	}
}

// Submit stores the player's prompts and flips their submitted flag.
// Re-submission is rejected outright, not merged. Submissions are only
// accepted while the room is in its submission window: once play starts the
// draw order is fixed, and items slipped in afterwards would sit in the
// store without ever entering the queue.
func (p *Pool) Submit(playerID string, texts []string) error {
	if len(texts) != p.perPlayer {
		return fmt.Errorf("expected %d actions, got %d", p.perPlayer, len(texts))
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("action %d is empty", i+1)
		}
	}

	player, version, err := getPlayer(p.store, playerID)
	if err != nil {
		return err
	}
	room, _, err := getRoom(p.store, player.RoomID)
	if err != nil {
		return err
	}
	if room.Status != RoomSubmitting {
		return ErrInvalidTransition
	}
	if player.HasSubmitted {
		return ErrAlreadySubmitted
	}
	existing, err := listActions(p.store, player.RoomID, false, false)
	if err != nil {
		return err
	}
	for _, item := range existing {
		if item.PlayerID == playerID {
			return ErrAlreadySubmitted
		}
	}

	now := time.Now().UTC()
	items := make([]ActionItem, 0, len(texts))
	for _, text := range texts {
		item := ActionItem{
			ID:        uuid.NewString(),
			PlayerID:  playerID,
			RoomID:    player.RoomID,
			Text:      text,
			CreatedAt: now,
		}
		if err := p.store.Insert(tableActions, item.ID, item); err != nil {
			return mapStoreErr(err)
		}
		items = append(items, item)
	}

	player.HasSubmitted = true
	if _, err := p.store.Update(tablePlayers, playerID, version, player); err != nil {
		// Someone raced us on the player row; converge on the flag.
		if setErr := p.markSubmitted(playerID); setErr != nil {
			return setErr
		}
	}

	p.rec.ActionsSubmitted(player.RoomID, playerID, items)
	p.log.Infow("actions submitted", "room", player.RoomID, "player", playerID)
	return nil
}

func (p *Pool) markSubmitted(playerID string) error {
	for attempt := 0; ; attempt++ {
		player, version, err := getPlayer(p.store, playerID)
		if err != nil {
			return err
		}
		if player.HasSubmitted {
			return nil
		}
		player.HasSubmitted = true
		if _, err := p.store.Update(tablePlayers, playerID, version, player); err == nil {
			return nil
		} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return mapStoreErr(err)
		}
	}
}

// LoadAvailable returns the remaining items in their established draw order,
// shuffling once on first load for the room.
func (p *Pool) LoadAvailable(roomID string) ([]ActionItem, error) {
	ids, err := p.queue(roomID)
	if err != nil {
		return nil, err
	}
	items := make([]ActionItem, 0, len(ids))
	for _, id := range ids {
		item, _, err := getAction(p.store, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !item.Used {
			items = append(items, item)
		}
	}
	return items, nil
}

// Exhausted reports whether no unused item remains for the room.
func (p *Pool) Exhausted(roomID string) (bool, error) {
	unused, err := listActions(p.store, roomID, false, true)
	if err != nil {
		return false, err
	}
	return len(unused) == 0, nil
}

// Head peeks the next drawable item without consuming it. Items already
// marked used by another client are dropped from the local queue on the way.
func (p *Pool) Head(roomID string) (ActionItem, bool, error) {
	for {
		ids, err := p.queue(roomID)
		if err != nil {
			return ActionItem{}, false, err
		}
		if len(ids) == 0 {
			return ActionItem{}, false, nil
		}
		item, _, err := getAction(p.store, ids[0])
		if err == ErrNotFound || (err == nil && item.Used) {
			p.dropHead(roomID, ids[0])
			continue
		}
		if err != nil {
			return ActionItem{}, false, err
		}
		return item, true, nil
	}
}

// Consume removes the item from the local queue once a commit won the round.
func (p *Pool) Consume(roomID, actionID string) {
	p.dropHead(roomID, actionID)
}

// Forget discards the room's cached order, e.g. after cleanup.
func (p *Pool) Forget(roomID string) {
	p.mu.Lock()
	delete(p.queues, roomID)
	p.mu.Unlock()
}

func (p *Pool) queue(roomID string) ([]string, error) {
	p.mu.Lock()
	if ids, ok := p.queues[roomID]; ok {
		out := make([]string, len(ids))
		copy(out, ids)
		p.mu.Unlock()
		return out, nil
	}
	p.mu.Unlock()

	unused, err := listActions(p.store, roomID, false, true)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(unused))
	for i, item := range unused {
		ids[i] = item.ID
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.queues[roomID]; ok {
		out := make([]string, len(cached))
		copy(out, cached)
		return out, nil
	}
	p.queues[roomID] = ids
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

func (p *Pool) dropHead(roomID, actionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.queues[roomID]
	if len(ids) > 0 && ids[0] == actionID {
		p.queues[roomID] = ids[1:]
	}
}
