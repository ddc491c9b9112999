package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type note struct {
	ID   string
	Body string
}

func TestInsertGetUpdate(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Insert("notes", "n1", note{ID: "n1", Body: "hello"}))
	require.ErrorIs(t, m.Insert("notes", "n1", note{ID: "n1"}), ErrExists)

	rec, version, err := m.Get("notes", "n1")
	require.NoError(t, err)
	require.Equal(t, uint64(1), version)
	require.Equal(t, "hello", rec.(note).Body)

	newVersion, err := m.Update("notes", "n1", version, note{ID: "n1", Body: "edited"})
	require.NoError(t, err)
	require.Equal(t, uint64(2), newVersion)

	// The old version is now stale.
	_, err = m.Update("notes", "n1", version, note{ID: "n1", Body: "lost"})
	require.ErrorIs(t, err, ErrConflict)

	rec, _, err = m.Get("notes", "n1")
	require.NoError(t, err)
	require.Equal(t, "edited", rec.(note).Body)
}

func TestConcurrentIncrementsAllLand(t *testing.T) {
	m := NewMemory()
	type counter struct{ N int }
	require.NoError(t, m.Insert("counters", "c", counter{}))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				rec, version, err := m.Get("counters", "c")
				require.NoError(t, err)
				next := counter{N: rec.(counter).N + 1}
				if _, err := m.Update("counters", "c", version, next); err == nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	rec, _, err := m.Get("counters", "c")
	require.NoError(t, err)
	require.Equal(t, writers, rec.(counter).N)
}

func TestSubscribeDeliversChanges(t *testing.T) {
	m := NewMemory()
	var got []Change
	cancel := m.Subscribe("notes", func(c Change) {
		got = append(got, c)
	})
	defer cancel()

	require.NoError(t, m.Insert("notes", "n1", note{ID: "n1"}))
	_, version, _ := m.Get("notes", "n1")
	_, err := m.Update("notes", "n1", version, note{ID: "n1", Body: "x"})
	require.NoError(t, err)
	require.NoError(t, m.Delete("notes", "n1"))

	require.Len(t, got, 3)
	require.Equal(t, EventInsert, got[0].Type)
	require.Equal(t, EventUpdate, got[1].Type)
	require.Equal(t, EventDelete, got[2].Type)
	require.Equal(t, "x", got[1].New.(note).Body)

	cancel()
	require.NoError(t, m.Insert("notes", "n2", note{ID: "n2"}))
	require.Len(t, got, 3)
}

func TestDeleteWhere(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Insert("notes", "a", note{ID: "a", Body: "keep"}))
	require.NoError(t, m.Insert("notes", "b", note{ID: "b", Body: "drop"}))
	require.NoError(t, m.Insert("notes", "c", note{ID: "c", Body: "drop"}))

	removed := m.DeleteWhere("notes", func(rec any) bool {
		return rec.(note).Body == "drop"
	})
	require.Equal(t, 2, removed)

	remaining, err := m.List("notes", nil)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "a", remaining[0].(note).ID)
}
