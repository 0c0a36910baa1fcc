package catalog

import (
	"sort"
	"sync"
)

// mutationCoordinator serializes mutations touching the same person.
// Locks are keyed by person id and dropped once nobody holds them, so
// the map does not grow with the number of people ever touched.
type mutationCoordinator struct {
	mu    sync.Mutex
	locks map[string]*personLock
}

type personLock struct {
	mu   sync.Mutex
	refs int
}

func newMutationCoordinator() *mutationCoordinator {
	return &mutationCoordinator{
		locks: map[string]*personLock{},
	}
}

func (c *mutationCoordinator) acquire(personID string) *personLock {
	c.mu.Lock()
	l, ok := c.locks[personID]
	if !ok {
		l = &personLock{}
		c.locks[personID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return l
}

func (c *mutationCoordinator) release(personID string, l *personLock) {
	l.mu.Unlock()

	c.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, personID)
	}
	c.mu.Unlock()
}

// withPerson runs fn while holding the lock for one person. An empty id
// (face not assigned to anyone) runs fn without locking.
func (c *mutationCoordinator) withPerson(personID string, fn func() error) error {
	if personID == "" {
		return fn()
	}
	l := c.acquire(personID)
	defer c.release(personID, l)
	return fn()
}

// withPersons locks several people at once, in sorted id order so two
// concurrent reassignments between the same pair cannot deadlock.
func (c *mutationCoordinator) withPersons(personIDs []string, fn func() error) error {
	ids := make([]string, 0, len(personIDs))
	seen := map[string]bool{}
	for _, id := range personIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)

	held := make([]*personLock, 0, len(ids))
	for _, id := range ids {
		held = append(held, c.acquire(id))
	}
	defer func() {
		for i := len(ids) - 1; i >= 0; i-- {
			c.release(ids[i], held[i])
		}
	}()
	return fn()
}
