// Package memory provides an in-memory implementation of store.Store.
// It backs tests and single-process deployments that run without
// PostgreSQL. Transactions are implemented as copy-on-write snapshots:
// RunInTx clones the record maps and restores them when fn fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/face-catalog/internal/store"
)

// Store is an in-memory, transactional face catalog.
type Store struct {
	mu      sync.Mutex
	faces   map[string]*store.Face
	persons map[string]*store.Person
	seq     int64
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		faces:   make(map[string]*store.Face),
		persons: make(map[string]*store.Person),
	}
}

// RunInTx executes fn against a transactional view. On error the store
// is restored to its pre-transaction state.
func (s *Store) RunInTx(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapFaces := make(map[string]*store.Face, len(s.faces))
	for id, f := range s.faces {
		c := *f
		snapFaces[id] = &c
	}
	snapPersons := make(map[string]*store.Person, len(s.persons))
	for id, p := range s.persons {
		c := *p
		snapPersons[id] = &c
	}
	snapSeq := s.seq

	if err := fn(&txView{s: s}); err != nil {
		s.faces = snapFaces
		s.persons = snapPersons
		s.seq = snapSeq
		return err
	}
	return nil
}

// --- Face operations ---

func (s *Store) CreateFace(ctx context.Context, face *store.Face) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createFace(face)
}

func (s *Store) GetFace(ctx context.Context, faceID string) (*store.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getFace(faceID)
}

func (s *Store) FacesByAsset(ctx context.Context, accountID, assetID string) ([]store.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facesWhere(func(f *store.Face) bool {
		return f.AccountID == accountID && f.AssetID == assetID
	}), nil
}

func (s *Store) FacesByPerson(ctx context.Context, personID string) ([]store.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facesWhere(func(f *store.Face) bool { return f.PersonID == personID }), nil
}

func (s *Store) CountFacesByPerson(ctx context.Context, personID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countFacesByPerson(personID), nil
}

func (s *Store) CountFaces(ctx context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, f := range s.faces {
		if f.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (s *Store) AllFaces(ctx context.Context) ([]store.Face, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facesWhere(func(*store.Face) bool { return true }), nil
}

func (s *Store) UpdateFacePerson(ctx context.Context, faceID, personID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateFacePerson(faceID, personID)
}

func (s *Store) DeleteFace(ctx context.Context, faceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteFace(faceID)
}

// --- Person operations ---

func (s *Store) CreatePerson(ctx context.Context, person *store.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createPerson(person)
}

func (s *Store) GetPerson(ctx context.Context, personID string) (*store.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPerson(personID)
}

func (s *Store) PersonsByAccount(ctx context.Context, accountID string) ([]store.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.personsByAccount(accountID), nil
}

func (s *Store) CountPersons(ctx context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.personsByAccount(accountID)), nil
}

func (s *Store) UpdatePerson(ctx context.Context, person *store.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatePerson(person)
}

func (s *Store) DeletePerson(ctx context.Context, personID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletePerson(personID)
}

// --- unlocked implementations, shared with the transactional view ---

func (s *Store) createFace(face *store.Face) error {
	if face.ID == "" {
		return fmt.Errorf("face ID is required")
	}
	if _, exists := s.faces[face.ID]; exists {
		return fmt.Errorf("face %s already exists", face.ID)
	}
	s.seq++
	c := *face
	c.Seq = s.seq
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Embedding = append([]float32(nil), face.Embedding...)
	s.faces[face.ID] = &c
	face.Seq = c.Seq
	face.CreatedAt = c.CreatedAt
	return nil
}

func (s *Store) getFace(faceID string) (*store.Face, error) {
	f, ok := s.faces[faceID]
	if !ok {
		return nil, fmt.Errorf("face %s: %w", faceID, store.ErrFaceNotFound)
	}
	c := *f
	c.Embedding = append([]float32(nil), f.Embedding...)
	return &c, nil
}

func (s *Store) facesWhere(match func(*store.Face) bool) []store.Face {
	var result []store.Face
	for _, f := range s.faces {
		if match(f) {
			c := *f
			c.Embedding = append([]float32(nil), f.Embedding...)
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Seq < result[j].Seq
	})
	return result
}

func (s *Store) countFacesByPerson(personID string) int {
	count := 0
	for _, f := range s.faces {
		if f.PersonID == personID {
			count++
		}
	}
	return count
}

func (s *Store) updateFacePerson(faceID, personID string) error {
	f, ok := s.faces[faceID]
	if !ok {
		return fmt.Errorf("face %s: %w", faceID, store.ErrFaceNotFound)
	}
	f.PersonID = personID
	return nil
}

func (s *Store) deleteFace(faceID string) error {
	if _, ok := s.faces[faceID]; !ok {
		return fmt.Errorf("face %s: %w", faceID, store.ErrFaceNotFound)
	}
	delete(s.faces, faceID)
	return nil
}

func (s *Store) createPerson(person *store.Person) error {
	if person.ID == "" {
		return fmt.Errorf("person ID is required")
	}
	if _, exists := s.persons[person.ID]; exists {
		return fmt.Errorf("person %s already exists", person.ID)
	}
	c := *person
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.persons[person.ID] = &c
	person.CreatedAt = c.CreatedAt
	return nil
}

func (s *Store) getPerson(personID string) (*store.Person, error) {
	p, ok := s.persons[personID]
	if !ok {
		return nil, fmt.Errorf("person %s: %w", personID, store.ErrPersonNotFound)
	}
	c := *p
	return &c, nil
}

func (s *Store) personsByAccount(accountID string) []store.Person {
	var result []store.Person
	for _, p := range s.persons {
		if p.AccountID == accountID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (s *Store) updatePerson(person *store.Person) error {
	if _, ok := s.persons[person.ID]; !ok {
		return fmt.Errorf("person %s: %w", person.ID, store.ErrPersonNotFound)
	}
	c := *person
	s.persons[person.ID] = &c
	return nil
}

func (s *Store) deletePerson(personID string) error {
	if _, ok := s.persons[personID]; !ok {
		return fmt.Errorf("person %s: %w", personID, store.ErrPersonNotFound)
	}
	delete(s.persons, personID)
	return nil
}

// txView exposes the unlocked operations to RunInTx callbacks. The
// parent's mutex is held for the whole transaction.
type txView struct {
	s *Store
}

var _ store.Store = (*txView)(nil)

func (t *txView) CreateFace(ctx context.Context, face *store.Face) error {
	return t.s.createFace(face)
}

func (t *txView) GetFace(ctx context.Context, faceID string) (*store.Face, error) {
	return t.s.getFace(faceID)
}

func (t *txView) FacesByAsset(ctx context.Context, accountID, assetID string) ([]store.Face, error) {
	return t.s.facesWhere(func(f *store.Face) bool {
		return f.AccountID == accountID && f.AssetID == assetID
	}), nil
}

func (t *txView) FacesByPerson(ctx context.Context, personID string) ([]store.Face, error) {
	return t.s.facesWhere(func(f *store.Face) bool { return f.PersonID == personID }), nil
}

func (t *txView) CountFacesByPerson(ctx context.Context, personID string) (int, error) {
	return t.s.countFacesByPerson(personID), nil
}

func (t *txView) CountFaces(ctx context.Context, accountID string) (int, error) {
	count := 0
	for _, f := range t.s.faces {
		if f.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (t *txView) AllFaces(ctx context.Context) ([]store.Face, error) {
	return t.s.facesWhere(func(*store.Face) bool { return true }), nil
}

func (t *txView) UpdateFacePerson(ctx context.Context, faceID, personID string) error {
	return t.s.updateFacePerson(faceID, personID)
}

func (t *txView) DeleteFace(ctx context.Context, faceID string) error {
	return t.s.deleteFace(faceID)
}

func (t *txView) CreatePerson(ctx context.Context, person *store.Person) error {
	return t.s.createPerson(person)
}

func (t *txView) GetPerson(ctx context.Context, personID string) (*store.Person, error) {
	return t.s.getPerson(personID)
}

func (t *txView) PersonsByAccount(ctx context.Context, accountID string) ([]store.Person, error) {
	return t.s.personsByAccount(accountID), nil
}

func (t *txView) CountPersons(ctx context.Context, accountID string) (int, error) {
	return len(t.s.personsByAccount(accountID)), nil
}

func (t *txView) UpdatePerson(ctx context.Context, person *store.Person) error {
	return t.s.updatePerson(person)
}

func (t *txView) DeletePerson(ctx context.Context, personID string) error {
	return t.s.deletePerson(personID)
}

// RunInTx on a transactional view runs fn in the enclosing transaction.
func (t *txView) RunInTx(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}
