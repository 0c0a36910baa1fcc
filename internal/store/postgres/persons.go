package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-catalog/internal/store"
)

const personColumns = `id, account_id, name, representative_face_id, face_count, created_at`

func scanPerson(row interface{ Scan(...any) error }) (*store.Person, error) {
	var p store.Person
	var rep sql.NullString
	err := row.Scan(&p.ID, &p.AccountID, &p.Name, &rep, &p.FaceCount, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if rep.Valid {
		p.RepresentativeFaceID = rep.String
	}
	return &p, nil
}

func (s *Store) CreatePerson(ctx context.Context, person *store.Person) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO persons (id, account_id, name, representative_face_id, face_count)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5)
		RETURNING created_at`,
		person.ID, person.AccountID, person.Name, person.RepresentativeFaceID, person.FaceCount,
	).Scan(&person.CreatedAt)
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

func (s *Store) GetPerson(ctx context.Context, personID string) (*store.Person, error) {
	person, err := scanPerson(s.q.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`, personID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrPersonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}
	return person, nil
}

func (s *Store) PersonsByAccount(ctx context.Context, accountID string) ([]store.Person, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+personColumns+` FROM persons
		 WHERE account_id = $1
		 ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query persons: %w", err)
	}
	defer rows.Close()

	var persons []store.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return persons, nil
}

func (s *Store) CountPersons(ctx context.Context, accountID string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM persons WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return count, nil
}

func (s *Store) UpdatePerson(ctx context.Context, person *store.Person) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE persons
		SET name = $2, representative_face_id = NULLIF($3, '')::uuid, face_count = $4
		WHERE id = $1`,
		person.ID, person.Name, person.RepresentativeFaceID, person.FaceCount)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	if n == 0 {
		return store.ErrPersonNotFound
	}
	return nil
}

func (s *Store) DeletePerson(ctx context.Context, personID string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, personID)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	if n == 0 {
		return store.ErrPersonNotFound
	}
	return nil
}
