package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-catalog/internal/store"
)

const faceColumns = `id, seq, account_id, asset_id,
	bbox_x1, bbox_y1, bbox_x2, bbox_y2,
	embedding, model, dim, person_id, source, created_at`

func scanFace(row interface{ Scan(...any) error }) (*store.Face, error) {
	var f store.Face
	var vec pgvector.Vector
	var personID sql.NullString
	err := row.Scan(
		&f.ID, &f.Seq, &f.AccountID, &f.AssetID,
		&f.BBox.X1, &f.BBox.Y1, &f.BBox.X2, &f.BBox.Y2,
		&vec, &f.Model, &f.Dim, &personID, &f.Source, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Embedding = vec.Slice()
	if personID.Valid {
		f.PersonID = personID.String
	}
	return &f, nil
}

func (s *Store) CreateFace(ctx context.Context, face *store.Face) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO faces (id, account_id, asset_id,
			bbox_x1, bbox_y1, bbox_x2, bbox_y2,
			embedding, model, dim, person_id, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, '')::uuid, $12)
		RETURNING seq, created_at`,
		face.ID, face.AccountID, face.AssetID,
		face.BBox.X1, face.BBox.Y1, face.BBox.X2, face.BBox.Y2,
		pgvector.NewVector(face.Embedding), face.Model, face.Dim,
		face.PersonID, face.Source,
	).Scan(&face.Seq, &face.CreatedAt)
	if err != nil {
		return fmt.Errorf("create face: %w", err)
	}
	return nil
}

func (s *Store) GetFace(ctx context.Context, faceID string) (*store.Face, error) {
	face, err := scanFace(s.q.QueryRowContext(ctx,
		`SELECT `+faceColumns+` FROM faces WHERE id = $1`, faceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrFaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get face: %w", err)
	}
	return face, nil
}

func (s *Store) FacesByAsset(ctx context.Context, accountID, assetID string) ([]store.Face, error) {
	return s.queryFaces(ctx,
		`SELECT `+faceColumns+` FROM faces
		 WHERE account_id = $1 AND asset_id = $2
		 ORDER BY created_at, seq`, accountID, assetID)
}

func (s *Store) FacesByPerson(ctx context.Context, personID string) ([]store.Face, error) {
	return s.queryFaces(ctx,
		`SELECT `+faceColumns+` FROM faces
		 WHERE person_id = $1
		 ORDER BY created_at, seq`, personID)
}

func (s *Store) AllFaces(ctx context.Context) ([]store.Face, error) {
	return s.queryFaces(ctx,
		`SELECT `+faceColumns+` FROM faces ORDER BY created_at, seq`)
}

func (s *Store) queryFaces(ctx context.Context, query string, args ...any) ([]store.Face, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var faces []store.Face
	for rows.Next() {
		f, err := scanFace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

func (s *Store) CountFacesByPerson(ctx context.Context, personID string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM faces WHERE person_id = $1`, personID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces by person: %w", err)
	}
	return count, nil
}

func (s *Store) CountFaces(ctx context.Context, accountID string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM faces WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

func (s *Store) UpdateFacePerson(ctx context.Context, faceID, personID string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE faces SET person_id = NULLIF($2, '')::uuid WHERE id = $1`, faceID, personID)
	if err != nil {
		return fmt.Errorf("update face person: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update face person: %w", err)
	}
	if n == 0 {
		return store.ErrFaceNotFound
	}
	return nil
}

func (s *Store) DeleteFace(ctx context.Context, faceID string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM faces WHERE id = $1`, faceID)
	if err != nil {
		return fmt.Errorf("delete face: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete face: %w", err)
	}
	if n == 0 {
		return store.ErrFaceNotFound
	}
	return nil
}
