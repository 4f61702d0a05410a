package company

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hrpay/internal/platform/querier"
)

const uniqueViolation = "23505"

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, c Company) (Company, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO companies (name, address, currency)
    VALUES ($1,$2,$3)
    RETURNING id, created_at
  `, c.Name, c.Address, c.Currency).Scan(&c.ID, &c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return Company{}, ErrDuplicateName
	}
	return c, err
}

func (s *Store) Get(ctx context.Context, id string) (Company, error) {
	var c Company
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, address, currency, created_at
    FROM companies
    WHERE id = $1
  `, id).Scan(&c.ID, &c.Name, &c.Address, &c.Currency, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	return c, err
}

func (s *Store) List(ctx context.Context, limit, offset int) (ListResult, error) {
	var out ListResult
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM companies").Scan(&out.Total); err != nil {
		return ListResult{}, err
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, address, currency, created_at
    FROM companies
    ORDER BY name
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.Currency, &c.CreatedAt); err != nil {
			return ListResult{}, err
		}
		out.Items = append(out.Items, c)
	}
	return out, rows.Err()
}
