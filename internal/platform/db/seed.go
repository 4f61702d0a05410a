package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"hrpay/internal/domain/auth"
	"hrpay/internal/platform/config"
	"hrpay/internal/platform/querier"
)

// Seed makes sure the default company and its admin user exist. It is safe
// to run on every start.
func Seed(ctx context.Context, db querier.Querier, cfg config.Config) error {
	companyID, err := ensureCompany(ctx, db, cfg.SeedCompanyName)
	if err != nil {
		return err
	}
	return ensureAdminUser(ctx, db, companyID, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureCompany(ctx context.Context, db querier.Querier, name string) (string, error) {
	var id string
	err := db.QueryRow(ctx, "SELECT id FROM companies WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	err = db.QueryRow(ctx, "INSERT INTO companies (name) VALUES ($1) RETURNING id", name).Scan(&id)
	return id, err
}

func ensureAdminUser(ctx context.Context, db querier.Querier, companyID, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
    INSERT INTO users (company_id, email, password_hash, role)
    VALUES ($1,$2,$3,$4)
  `, companyID, email, hash, auth.RoleAdmin)
	return err
}
