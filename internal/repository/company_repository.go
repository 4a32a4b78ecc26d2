package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

// CompanyRepository handles company database operations.
type CompanyRepository struct {
	db database.PGXDB
}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(db database.PGXDB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create adds a new company.
func (r *CompanyRepository) Create(ctx context.Context, c *models.Company) error {
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = models.DefaultCurrency
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO companies (name, default_currency)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, c.Name, c.DefaultCurrency).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by ID.
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	var c models.Company
	err := r.db.QueryRow(ctx, `
		SELECT id, name, default_currency, created_at
		FROM companies WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.DefaultCurrency, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}
