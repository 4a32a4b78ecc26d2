package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/models"
)

const userColumns = `id, company_id, name, email, role, manager_id, telegram_chat_id, created_at, updated_at`

// UserRepository handles user database operations.
type UserRepository struct {
	db database.PGXDB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db database.PGXDB) *UserRepository {
	return &UserRepository{db: db}
}

// Create adds a new user. Role defaults to employee.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.Role == "" {
		u.Role = models.RoleEmployee
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (company_id, name, email, role, manager_id, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.CompanyID, u.Name, u.Email, u.Role, u.ManagerID, u.TelegramChatID,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// FirstAdmin returns the admin of a company with the lowest ID.
func (r *UserRepository) FirstAdmin(ctx context.Context, companyID int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE company_id = $1 AND role = 'admin'
		ORDER BY id
		LIMIT 1
	`, companyID))
	if err != nil {
		return nil, fmt.Errorf("failed to get company admin: %w", err)
	}
	return u, nil
}

// SetTelegramChatID links a user to the Telegram chat notifications are sent to.
func (r *UserRepository) SetTelegramChatID(ctx context.Context, userID, chatID int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET telegram_chat_id = $2, updated_at = NOW() WHERE id = $1
	`, userID, chatID)
	if err != nil {
		return fmt.Errorf("failed to set telegram chat id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to set telegram chat id: user %d not found", userID)
	}
	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(
		&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &u.ManagerID, &u.TelegramChatID,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
