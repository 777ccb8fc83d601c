package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"support_chat_service/internal/directory/domain"
)

// UserRepository definition directory account store
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUserStatus(ctx context.Context, user *domain.User) error
	FindByUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error)
	// AddDeviceToken register a push token, duplicates are ignored
	AddDeviceToken(ctx context.Context, userID, deviceToken string) error
	RemoveDeviceTokens(ctx context.Context, userID string, tokens []string) error
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
}

type userRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository create a UserRepository
func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO users(user_id, email, password, role, tenant_id, status) VALUES ($1, $2, $3, $4, $5, $6)",
		user.UserID, user.Email, user.Password, user.Role, user.TenantID, domain.UserStatusOffline)
	return err
}

func (r *userRepository) UpdateUserStatus(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, "UPDATE users SET status = $1 WHERE user_id = $2", user.Status, user.UserID)
	return err
}

func (r *userRepository) FindByUser(ctx context.Context, query *domain.UserQuery) (*domain.User, error) {
	queryStr := "SELECT id, user_id, email, password, role, tenant_id, status FROM users WHERE 1=1"
	params := []interface{}{}
	paramCount := 1

	if query.Email != nil {
		queryStr += fmt.Sprintf(" AND email = $%d", paramCount)
		params = append(params, *query.Email)
		paramCount++
	}
	if query.UserID != nil {
		queryStr += fmt.Sprintf(" AND user_id = $%d", paramCount)
		params = append(params, *query.UserID)
		paramCount++
	}
	if query.ID != nil {
		queryStr += fmt.Sprintf(" AND id = $%d", paramCount)
		params = append(params, *query.ID)
		paramCount++
	}

	row := r.db.QueryRow(ctx, queryStr, params...)
	var user domain.User
	err := row.Scan(&user.ID, &user.UserID, &user.Email, &user.Password, &user.Role, &user.TenantID, &user.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.New("no user found with given criteria")
		}
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) AddDeviceToken(ctx context.Context, userID, deviceToken string) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO device_tokens(user_id, token) VALUES ($1, $2) ON CONFLICT (user_id, token) DO NOTHING",
		userID, deviceToken)
	return err
}

func (r *userRepository) RemoveDeviceTokens(ctx context.Context, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		"DELETE FROM device_tokens WHERE user_id = $1 AND token = ANY($2)",
		userID, tokens)
	return err
}

func (r *userRepository) DeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx, "SELECT token FROM device_tokens WHERE user_id = $1", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
