package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/storage"
)

const userColumns = `id, email, username, password_hash, role, is_active,
	created_at, updated_at, last_login_at`

// CreateUser 创建新用户
func (s *Store) CreateUser(user *domain.User) error {
	query := fmt.Sprintf(`
		INSERT INTO users (%s)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		userColumns,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
		s.placeholder(5), s.placeholder(6), s.placeholder(7), s.placeholder(8),
		s.placeholder(9))

	_, err := s.db.Exec(query,
		user.ID, user.Email, user.Username, user.PasswordHash, user.Role,
		user.IsActive, user.CreatedAt, user.UpdatedAt, user.LastLoginAt)
	if err != nil {
		// 唯一约束冲突映射为业务错误
		if isDuplicateError(err) {
			return storage.ErrEmailExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = %s`, userColumns, s.placeholder(1))
	return s.getUser(query, id)
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = %s`, userColumns, s.placeholder(1))
	return s.getUser(query, email)
}

// GetUserByUsername 根据用户名获取用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = %s`, userColumns, s.placeholder(1))
	return s.getUser(query, username)
}

// UpdateLastLogin 更新最近登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	query := fmt.Sprintf(
		`UPDATE users SET last_login_at = %s, updated_at = %s WHERE id = %s`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3))

	now := time.Now().UTC()
	res, err := s.db.Exec(query, now, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

func (s *Store) getUser(query string, arg interface{}) (*domain.User, error) {
	var (
		user        domain.User
		lastLoginAt sql.NullTime
	)

	err := s.db.QueryRow(query, arg).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Role,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &lastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		user.LastLoginAt = &t
	}
	return &user, nil
}

// isDuplicateError 判断是否为唯一约束冲突（MySQL 1062 / PostgreSQL 23505）
func isDuplicateError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}
