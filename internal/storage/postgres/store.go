package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/storage"
)

// 单次数据库操作的超时时间
const queryTimeout = 5 * time.Second

// Store PostgreSQL 原生存储实现（基于 pgx 连接池）。
// 表结构由 cmd/migrate 创建。
type Store struct {
	client *Client
}

// NewStore 创建 PostgreSQL 存储
func NewStore(client *Client) *Store {
	return &Store{client: client}
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), queryTimeout)
}

// SaveLetter 保存信件
func (s *Store) SaveLetter(letter *domain.Letter) error {
	ctx, cancel := s.ctx()
	defer cancel()

	_, err := s.client.pool.Exec(ctx, `
		INSERT INTO letters
			(id, sender_id, sender_email, recipient_id, recipient_email,
			 subject, body, created_at, open_at, template, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		letter.ID, letter.SenderID, letter.SenderEmail, letter.RecipientID,
		letter.RecipientEmail, letter.Subject, letter.Body, letter.CreatedAt,
		letter.OpenAt, letter.Template, letter.ReadAt)
	if err != nil {
		return fmt.Errorf("failed to save letter: %w", err)
	}
	return nil
}

// GetLetter 根据 ID 获取信件
func (s *Store) GetLetter(id string) (*domain.Letter, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	row := s.client.pool.QueryRow(ctx, `
		SELECT id, sender_id, sender_email, recipient_id, recipient_email,
		       subject, body, created_at, open_at, template, read_at
		FROM letters WHERE id = $1`, id)

	letter, err := scanLetter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrLetterNotFound
		}
		return nil, fmt.Errorf("failed to get letter: %w", err)
	}
	return letter, nil
}

// ListLettersByRecipient 按收件人 ID 或邮箱查询信件，按创建时间倒序
func (s *Store) ListLettersByRecipient(userID, email string) ([]domain.Letter, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var (
		rows pgx.Rows
		err  error
	)
	if email != "" {
		rows, err = s.client.pool.Query(ctx, `
			SELECT id, sender_id, sender_email, recipient_id, recipient_email,
			       subject, body, created_at, open_at, template, read_at
			FROM letters
			WHERE recipient_id = $1 OR recipient_email = $2
			ORDER BY created_at DESC`, userID, email)
	} else {
		rows, err = s.client.pool.Query(ctx, `
			SELECT id, sender_id, sender_email, recipient_id, recipient_email,
			       subject, body, created_at, open_at, template, read_at
			FROM letters
			WHERE recipient_id = $1
			ORDER BY created_at DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	defer rows.Close()

	letters := make([]domain.Letter, 0)
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan letter: %w", err)
		}
		letters = append(letters, *letter)
	}
	return letters, rows.Err()
}

// MarkLetterRead 条件写入已读时间。COALESCE 保证已设置的值不被覆盖，
// 单条语句内完成比较与写入，并发首读竞争下以先写者为准。
func (s *Store) MarkLetterRead(id string, readAt time.Time) (time.Time, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var stored time.Time
	err := s.client.pool.QueryRow(ctx, `
		UPDATE letters SET read_at = COALESCE(read_at, $1)
		WHERE id = $2
		RETURNING read_at`, readAt, id).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, storage.ErrLetterNotFound
		}
		return time.Time{}, fmt.Errorf("failed to mark letter read: %w", err)
	}
	return stored, nil
}

// CreateUser 创建新用户
func (s *Store) CreateUser(user *domain.User) error {
	ctx, cancel := s.ctx()
	defer cancel()

	_, err := s.client.pool.Exec(ctx, `
		INSERT INTO users
			(id, email, username, password_hash, role, is_active,
			 created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.Username, user.PasswordHash, user.Role,
		user.IsActive, user.CreatedAt, user.UpdatedAt, user.LastLoginAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID 根据 ID 获取用户
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	return s.getUser(`WHERE id = $1`, id)
}

// GetUserByEmail 根据邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	return s.getUser(`WHERE email = $1`, email)
}

// GetUserByUsername 根据用户名获取用户
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	return s.getUser(`WHERE username = $1`, username)
}

// UpdateLastLogin 更新最近登录时间
func (s *Store) UpdateLastLogin(userID string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	now := time.Now().UTC()
	tag, err := s.client.pool.Exec(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = $2 WHERE id = $3`,
		now, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}

func (s *Store) getUser(where string, arg interface{}) (*domain.User, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var user domain.User
	err := s.client.pool.QueryRow(ctx, `
		SELECT id, email, username, password_hash, role, is_active,
		       created_at, updated_at, last_login_at
		FROM users `+where, arg).Scan(
		&user.ID, &user.Email, &user.Username, &user.PasswordHash, &user.Role,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Close 关闭存储
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

// Health 检查数据库健康状态
func (s *Store) Health() error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Ping(ctx)
}

func scanLetter(row pgx.Row) (*domain.Letter, error) {
	var letter domain.Letter
	err := row.Scan(
		&letter.ID, &letter.SenderID, &letter.SenderEmail, &letter.RecipientID,
		&letter.RecipientEmail, &letter.Subject, &letter.Body,
		&letter.CreatedAt, &letter.OpenAt, &letter.Template, &letter.ReadAt)
	if err != nil {
		return nil, err
	}
	return &letter, nil
}
