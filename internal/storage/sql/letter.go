package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/storage"
)

// SaveLetter 保存信件
func (s *Store) SaveLetter(letter *domain.Letter) error {
	query := fmt.Sprintf(`
		INSERT INTO letters
			(id, sender_id, sender_email, recipient_id, recipient_email,
			 subject, body, created_at, open_at, template, read_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
		s.placeholder(5), s.placeholder(6), s.placeholder(7), s.placeholder(8),
		s.placeholder(9), s.placeholder(10), s.placeholder(11))

	_, err := s.db.Exec(query,
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
	query := fmt.Sprintf(`
		SELECT id, sender_id, sender_email, recipient_id, recipient_email,
		       subject, body, created_at, open_at, template, read_at
		FROM letters WHERE id = %s`, s.placeholder(1))

	letter, err := scanLetter(s.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrLetterNotFound
		}
		return nil, fmt.Errorf("failed to get letter: %w", err)
	}
	return letter, nil
}

// ListLettersByRecipient 按收件人 ID 或邮箱查询信件，按创建时间倒序
func (s *Store) ListLettersByRecipient(userID, email string) ([]domain.Letter, error) {
	var (
		query string
		args  []interface{}
	)

	if email != "" {
		query = fmt.Sprintf(`
			SELECT id, sender_id, sender_email, recipient_id, recipient_email,
			       subject, body, created_at, open_at, template, read_at
			FROM letters
			WHERE recipient_id = %s OR recipient_email = %s
			ORDER BY created_at DESC`, s.placeholder(1), s.placeholder(2))
		args = []interface{}{userID, email}
	} else {
		query = fmt.Sprintf(`
			SELECT id, sender_id, sender_email, recipient_id, recipient_email,
			       subject, body, created_at, open_at, template, read_at
			FROM letters
			WHERE recipient_id = %s
			ORDER BY created_at DESC`, s.placeholder(1))
		args = []interface{}{userID}
	}

	rows, err := s.db.Query(query, args...)
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

// MarkLetterRead 条件写入已读时间：仅当 read_at 为空时更新。
// 更新未命中时回读已存的值，保证并发首读竞争下返回先写者的时间。
func (s *Store) MarkLetterRead(id string, readAt time.Time) (time.Time, error) {
	update := fmt.Sprintf(
		`UPDATE letters SET read_at = %s WHERE id = %s AND read_at IS NULL`,
		s.placeholder(1), s.placeholder(2))

	res, err := s.db.Exec(update, readAt, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to mark letter read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to mark letter read: %w", err)
	}
	if affected > 0 {
		return readAt, nil
	}

	// 未命中：信件不存在，或 read_at 已被先写者设置
	query := fmt.Sprintf(`SELECT read_at FROM letters WHERE id = %s`, s.placeholder(1))
	var stored sql.NullTime
	if err := s.db.QueryRow(query, id).Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, storage.ErrLetterNotFound
		}
		return time.Time{}, fmt.Errorf("failed to read back read_at: %w", err)
	}
	if stored.Valid {
		return stored.Time, nil
	}
	return readAt, nil
}

// rowScanner 统一 QueryRow 与 Rows 的扫描入口
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLetter(row rowScanner) (*domain.Letter, error) {
	var (
		letter      domain.Letter
		recipientID sql.NullString
		readAt      sql.NullTime
	)

	err := row.Scan(
		&letter.ID, &letter.SenderID, &letter.SenderEmail, &recipientID,
		&letter.RecipientEmail, &letter.Subject, &letter.Body,
		&letter.CreatedAt, &letter.OpenAt, &letter.Template, &readAt)
	if err != nil {
		return nil, err
	}

	if recipientID.Valid {
		letter.RecipientID = &recipientID.String
	}
	if readAt.Valid {
		t := readAt.Time
		letter.ReadAt = &t
	}
	return &letter, nil
}
