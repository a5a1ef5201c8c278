package storage

import (
	"errors"
	"time"

	"timeletter/backend/internal/domain"
)

var (
	// ErrLetterNotFound 信件未找到错误
	ErrLetterNotFound = errors.New("letter not found")
	// ErrUserNotFound 用户未找到错误
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists 邮箱已被注册错误
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists 用户名已被注册错误
	ErrUsernameExists = errors.New("username already exists")
)

// LetterRepository 定义信件数据存取操作。
type LetterRepository interface {
	SaveLetter(letter *domain.Letter) error
	GetLetter(id string) (*domain.Letter, error)
	// ListLettersByRecipient 按收件人 ID 或邮箱查询信件，按创建时间倒序。
	ListLettersByRecipient(userID, email string) ([]domain.Letter, error)
	// MarkLetterRead 条件写入已读时间：仅当 read_at 为空时写入 readAt，
	// 返回写入后实际存储的值。并发首读竞争时以先写者为准。
	MarkLetterRead(id string, readAt time.Time) (time.Time, error)
}

// UserRepository 定义用户数据存取操作。
type UserRepository interface {
	CreateUser(user *domain.User) error
	GetUserByID(id string) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetUserByUsername(username string) (*domain.User, error)
	UpdateLastLogin(userID string) error
}

// JWTRepository 定义 JWT 黑名单操作。
type JWTRepository interface {
	AddToBlacklist(jti string, ttl time.Duration) error
	IsBlacklisted(jti string) (bool, error)
}

// RateLimitRepository 定义限流计数操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
	GetRateLimit(key string) (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	LetterRepository
	UserRepository

	// 工具方法
	Close() error
	Health() error
}
