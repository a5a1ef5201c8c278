package memory

import (
	"sort"
	"sync"
	"time"

	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/storage"
)

// Store 使用内存保存信件与用户数据，主要用于开发验证与测试。
type Store struct {
	mu         sync.RWMutex
	letters    map[string]*domain.Letter // letterID -> letter
	users      map[string]*domain.User   // userID -> user
	byEmail    map[string]string         // email -> userID
	byUsername map[string]string         // username -> userID

	// 速率限制与 JWT 黑名单
	rateLimits map[string]*rateLimitEntry
	blacklist  map[string]time.Time // jti -> 过期时间
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		letters:    make(map[string]*domain.Letter),
		users:      make(map[string]*domain.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		rateLimits: make(map[string]*rateLimitEntry),
		blacklist:  make(map[string]time.Time),
	}
}

// SaveLetter 保存信件。
func (s *Store) SaveLetter(letter *domain.Letter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *letter
	s.letters[letter.ID] = &cp
	return nil
}

// GetLetter 根据 ID 获取信件。
func (s *Store) GetLetter(id string) (*domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	letter, ok := s.letters[id]
	if !ok {
		return nil, storage.ErrLetterNotFound
	}
	cp := *letter
	return &cp, nil
}

// ListLettersByRecipient 按收件人查询信件，按创建时间倒序。
func (s *Store) ListLettersByRecipient(userID, email string) ([]domain.Letter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Letter, 0)
	for _, letter := range s.letters {
		if letter.RecipientID != nil && *letter.RecipientID == userID {
			result = append(result, *letter)
			continue
		}
		if email != "" && letter.RecipientEmail == email {
			result = append(result, *letter)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// MarkLetterRead 条件写入已读时间，返回实际存储的值。
// 已读过的信件不会被覆盖，返回首次写入的时间。
func (s *Store) MarkLetterRead(id string, readAt time.Time) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	letter, ok := s.letters[id]
	if !ok {
		return time.Time{}, storage.ErrLetterNotFound
	}
	if letter.ReadAt != nil {
		return *letter.ReadAt, nil
	}
	letter.ReadAt = &readAt
	return readAt, nil
}

// CreateUser 创建新用户。
func (s *Store) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[user.Email]; ok {
		return storage.ErrEmailExists
	}
	if user.Username != "" {
		if _, ok := s.byUsername[user.Username]; ok {
			return storage.ErrUsernameExists
		}
	}

	cp := *user
	s.users[user.ID] = &cp
	s.byEmail[user.Email] = user.ID
	if user.Username != "" {
		s.byUsername[user.Username] = user.ID
	}
	return nil
}

// GetUserByID 根据 ID 获取用户。
func (s *Store) GetUserByID(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// GetUserByEmail 根据邮箱获取用户。
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// GetUserByUsername 根据用户名获取用户。
func (s *Store) GetUserByUsername(username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// UpdateLastLogin 更新最近登录时间。
func (s *Store) UpdateLastLogin(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	now := time.Now().UTC()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	return nil
}

// IncrementRateLimit 递增限流计数，过期窗口自动重置。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{ExpiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.Count++
	return entry.Count, nil
}

// GetRateLimit 查询当前限流计数。
func (s *Store) GetRateLimit(key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.rateLimits[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return 0, nil
	}
	return entry.Count, nil
}

// AddToBlacklist 将令牌 jti 加入黑名单。
func (s *Store) AddToBlacklist(jti string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blacklist[jti] = time.Now().Add(ttl)
	return nil
}

// IsBlacklisted 判断令牌 jti 是否在黑名单中。
func (s *Store) IsBlacklisted(jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiresAt, ok := s.blacklist[jti]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiresAt), nil
}

// Close 关闭存储（内存实现为空操作）。
func (s *Store) Close() error {
	return nil
}

// Health 检查存储健康状态。
func (s *Store) Health() error {
	return nil
}
