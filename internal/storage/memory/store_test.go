package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/storage"
)

func saveLetter(t *testing.T, s *Store, id, recipientID, recipientEmail string, createdAt time.Time) *domain.Letter {
	t.Helper()
	letter := &domain.Letter{
		ID:             id,
		SenderID:       "user_1",
		SenderEmail:    "sender@example.com",
		RecipientID:    &recipientID,
		RecipientEmail: recipientEmail,
		Body:           "this is a letter body with enough characters",
		CreatedAt:      createdAt,
		OpenAt:         createdAt.Add(24 * time.Hour),
		Template:       domain.DefaultTemplate,
	}
	require.NoError(t, s.SaveLetter(letter))
	return letter
}

func TestStore_Letters(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("保存并读取信件", func(t *testing.T) {
		s := NewStore()
		letter := saveLetter(t, s, "l1", "user_2", "r@example.com", now)

		got, err := s.GetLetter("l1")

		require.NoError(t, err)
		assert.Equal(t, letter.Body, got.Body)
		assert.Equal(t, letter.RecipientEmail, got.RecipientEmail)
	})

	t.Run("读取返回副本，外部修改不影响存储", func(t *testing.T) {
		s := NewStore()
		saveLetter(t, s, "l1", "user_2", "r@example.com", now)

		got, err := s.GetLetter("l1")
		require.NoError(t, err)
		got.Body = "mutated"

		again, err := s.GetLetter("l1")
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Body)
	})

	t.Run("信件不存在", func(t *testing.T) {
		s := NewStore()

		got, err := s.GetLetter("missing")

		assert.ErrorIs(t, err, storage.ErrLetterNotFound)
		assert.Nil(t, got)
	})
}

func TestStore_ListLettersByRecipient(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("按收件人ID查询", func(t *testing.T) {
		s := NewStore()
		saveLetter(t, s, "l1", "user_2", "r@example.com", now)
		saveLetter(t, s, "l2", "user_3", "other@example.com", now)

		letters, err := s.ListLettersByRecipient("user_2", "")

		require.NoError(t, err)
		require.Len(t, letters, 1)
		assert.Equal(t, "l1", letters[0].ID)
	})

	t.Run("按收件邮箱查询", func(t *testing.T) {
		s := NewStore()
		saveLetter(t, s, "l1", "user_2", "r@example.com", now)

		letters, err := s.ListLettersByRecipient("user_9", "r@example.com")

		require.NoError(t, err)
		require.Len(t, letters, 1)
		assert.Equal(t, "l1", letters[0].ID)
	})

	t.Run("结果按创建时间倒序", func(t *testing.T) {
		s := NewStore()
		saveLetter(t, s, "old", "user_2", "r@example.com", now)
		saveLetter(t, s, "new", "user_2", "r@example.com", now.Add(time.Hour))

		letters, err := s.ListLettersByRecipient("user_2", "")

		require.NoError(t, err)
		require.Len(t, letters, 2)
		assert.Equal(t, "new", letters[0].ID)
		assert.Equal(t, "old", letters[1].ID)
	})

	t.Run("ID与邮箱都匹配时不重复", func(t *testing.T) {
		s := NewStore()
		saveLetter(t, s, "l1", "user_2", "r@example.com", now)

		letters, err := s.ListLettersByRecipient("user_2", "r@example.com")

		require.NoError(t, err)
		assert.Len(t, letters, 1)
	})

	t.Run("无匹配时返回空切片", func(t *testing.T) {
		s := NewStore()

		letters, err := s.ListLettersByRecipient("user_2", "")

		require.NoError(t, err)
		assert.Empty(t, letters)
	})
}

func TestStore_MarkLetterRead(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("首次写入返回写入值", func(t *testing.T) {
		s := NewStore()
		saveLetter(t, s, "l1", "user_2", "r@example.com", now)
		readAt := now.Add(time.Hour)

		stored, err := s.MarkLetterRead("l1", readAt)

		require.NoError(t, err)
		assert.Equal(t, readAt, stored)

		letter, err := s.GetLetter("l1")
		require.NoError(t, err)
		require.NotNil(t, letter.ReadAt)
		assert.Equal(t, readAt, *letter.ReadAt)
	})

	t.Run("再次写入不覆盖并返回首次值", func(t *testing.T) {
		s := NewStore()
		saveLetter(t, s, "l1", "user_2", "r@example.com", now)
		first := now.Add(time.Hour)
		second := now.Add(2 * time.Hour)

		_, err := s.MarkLetterRead("l1", first)
		require.NoError(t, err)

		stored, err := s.MarkLetterRead("l1", second)

		require.NoError(t, err)
		assert.Equal(t, first, stored)

		letter, err := s.GetLetter("l1")
		require.NoError(t, err)
		assert.Equal(t, first, *letter.ReadAt)
	})

	t.Run("信件不存在", func(t *testing.T) {
		s := NewStore()

		_, err := s.MarkLetterRead("missing", now)

		assert.ErrorIs(t, err, storage.ErrLetterNotFound)
	})
}

func TestStore_Users(t *testing.T) {
	newUser := func(id, email, username string) *domain.User {
		return &domain.User{
			ID:       id,
			Email:    email,
			Username: username,
			Role:     domain.RoleUser,
			IsActive: true,
		}
	}

	t.Run("创建并查询用户", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.CreateUser(newUser("u1", "a@example.com", "alice")))

		byID, err := s.GetUserByID("u1")
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", byID.Email)

		byEmail, err := s.GetUserByEmail("a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", byEmail.ID)

		byUsername, err := s.GetUserByUsername("alice")
		require.NoError(t, err)
		assert.Equal(t, "u1", byUsername.ID)
	})

	t.Run("邮箱重复", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.CreateUser(newUser("u1", "a@example.com", "alice")))

		err := s.CreateUser(newUser("u2", "a@example.com", "bob"))

		assert.ErrorIs(t, err, storage.ErrEmailExists)
	})

	t.Run("用户名重复", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.CreateUser(newUser("u1", "a@example.com", "alice")))

		err := s.CreateUser(newUser("u2", "b@example.com", "alice"))

		assert.ErrorIs(t, err, storage.ErrUsernameExists)
	})

	t.Run("更新最近登录时间", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.CreateUser(newUser("u1", "a@example.com", "alice")))

		require.NoError(t, s.UpdateLastLogin("u1"))

		user, err := s.GetUserByID("u1")
		require.NoError(t, err)
		assert.NotNil(t, user.LastLoginAt)
	})

	t.Run("用户不存在", func(t *testing.T) {
		s := NewStore()

		_, err := s.GetUserByID("missing")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)

		err = s.UpdateLastLogin("missing")
		assert.ErrorIs(t, err, storage.ErrUserNotFound)
	})
}

func TestStore_RateLimit(t *testing.T) {
	t.Run("计数递增", func(t *testing.T) {
		s := NewStore()

		n1, err := s.IncrementRateLimit("user:u1", time.Minute)
		require.NoError(t, err)
		n2, err := s.IncrementRateLimit("user:u1", time.Minute)
		require.NoError(t, err)

		assert.Equal(t, int64(1), n1)
		assert.Equal(t, int64(2), n2)

		current, err := s.GetRateLimit("user:u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), current)
	})

	t.Run("不同键互不影响", func(t *testing.T) {
		s := NewStore()

		_, err := s.IncrementRateLimit("user:u1", time.Minute)
		require.NoError(t, err)

		current, err := s.GetRateLimit("user:u2")
		require.NoError(t, err)
		assert.Equal(t, int64(0), current)
	})

	t.Run("窗口过期后重新计数", func(t *testing.T) {
		s := NewStore()

		_, err := s.IncrementRateLimit("user:u1", -time.Second)
		require.NoError(t, err)

		n, err := s.IncrementRateLimit("user:u1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestStore_Blacklist(t *testing.T) {
	t.Run("加入黑名单后命中", func(t *testing.T) {
		s := NewStore()

		require.NoError(t, s.AddToBlacklist("jti-1", time.Minute))

		revoked, err := s.IsBlacklisted("jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("未加入黑名单不命中", func(t *testing.T) {
		s := NewStore()

		revoked, err := s.IsBlacklisted("jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("过期条目不命中", func(t *testing.T) {
		s := NewStore()

		require.NoError(t, s.AddToBlacklist("jti-3", -time.Second))

		revoked, err := s.IsBlacklisted("jti-3")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}
