package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeletter/backend/internal/config"
	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/storage"
	"timeletter/backend/internal/storage/memory"
)

// fakeResolver 模拟身份服务的邮箱解析
type fakeResolver struct {
	email string
	err   error
	calls int
}

func (r *fakeResolver) ResolveEmail(ctx context.Context, userID string) (string, error) {
	r.calls++
	return r.email, r.err
}

// failingReceiptRepo 回执写入必定失败的存储
type failingReceiptRepo struct {
	*memory.Store
}

func (r *failingReceiptRepo) MarkLetterRead(id string, readAt time.Time) (time.Time, error) {
	return time.Time{}, errors.New("write failed")
}

func testConfig() *config.Config {
	return &config.Config{
		Letter: config.LetterConfig{
			MinHorizonDays: 1,
			MaxHorizonDays: 365,
		},
	}
}

func validRequest() domain.SendLetterRequest {
	return domain.SendLetterRequest{
		RecipientUserID: "user_2",
		Recipient:       "recipient@example.com",
		Subject:         "一封来自过去的信",
		Body:            "this is a letter body with enough characters",
		OpenAt:          time.Now().UTC().Add(7 * 24 * time.Hour).Format(time.RFC3339),
	}
}

func TestLetterService_Send(t *testing.T) {
	sender := domain.Requester{UserID: "user_1", Email: "sender@example.com"}

	t.Run("发送信件成功", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())

		letter, err := svc.Send(context.Background(), SendLetterInput{
			Request: validRequest(),
			Sender:  sender,
		})

		require.NoError(t, err)
		assert.NotEmpty(t, letter.ID)
		assert.Equal(t, "user_1", letter.SenderID)
		assert.Equal(t, "sender@example.com", letter.SenderEmail)
		assert.Equal(t, "recipient@example.com", letter.RecipientEmail)
		assert.Equal(t, domain.DefaultTemplate, letter.Template)
		assert.Nil(t, letter.ReadAt)

		// 信件已落库
		stored, err := store.GetLetter(letter.ID)
		require.NoError(t, err)
		assert.Equal(t, letter.Body, stored.Body)
	})

	t.Run("发件人身份来自令牌而非请求体", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())

		letter, err := svc.Send(context.Background(), SendLetterInput{
			Request: validRequest(),
			Sender:  domain.Requester{UserID: "user_7", Email: "someone@example.com"},
		})

		require.NoError(t, err)
		assert.Equal(t, "user_7", letter.SenderID)
		assert.Equal(t, "someone@example.com", letter.SenderEmail)
	})

	t.Run("正文29个字符校验失败", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())

		req := validRequest()
		req.Body = "only twenty-nine characters!!" // 29

		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})

		assert.Nil(t, letter)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "body")
	})

	t.Run("正文30个字符校验通过", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())

		req := validRequest()
		req.Body = "exactly thirty characters here" // 30

		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})

		require.NoError(t, err)
		assert.Equal(t, req.Body, letter.Body)
	})

	t.Run("收件人邮箱缺省时通过身份服务解析", func(t *testing.T) {
		store := memory.NewStore()
		resolver := &fakeResolver{email: "primary@example.com"}
		svc := NewLetterService(store, resolver, testConfig())

		req := validRequest()
		req.Recipient = ""

		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})

		require.NoError(t, err)
		assert.Equal(t, "primary@example.com", letter.RecipientEmail)
		assert.Equal(t, 1, resolver.calls)
	})

	t.Run("请求体已提供邮箱时不调用身份服务", func(t *testing.T) {
		store := memory.NewStore()
		resolver := &fakeResolver{email: "primary@example.com"}
		svc := NewLetterService(store, resolver, testConfig())

		_, err := svc.Send(context.Background(), SendLetterInput{Request: validRequest(), Sender: sender})

		require.NoError(t, err)
		assert.Equal(t, 0, resolver.calls)
	})

	t.Run("身份服务失败时返回解析错误", func(t *testing.T) {
		store := memory.NewStore()
		resolver := &fakeResolver{err: errors.New("upstream unavailable")}
		svc := NewLetterService(store, resolver, testConfig())

		req := validRequest()
		req.Recipient = ""

		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})

		assert.Nil(t, letter)
		assert.ErrorIs(t, err, ErrResolveRecipientFailed)
	})

	t.Run("收件人没有邮箱时返回错误", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{email: ""}, testConfig())

		req := validRequest()
		req.Recipient = ""

		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})

		assert.Nil(t, letter)
		assert.ErrorIs(t, err, ErrRecipientNoEmail)
	})

	t.Run("默认不强制解封时间范围", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())

		req := validRequest()
		req.OpenAt = "2020-01-01" // 过去的时间

		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})

		require.NoError(t, err)
		assert.False(t, letter.Locked(time.Now().UTC()))
	})

	t.Run("开启强制范围后过去的解封时间被拒绝", func(t *testing.T) {
		store := memory.NewStore()
		cfg := testConfig()
		cfg.Letter.EnforceHorizon = true
		svc := NewLetterService(store, &fakeResolver{}, cfg)

		req := validRequest()
		req.OpenAt = "2020-01-01"

		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})

		assert.Nil(t, letter)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "openAt")
	})

	t.Run("开启强制范围后超出最大天数被拒绝", func(t *testing.T) {
		store := memory.NewStore()
		cfg := testConfig()
		cfg.Letter.EnforceHorizon = true
		svc := NewLetterService(store, &fakeResolver{}, cfg)

		req := validRequest()
		req.OpenAt = time.Now().UTC().AddDate(0, 0, 400).Format(time.RFC3339)

		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})

		assert.Nil(t, letter)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "openAt")
	})
}

func TestLetterService_Get(t *testing.T) {
	sender := domain.Requester{UserID: "user_1", Email: "sender@example.com"}
	owner := domain.Requester{UserID: "user_2", Email: "recipient@example.com"}

	sendLetter := func(t *testing.T, svc *LetterService, openAt time.Time) *domain.Letter {
		req := validRequest()
		req.OpenAt = openAt.Format(time.RFC3339)
		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})
		require.NoError(t, err)
		return letter
	}

	t.Run("封存7天的信件只返回预览", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())
		now := time.Now().UTC()
		letter := sendLetter(t, svc, now.Add(7*24*time.Hour))

		result, err := svc.Get(letter.ID, owner, now)

		require.NoError(t, err)
		assert.Equal(t, "this is a ", result.Body)
	})

	t.Run("首次读取写入已读回执", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())
		now := time.Now().UTC()
		letter := sendLetter(t, svc, now.Add(-time.Hour))

		result, err := svc.Get(letter.ID, owner, now)

		require.NoError(t, err)
		require.NotNil(t, result.ReadAt)

		stored, err := store.GetLetter(letter.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ReadAt)
		assert.Equal(t, *result.ReadAt, *stored.ReadAt)
	})

	t.Run("第二次读取保留首次回执时间", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())
		now := time.Now().UTC()
		letter := sendLetter(t, svc, now.Add(-time.Hour))

		first, err := svc.Get(letter.ID, owner, now)
		require.NoError(t, err)

		second, err := svc.Get(letter.ID, owner, now.Add(time.Minute))
		require.NoError(t, err)

		require.NotNil(t, second.ReadAt)
		assert.Equal(t, *first.ReadAt, *second.ReadAt)
	})

	t.Run("非收件人读取不写回执", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())
		now := time.Now().UTC()
		letter := sendLetter(t, svc, now.Add(-time.Hour))

		stranger := domain.Requester{UserID: "user_9", Email: "other@example.com"}
		result, err := svc.Get(letter.ID, stranger, now)

		assert.ErrorIs(t, err, ErrNotOwner)
		assert.Nil(t, result)

		stored, err := store.GetLetter(letter.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ReadAt)
	})

	t.Run("信件不存在返回未找到", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())

		result, err := svc.Get("missing-id", owner, time.Now().UTC())

		assert.ErrorIs(t, err, storage.ErrLetterNotFound)
		assert.Nil(t, result)
	})

	t.Run("回执写入失败时整个请求失败", func(t *testing.T) {
		store := memory.NewStore()
		repo := &failingReceiptRepo{Store: store}
		svc := NewLetterService(repo, &fakeResolver{}, testConfig())
		now := time.Now().UTC()

		// 直接落库，绕过服务层的回执写入
		recipientID := "user_2"
		letter := &domain.Letter{
			ID:             "letter-receipt",
			SenderID:       "user_1",
			RecipientID:    &recipientID,
			RecipientEmail: "recipient@example.com",
			Body:           "this is a letter body with enough characters",
			CreatedAt:      now.Add(-time.Hour),
			OpenAt:         now.Add(-time.Minute),
			Template:       domain.DefaultTemplate,
		}
		require.NoError(t, store.SaveLetter(letter))

		result, err := svc.Get(letter.ID, owner, now)

		assert.ErrorIs(t, err, ErrReadReceiptFailed)
		assert.Nil(t, result)
	})
}

func TestLetterService_List(t *testing.T) {
	sender := domain.Requester{UserID: "user_1", Email: "sender@example.com"}
	owner := domain.Requester{UserID: "user_2", Email: "recipient@example.com"}

	t.Run("列表不写回执且不含readAt", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())
		now := time.Now().UTC()

		req := validRequest()
		req.OpenAt = now.Add(-time.Hour).Format(time.RFC3339)
		letter, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})
		require.NoError(t, err)

		results, err := svc.List(owner, now)

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Nil(t, results[0].ReadAt)

		stored, err := store.GetLetter(letter.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ReadAt)
	})

	t.Run("列表按锁定状态投影每封信", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())
		now := time.Now().UTC()

		open := validRequest()
		open.OpenAt = now.Add(-time.Hour).Format(time.RFC3339)
		_, err := svc.Send(context.Background(), SendLetterInput{Request: open, Sender: sender})
		require.NoError(t, err)

		locked := validRequest()
		locked.OpenAt = now.Add(24 * time.Hour).Format(time.RFC3339)
		_, err = svc.Send(context.Background(), SendLetterInput{Request: locked, Sender: sender})
		require.NoError(t, err)

		results, err := svc.List(owner, now)

		require.NoError(t, err)
		require.Len(t, results, 2)

		bodies := []string{results[0].Body, results[1].Body}
		assert.Contains(t, bodies, "this is a letter body with enough characters")
		assert.Contains(t, bodies, "this is a ")
	})

	t.Run("与请求者无关的信件不会出现", func(t *testing.T) {
		store := memory.NewStore()
		svc := NewLetterService(store, &fakeResolver{}, testConfig())
		now := time.Now().UTC()

		req := validRequest()
		req.OpenAt = now.Add(time.Hour).Format(time.RFC3339)
		_, err := svc.Send(context.Background(), SendLetterInput{Request: req, Sender: sender})
		require.NoError(t, err)

		results, err := svc.List(domain.Requester{UserID: "user_9", Email: "other@example.com"}, now)

		require.NoError(t, err)
		assert.Empty(t, results)
	})
}
