package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timeletter/backend/internal/config"
	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/identity"
	"timeletter/backend/internal/monitoring"
	"timeletter/backend/internal/storage"
)

var (
	// ErrResolveRecipientFailed 身份服务解析收件人邮箱失败
	ErrResolveRecipientFailed = errors.New("failed to resolve recipient email")
	// ErrRecipientNoEmail 收件人没有任何邮箱地址
	ErrRecipientNoEmail = errors.New("recipient has no email address")
)

// ValidationError 表示提交校验失败，携带字段级错误明细。
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "invalid payload"
}

// LetterService 封装信件提交与披露逻辑。
type LetterService struct {
	repo     storage.LetterRepository
	resolver identity.Resolver
	cfg      *config.Config
	metrics  *monitoring.Metrics // 业务指标（可选）
}

// NewLetterService 创建信件业务服务。
func NewLetterService(repo storage.LetterRepository, resolver identity.Resolver, cfg *config.Config) *LetterService {
	return &LetterService{
		repo:     repo,
		resolver: resolver,
		cfg:      cfg,
	}
}

// SetMetrics 设置业务指标收集器
func (s *LetterService) SetMetrics(m *monitoring.Metrics) {
	s.metrics = m
}

// SendLetterInput 定义发送信件的输入。
type SendLetterInput struct {
	Request domain.SendLetterRequest
	Sender  domain.Requester // 已认证的发件人身份，来自令牌而非请求体
}

// Send 校验并持久化一封新信件。
//
// 收件人邮箱缺省时通过身份服务解析（主邮箱优先）。解封时间只要求
// 可解析；天数范围默认仅由客户端约束，服务端强制需显式开启配置。
func (s *LetterService) Send(ctx context.Context, input SendLetterInput) (*domain.Letter, error) {
	openAt, fields := input.Request.Validate()
	if fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	now := time.Now().UTC()

	if s.cfg.Letter.EnforceHorizon {
		min := now.AddDate(0, 0, s.cfg.Letter.MinHorizonDays)
		max := now.AddDate(0, 0, s.cfg.Letter.MaxHorizonDays)
		if openAt.Before(min) || openAt.After(max) {
			return nil, &ValidationError{Fields: map[string]string{
				"openAt": fmt.Sprintf("open time must be between %d and %d days from now",
					s.cfg.Letter.MinHorizonDays, s.cfg.Letter.MaxHorizonDays),
			}}
		}
	}

	recipientEmail := input.Request.Recipient
	if recipientEmail == "" {
		resolved, err := s.resolver.ResolveEmail(ctx, input.Request.RecipientUserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResolveRecipientFailed, err)
		}
		if resolved == "" {
			return nil, ErrRecipientNoEmail
		}
		recipientEmail = resolved
	}

	template := input.Request.Template
	if template == "" {
		template = domain.DefaultTemplate
	}

	recipientID := input.Request.RecipientUserID
	letter := &domain.Letter{
		ID:             uuid.NewString(),
		SenderID:       input.Sender.UserID,
		SenderEmail:    input.Sender.Email,
		RecipientID:    &recipientID,
		RecipientEmail: recipientEmail,
		Subject:        input.Request.Subject,
		Body:           input.Request.Body,
		CreatedAt:      now,
		OpenAt:         openAt.UTC(),
		Template:       template,
	}

	if err := s.repo.SaveLetter(letter); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLetterSent()
	}
	return letter, nil
}

// Get 获取单封信件并执行完整披露流程，包括首读回执写入。
//
// 回执写入失败时整个请求失败，已计算的披露结果不返回给调用方。
// 回执时间取写入时刻，可能晚于披露评估时刻 now。
func (s *LetterService) Get(id string, requester domain.Requester, now time.Time) (*DisclosureResult, error) {
	letter, err := s.repo.GetLetter(id)
	if err != nil {
		return nil, err
	}

	result, needsReceipt, err := Disclose(letter, requester, now)
	if err != nil {
		return nil, err
	}

	if needsReceipt {
		readAt, err := s.repo.MarkLetterRead(letter.ID, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReadReceiptFailed, err)
		}
		result.ReadAt = &readAt
		if s.metrics != nil {
			s.metrics.RecordReadReceipt()
		}
	}

	if s.metrics != nil {
		s.metrics.RecordLetterDisclosed(letter.Locked(now))
	}
	return result, nil
}

// List 列出请求者名下的信件，按创建时间倒序。
// 列表视图不写已读回执，也不返回 readAt 字段。
func (s *LetterService) List(requester domain.Requester, now time.Time) ([]DisclosureResult, error) {
	letters, err := s.repo.ListLettersByRecipient(requester.UserID, requester.Email)
	if err != nil {
		return nil, err
	}

	results := make([]DisclosureResult, 0, len(letters))
	for i := range letters {
		results = append(results, *project(&letters[i], now))
	}
	return results, nil
}
