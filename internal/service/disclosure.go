package service

import (
	"errors"
	"time"

	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/storage"
)

var (
	// ErrNotOwner 请求者不是信件的收件人
	ErrNotOwner = errors.New("requester is not the letter recipient")
	// ErrReadReceiptFailed 已读回执写入失败
	ErrReadReceiptFailed = errors.New("failed to record read receipt")
)

// DisclosureResult 信件披露结果，正文按封存状态投影。
type DisclosureResult struct {
	ID        string     `json:"id"`
	SentAt    time.Time  `json:"sentAt"`
	Subject   string     `json:"subject"`
	OpenAt    time.Time  `json:"openAt"`
	Body      string     `json:"body"`
	Template  string     `json:"template"`
	Recipient string     `json:"recipient"`
	Sender    string     `json:"sender"`
	SenderID  string     `json:"senderId"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
}

// Disclose 对信件执行披露判定。给定信件、请求者身份与评估时刻，
// 检查收件人归属、计算封存状态并投影正文，同时返回是否需要写入已读回执。
//
// 纯函数：时间与身份全部来自参数，不读取任何全局状态。
// 回执写入本身由调用方执行，写入时间取写入时刻而非评估时刻。
func Disclose(letter *domain.Letter, requester domain.Requester, now time.Time) (*DisclosureResult, bool, error) {
	if letter == nil {
		return nil, false, storage.ErrLetterNotFound
	}
	if !letter.OwnedBy(requester) {
		return nil, false, ErrNotOwner
	}

	result := project(letter, now)
	result.ReadAt = letter.ReadAt

	needsReceipt := letter.ReadAt == nil
	return result, needsReceipt, nil
}

// project 按封存状态投影信件。封存中仅披露正文前 10 个字符，
// 解封后披露全文。不含 readAt 字段，列表视图直接使用。
func project(letter *domain.Letter, now time.Time) *DisclosureResult {
	body := letter.Body
	if letter.Locked(now) {
		body = previewBody(body)
	}

	recipientID := ""
	if letter.RecipientID != nil {
		recipientID = *letter.RecipientID
	}

	return &DisclosureResult{
		ID:        letter.ID,
		SentAt:    letter.CreatedAt,
		Subject:   letter.Subject,
		OpenAt:    letter.OpenAt,
		Body:      body,
		Template:  letter.Template,
		Recipient: domain.DisplayIdentity(recipientID, letter.RecipientEmail),
		Sender:    domain.DisplayIdentity(letter.SenderID, letter.SenderEmail),
		SenderID:  letter.SenderID,
	}
}

// previewBody 截取正文前缀，按字符计数而非字节。
// 正文不足前缀长度时原样返回，不做填充。
func previewBody(body string) string {
	runes := []rune(body)
	if len(runes) <= domain.PreviewLength {
		return body
	}
	return string(runes[:domain.PreviewLength])
}
