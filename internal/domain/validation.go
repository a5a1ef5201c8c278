package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail   = errors.New("invalid email format")
	ErrEmailTooLong   = errors.New("email address too long")
	ErrInvalidPayload = errors.New("invalid payload")
)

// 验证常量
const (
	// RFC 5322 邮箱地址最大长度
	MaxEmailLength = 254

	// 信件正文长度限制（按字符计，不按字节）
	MinBodyLength = 30
	MaxBodyLength = 5000

	// 主题最大长度
	MaxSubjectLength = 200

	// 封存状态下披露的正文前缀长度（按字符计）
	PreviewLength = 10
)

// ValidateEmail 校验邮箱地址格式
func ValidateEmail(email string) bool {
	if email == "" || len(email) > MaxEmailLength {
		return false
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}

	// 域名必须带点且不能以点开头结尾
	domain := parts[1]
	if !strings.Contains(domain, ".") ||
		strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}

	_, err := mail.ParseAddress(email)
	return err == nil
}

// ValidateSubject 校验主题长度与控制字符
func ValidateSubject(subject string) bool {
	if utf8.RuneCountInString(subject) > MaxSubjectLength {
		return false
	}
	for _, r := range subject {
		if r < 32 {
			return false
		}
	}
	return true
}

// ValidateBody 校验正文长度，按字符计数
func ValidateBody(body string) bool {
	n := utf8.RuneCountInString(body)
	return n >= MinBodyLength && n <= MaxBodyLength
}

// SendLetterRequest 发送信件的请求结构
type SendLetterRequest struct {
	RecipientUserID string `json:"recipientUserId"`          // 收件人用户 ID（必填）
	Recipient       string `json:"recipient,omitempty"`      // 收件人邮箱（选填，缺省时通过身份服务解析）
	Subject         string `json:"subject,omitempty"`        // 主题（选填）
	Body            string `json:"body"`                     // 正文，30-5000 字符
	OpenAt          string `json:"openAt"`                   // 解封时间，RFC3339 或日期格式
	Template        string `json:"template,omitempty"`       // 排版模板，缺省为 default
}

// openAt 接受的时间格式
var openAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseOpenAt 解析解封时间字符串
func ParseOpenAt(value string) (time.Time, error) {
	for _, layout := range openAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidPayload
}

// Validate 校验请求并解析解封时间，返回字段级错误明细。
// 明细为空表示校验通过。
func (r *SendLetterRequest) Validate() (time.Time, map[string]string) {
	fields := make(map[string]string)

	if strings.TrimSpace(r.RecipientUserID) == "" {
		fields["recipientUserId"] = "recipient user id is required"
	}
	if r.Recipient != "" && !ValidateEmail(r.Recipient) {
		fields["recipient"] = "invalid email address"
	}
	if !ValidateSubject(r.Subject) {
		fields["subject"] = "subject must be at most 200 characters"
	}
	if !ValidateBody(r.Body) {
		fields["body"] = "body must be between 30 and 5000 characters"
	}
	if r.Template != "" && !ValidTemplate(r.Template) {
		fields["template"] = "unknown template"
	}

	var openAt time.Time
	if r.OpenAt == "" {
		fields["openAt"] = "open time is required"
	} else {
		parsed, err := ParseOpenAt(r.OpenAt)
		if err != nil {
			fields["openAt"] = "open time is not a valid timestamp"
		} else {
			openAt = parsed
		}
	}

	if len(fields) == 0 {
		return openAt, nil
	}
	return openAt, fields
}
