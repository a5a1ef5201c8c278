package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected bool
	}{
		{"Valid email", "test@example.com", true},
		{"Valid email with subdomain", "user@mail.example.com", true},
		{"Valid email with plus", "user+tag@example.com", true},
		{"Invalid email - no @", "testexample.com", false},
		{"Invalid email - no domain", "test@", false},
		{"Invalid email - no local part", "@example.com", false},
		{"Invalid email - no dot in domain", "test@localhost", false},
		{"Invalid email - domain starts with dot", "test@.example.com", false},
		{"Invalid email - empty", "", false},
		{"Invalid email - spaces", "test @example.com", false},
		{"Invalid email - too long", strings.Repeat("a", 250) + "@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateEmail(tt.email)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidateSubject(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		expected bool
	}{
		{"空主题合法", "", true},
		{"普通主题", "致未来的自己", true},
		{"恰好200个字符", strings.Repeat("字", 200), true},
		{"超过200个字符", strings.Repeat("字", 201), false},
		{"包含控制字符", "hello\nworld", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSubject(tt.subject))
		})
	}
}

func TestValidateBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected bool
	}{
		{"29个字符不足下限", strings.Repeat("a", 29), false},
		{"恰好30个字符", strings.Repeat("a", 30), true},
		{"恰好5000个字符", strings.Repeat("a", 5000), true},
		{"超过5000个字符", strings.Repeat("a", 5001), false},
		{"多字节字符按字符计数", strings.Repeat("时", 30), true},
		{"多字节字符29个不足下限", strings.Repeat("时", 29), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateBody(tt.body))
		})
	}
}

func TestParseOpenAt(t *testing.T) {
	t.Run("RFC3339格式", func(t *testing.T) {
		parsed, err := ParseOpenAt("2027-01-02T15:04:05Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2027, 1, 2, 15, 4, 5, 0, time.UTC), parsed)
	})

	t.Run("无时区的日期时间格式", func(t *testing.T) {
		parsed, err := ParseOpenAt("2027-01-02T15:04:05")
		require.NoError(t, err)
		assert.Equal(t, 2027, parsed.Year())
	})

	t.Run("仅日期格式", func(t *testing.T) {
		parsed, err := ParseOpenAt("2027-01-02")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC), parsed)
	})

	t.Run("无法解析的字符串", func(t *testing.T) {
		_, err := ParseOpenAt("not-a-date")
		assert.Error(t, err)
	})
}

func TestSendLetterRequest_Validate(t *testing.T) {
	valid := func() SendLetterRequest {
		return SendLetterRequest{
			RecipientUserID: "user_2",
			Recipient:       "recipient@example.com",
			Subject:         "你好",
			Body:            strings.Repeat("a", 40),
			OpenAt:          "2027-06-01T00:00:00Z",
		}
	}

	t.Run("合法请求通过校验", func(t *testing.T) {
		req := valid()
		openAt, fields := req.Validate()
		assert.Nil(t, fields)
		assert.Equal(t, 2027, openAt.Year())
	})

	t.Run("收件人用户ID必填", func(t *testing.T) {
		req := valid()
		req.RecipientUserID = "  "
		_, fields := req.Validate()
		assert.Contains(t, fields, "recipientUserId")
	})

	t.Run("收件人邮箱选填但需合法", func(t *testing.T) {
		req := valid()
		req.Recipient = ""
		_, fields := req.Validate()
		assert.Nil(t, fields)

		req.Recipient = "not-an-email"
		_, fields = req.Validate()
		assert.Contains(t, fields, "recipient")
	})

	t.Run("解封时间必填", func(t *testing.T) {
		req := valid()
		req.OpenAt = ""
		_, fields := req.Validate()
		assert.Contains(t, fields, "openAt")
	})

	t.Run("未知模板被拒绝", func(t *testing.T) {
		req := valid()
		req.Template = "nonexistent"
		_, fields := req.Validate()
		assert.Contains(t, fields, "template")
	})

	t.Run("多个字段错误一并返回", func(t *testing.T) {
		req := SendLetterRequest{Body: "short", OpenAt: "bad"}
		_, fields := req.Validate()
		assert.Contains(t, fields, "recipientUserId")
		assert.Contains(t, fields, "body")
		assert.Contains(t, fields, "openAt")
	})
}

func TestLetterLocked(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		openAt   time.Time
		expected bool
	}{
		{"解封时间在未来视为封存", now.Add(time.Second), true},
		{"解封时间等于当前时刻视为已解封", now, false},
		{"解封时间在过去视为已解封", now.Add(-time.Second), false},
		{"零值解封时间视为已解封", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			letter := &Letter{OpenAt: tt.openAt}
			assert.Equal(t, tt.expected, letter.Locked(now))
		})
	}
}

func TestLetterOwnedBy(t *testing.T) {
	recipientID := "user_2"

	t.Run("收件人ID匹配", func(t *testing.T) {
		letter := &Letter{RecipientID: &recipientID, RecipientEmail: "r@example.com"}
		assert.True(t, letter.OwnedBy(Requester{UserID: "user_2", Email: "other@example.com"}))
	})

	t.Run("收件邮箱匹配", func(t *testing.T) {
		letter := &Letter{RecipientID: &recipientID, RecipientEmail: "r@example.com"}
		assert.True(t, letter.OwnedBy(Requester{UserID: "user_9", Email: "r@example.com"}))
	})

	t.Run("都不匹配", func(t *testing.T) {
		letter := &Letter{RecipientID: &recipientID, RecipientEmail: "r@example.com"}
		assert.False(t, letter.OwnedBy(Requester{UserID: "user_9", Email: "other@example.com"}))
	})

	t.Run("空邮箱不参与匹配", func(t *testing.T) {
		letter := &Letter{RecipientID: &recipientID, RecipientEmail: ""}
		assert.False(t, letter.OwnedBy(Requester{UserID: "user_9", Email: ""}))
	})
}
