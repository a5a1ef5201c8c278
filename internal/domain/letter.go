package domain

import "time"

// DefaultTemplate 信件的默认信纸模板
const DefaultTemplate = "default"

// LetterTemplates 可用的信纸模板
var LetterTemplates = []string{"default", "classic", "parchment", "midnight"}

// Letter 表示一封定时信件。创建后内容不可修改，
// 解封时间（OpenAt）之前收件人只能看到正文预览。
type Letter struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	SenderID       string     `json:"senderId" gorm:"type:varchar(64);index"`
	SenderEmail    string     `json:"senderEmail" gorm:"type:varchar(254)"`
	RecipientID    *string    `json:"recipientId" gorm:"type:varchar(64);index"`
	RecipientEmail string     `json:"recipientEmail" gorm:"type:varchar(254);index"`
	Subject        string     `json:"subject" gorm:"type:varchar(200)"`
	Body           string     `json:"body" gorm:"type:text"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"index"`
	OpenAt         time.Time  `json:"openAt"`
	Template       string     `json:"template" gorm:"type:varchar(32)"`
	ReadAt         *time.Time `json:"readAt"`
}

// Locked 判断信件在 now 时刻是否仍处于封存状态。
// 解封时间严格大于 now 才算封存；零值 OpenAt 视为已解封。
func (l *Letter) Locked(now time.Time) bool {
	return l.OpenAt.After(now)
}

// Requester 表示一次请求的已认证身份
type Requester struct {
	UserID string
	Email  string
}

// OwnedBy 判断请求者是否为信件的收件人。
// 收件人 ID 或收件邮箱任一匹配即视为归属。
func (l *Letter) OwnedBy(r Requester) bool {
	if l.RecipientID != nil && *l.RecipientID == r.UserID {
		return true
	}
	return l.RecipientEmail != "" && l.RecipientEmail == r.Email
}

// DisplayIdentity 返回展示用身份标识，邮箱优先，其次为 ID
func DisplayIdentity(id, email string) string {
	if email != "" {
		return email
	}
	return id
}

// ValidTemplate 判断信纸模板是否存在
func ValidTemplate(name string) bool {
	for _, t := range LetterTemplates {
		if t == name {
			return true
		}
	}
	return false
}
