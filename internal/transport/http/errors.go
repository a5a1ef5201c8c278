package httptransport

import (
	"timeletter/backend/internal/auth"
	"timeletter/backend/internal/service"
	"timeletter/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// Letter 错误
	storage.ErrLetterNotFound:         "信件不存在或无权查看",
	service.ErrNotOwner:               "信件不存在或无权查看",
	service.ErrReadReceiptFailed:      "记录已读回执失败",
	service.ErrResolveRecipientFailed: "解析收件人邮箱失败",
	service.ErrRecipientNoEmail:       "收件人没有可用的邮箱地址",

	// Auth 错误
	auth.ErrInvalidEmail:       "邮箱格式无效",
	auth.ErrInvalidPassword:    "密码长度需为8-128个字符",
	auth.ErrEmailExists:        "该邮箱已被注册",
	auth.ErrUsernameExists:     "该用户名已被使用",
	auth.ErrInvalidCredentials: "用户名或密码错误",
	auth.ErrUserInactive:       "账户已被禁用",
	storage.ErrUserNotFound:    "用户不存在",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	if msg, ok := errorMessages[err]; ok {
		return msg
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"
	MsgInvalidPayload = "提交内容不符合要求"

	// 认证相关
	MsgAuthRequired       = "需要登录认证"
	MsgInvalidCredentials = "用户名或密码错误"
	MsgTokenExpired       = "登录已过期，请重新登录"
	MsgTokenInvalid       = "无效的访问令牌"

	// 信件相关。查询路径上 ID 无效、信件不存在、非收件人三种情况
	// 统一使用同一条消息，避免向非收件人泄露信件是否存在。
	MsgLetterUnavailable = "信件不存在或无权查看"
	MsgLetterSendFailed  = "发送信件失败"
	MsgLetterListFailed  = "获取信件列表失败"
	MsgLetterGetFailed   = "获取信件失败"
	MsgRecipientNotFound = "无法确定收件人邮箱"

	// 用户相关
	MsgUserNotFound  = "用户不存在"
	MsgUserGetFailed = "获取用户信息失败"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
