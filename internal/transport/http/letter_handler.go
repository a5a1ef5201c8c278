package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"timeletter/backend/internal/domain"
	"timeletter/backend/internal/service"
	"timeletter/backend/internal/storage"
)

// LetterHandler 处理信件相关的 HTTP 请求
type LetterHandler struct {
	letters *service.LetterService
	log     *zap.Logger
}

// NewLetterHandler 创建信件处理器
func NewLetterHandler(letters *service.LetterService, log *zap.Logger) *LetterHandler {
	return &LetterHandler{
		letters: letters,
		log:     log,
	}
}

type letterListResponse struct {
	Items []service.DisclosureResult `json:"items"`
	Count int                        `json:"count"`
}

// sendLetter 发送一封定时信件
//
// POST /v1/letters
func (h *LetterHandler) sendLetter(c *gin.Context) {
	var req domain.SendLetterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	letter, err := h.letters.Send(c.Request.Context(), service.SendLetterInput{
		Request: req,
		Sender:  requesterFrom(c),
	})
	if err != nil {
		var vErr *service.ValidationError
		switch {
		case errors.As(err, &vErr):
			BadRequestWithFields(c, MsgInvalidPayload, vErr.Fields)
		case errors.Is(err, service.ErrRecipientNoEmail):
			BadRequest(c, MsgRecipientNotFound)
		case errors.Is(err, service.ErrResolveRecipientFailed):
			h.log.Error("failed to resolve recipient", zap.Error(err))
			InternalError(c, MsgRecipientNotFound)
		default:
			h.log.Error("failed to send letter", zap.Error(err))
			InternalError(c, MsgLetterSendFailed)
		}
		return
	}

	h.log.Info("letter sent",
		zap.String("letter_id", letter.ID),
		zap.String("sender_id", letter.SenderID),
		zap.Time("open_at", letter.OpenAt),
	)

	Created(c, gin.H{"id": letter.ID})
}

// listLetters 列出当前用户收到的信件
//
// GET /v1/letters
func (h *LetterHandler) listLetters(c *gin.Context) {
	results, err := h.letters.List(requesterFrom(c), time.Now().UTC())
	if err != nil {
		h.log.Error("failed to list letters", zap.Error(err))
		InternalError(c, MsgLetterListFailed)
		return
	}

	Success(c, letterListResponse{
		Items: results,
		Count: len(results),
	})
}

// getLetter 获取单封信件，首次成功读取会写入已读回执
//
// GET /v1/letters/:id
func (h *LetterHandler) getLetter(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		BadRequest(c, MsgLetterUnavailable)
		return
	}

	result, err := h.letters.Get(id, requesterFrom(c), time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrLetterNotFound):
			NotFound(c, MsgLetterUnavailable)
		case errors.Is(err, service.ErrNotOwner):
			Forbidden(c, MsgLetterUnavailable)
		case errors.Is(err, service.ErrReadReceiptFailed):
			h.log.Error("failed to record read receipt",
				zap.String("letter_id", id),
				zap.Error(err),
			)
			InternalError(c, MsgLetterGetFailed)
		default:
			h.log.Error("failed to get letter", zap.Error(err))
			InternalError(c, MsgLetterGetFailed)
		}
		return
	}

	Success(c, gin.H{"letter": result})
}

// requesterFrom 从上下文提取认证中间件注入的请求者身份
func requesterFrom(c *gin.Context) domain.Requester {
	return domain.Requester{
		UserID: c.GetString("userID"),
		Email:  c.GetString("email"),
	}
}
