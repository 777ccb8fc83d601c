package app

import (
	"fmt"
	"path/filepath"
	"time"

	"support_chat_service/internal/support/repository"
	"support_chat_service/pkg/database"
	"support_chat_service/pkg/logger"
	"support_chat_service/pkg/middlewares"

	errprocess "support_chat_service/pkg/err"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SupportHandler REST surface over the conversation workflows
type SupportHandler struct {
	convUC *ConversationUseCase
	minio  *database.MinIOClient
}

// NewSupportHandler create SupportHandler. minio may be nil, the upload route
// then answers 503.
func NewSupportHandler(convUC *ConversationUseCase, minio *database.MinIOClient) *SupportHandler {
	return &SupportHandler{
		convUC: convUC,
		minio:  minio,
	}
}

func (h *SupportHandler) caller(c *fiber.Ctx) (Caller, error) {
	userID, ok := c.Locals(middlewares.TokenUserID).(string)
	if !ok || userID == "" {
		return Caller{}, fmt.Errorf("c.Locals(%s) is nil", middlewares.TokenUserID)
	}
	role, _ := c.Locals(middlewares.TokenRole).(string)
	tenantID, _ := c.Locals(middlewares.TokenTenantID).(string)
	return Caller{ID: userID, Role: role, TenantID: tenantID}, nil
}

// errStatus map the error taxonomy onto HTTP statuses
func errStatus(err error) int {
	switch {
	case errprocess.IsKind(err, errprocess.KindValidation):
		return fiber.StatusBadRequest
	case errprocess.IsKind(err, errprocess.KindNotFound):
		return fiber.StatusNotFound
	case errprocess.IsKind(err, errprocess.KindForbidden):
		return fiber.StatusForbidden
	case errprocess.IsKind(err, errprocess.KindTransientStore):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// StartConversation resolve the caller's active conversation
// @Summary Resolve the caller's active support conversation
// @Description Returns the active conversation, creating one when none exists
// @Tags Support
// @Produce json
// @Success 200 {object} domain.Conversation
// @Failure 400 {object} string "request error"
// @Router /support/conversations/start [post]
func (h *SupportHandler) StartConversation(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	conv, err := h.convUC.ResolveOrCreate(c.Context(), caller)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(conv)
}

// ListConversations list threads visible to the caller
// @Summary List support conversations
// @Description Staff see all threads matching the filter, end users their own
// @Tags Support
// @Produce json
// @Param status query string false "active, archived or blocked"
// @Param priority query string false "normal, high or urgent"
// @Param tenant_id query string false "tenant filter"
// @Param role query string false "end-user role filter"
// @Success 200 {array} domain.Conversation
// @Router /support/conversations [get]
func (h *SupportHandler) ListConversations(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	q := repository.ConversationQuery{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		TenantID: c.Query("tenant_id"),
		UserRole: c.Query("role"),
	}

	convs, err := h.convUC.ListConversations(c.Context(), caller, q)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"conversations": convs})
}

// History page messages of a thread
// @Summary Get conversation history
// @Tags Support
// @Produce json
// @Param id path string true "conversation id"
// @Param after_seq query int false "return messages after this sequence"
// @Success 200 {array} domain.Message
// @Router /support/conversations/{id}/messages [get]
func (h *SupportHandler) History(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	afterSeq := int64(c.QueryInt("after_seq", 0))
	msgs, err := h.convUC.History(c.Context(), caller, c.Params("id"), afterSeq)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// SendMessage append a message over REST, same path the websocket uses
// @Summary Send a support message
// @Tags Support
// @Accept json
// @Produce json
// @Success 200 {object} domain.Message
// @Router /support/messages [post]
func (h *SupportHandler) SendMessage(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	type request struct {
		ConversationID string `json:"conversation_id"`
		Content        string `json:"content"`
		Kind           string `json:"kind"`
		FileURL        string `json:"file_url"`
		Nonce          string `json:"nonce"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	msg, conv, err := h.convUC.RecordInboundMessage(c.Context(), caller, req.ConversationID, req.Content, req.Kind, req.FileURL, req.Nonce)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": msg, "conversation_id": conv.ID})
}

// MarkSeen mark a thread read for the caller
// @Summary Mark conversation seen
// @Tags Support
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} string "seen count"
// @Router /support/conversations/{id}/seen [post]
func (h *SupportHandler) MarkSeen(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	count, err := h.convUC.MarkSeen(c.Context(), caller, c.Params("id"))
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"seen_count": count})
}

// CloseConversation archive a thread, staff only
// @Summary Close a conversation
// @Tags Support
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.Conversation
// @Router /support/conversations/{id}/close [post]
func (h *SupportHandler) CloseConversation(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	conv, err := h.convUC.CloseConversation(c.Context(), caller, c.Params("id"))
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(conv)
}

// SetPriority change triage priority, staff only
// @Summary Set conversation priority
// @Tags Support
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.Conversation
// @Router /support/conversations/{id}/priority [post]
func (h *SupportHandler) SetPriority(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	type request struct {
		Priority string `json:"priority"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	conv, err := h.convUC.SetPriority(c.Context(), caller, c.Params("id"), req.Priority)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(conv)
}

// UpdateStatus move a thread between active, archived and blocked, staff only
// @Summary Update conversation status
// @Tags Support
// @Accept json
// @Produce json
// @Param id path string true "conversation id"
// @Success 200 {object} domain.Conversation
// @Router /support/conversations/{id}/status [post]
func (h *SupportHandler) UpdateStatus(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	type request struct {
		Status string `json:"status"`
	}
	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	conv, err := h.convUC.UpdateStatus(c.Context(), caller, c.Params("id"), req.Status)
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(conv)
}

// Upload store an attachment and return the URL to reference in a file message
// @Summary Upload a support attachment
// @Tags Support
// @Accept mpfd
// @Produce json
// @Param file formData file true "attachment"
// @Success 200 {object} string "file url"
// @Router /support/upload [post]
func (h *SupportHandler) Upload(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if h.minio == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "file storage is not configured"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	defer src.Close()

	objectName := fmt.Sprintf("support/%s/%s%s", caller.ID, uuid.New().String(), filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")

	if err := h.minio.UploadStream(c.Context(), objectName, src, fileHeader.Size, contentType); err != nil {
		logger.Log.Error("upload failed", zap.String("object", objectName), zap.String("err", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
	}

	url, err := h.minio.PresignGetURL(c.Context(), objectName, 24*time.Hour)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	logger.Log.Info("attachment uploaded", zap.String("user", caller.ID), zap.String("object", objectName))
	return c.JSON(fiber.Map{"file_url": url, "object": objectName})
}
