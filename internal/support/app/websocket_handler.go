package app

import (
	"context"
	"encoding/json"
	"time"

	"support_chat_service/internal/support/domain"
	"support_chat_service/pkg/logger"
	"support_chat_service/pkg/middlewares"
	"support_chat_service/pkg/token"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// SupportWebsocketHandler websocket entry point for both end users and staff
type SupportWebsocketHandler struct {
	convUC   *ConversationUseCase
	presence *Presence
}

// NewSupportWebsocketHandler create SupportWebsocketHandler
func NewSupportWebsocketHandler(convUC *ConversationUseCase, presence *Presence) *SupportWebsocketHandler {
	return &SupportWebsocketHandler{
		convUC:   convUC,
		presence: presence,
	}
}

// HandleConnection run one connection until it drops. Every subscription made
// through the session dies with it.
func (h *SupportWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, _ := conn.Locals(middlewares.TokenUserID).(string)
	role, _ := conn.Locals(middlewares.TokenRole).(string)
	tenantID, _ := conn.Locals(middlewares.TokenTenantID).(string)
	logger.Log.Info("websocket handle", zap.String("userID", userID), zap.String("role", role))

	sess := NewSession(conn, userID, role, tenantID)
	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		h.presence.Release(sess)
		logger.Log.Info("websocket close", zap.String("userID", userID))
		conn.Close()
		cancel()
	}()

	//client close is swallowed by fiber, hook it out with SetCloseHandler
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		logger.Log.Infof("Received PONG:", appData)
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// every connection listens on its own identity room right away
	if err := h.presence.Join(sess, domain.UserRoom(userID), func(ev domain.Event) {
		h.forwardEvent(sess, ev)
	}); err != nil {
		logger.Log.Errorf("join identity room failed:", err)
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := sess.Write(websocket.PingMessage, []byte("ping message")); err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, sess, mt, message)
	}
}

func (h *SupportWebsocketHandler) execWebsocketAction(ctx context.Context, sess *Session, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, sess, msg)
	default:
		h.sendError(sess, "", "unknown message type")
	}
}

func (h *SupportWebsocketHandler) textMessageAction(ctx context.Context, sess *Session, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		logger.Log.Errorf("json unmarshal error:", err)
		return
	}

	caller := Caller{ID: sess.Identity, Role: sess.Role, TenantID: sess.TenantID}
	resp := domain.WSResponse{Action: req.Action, Ref: req.Ref, Success: false, Payload: map[string]interface{}{}}

	switch domain.Action(req.Action) {
	case domain.ActionJoin:
		// identity room is joined at connect, ack for clients that send it anyway
		resp.Success = true
		resp.Payload["room"] = domain.UserRoom(sess.Identity)

	case domain.ActionJoinStaff:
		if !token.IsStaff(sess.Role) {
			resp.Error = "staff room is staff only"
			break
		}
		if err := h.presence.Join(sess, domain.StaffRoom(), h.eventForwarder(sess)); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["room"] = domain.StaffRoom()
		}

	case domain.ActionJoinTenant:
		if !token.IsStaff(sess.Role) {
			resp.Error = "tenant room is staff only"
			break
		}
		if req.TenantID == "" {
			resp.Error = "tenant_id is required"
			break
		}
		if err := h.presence.Join(sess, domain.TenantRoom(req.TenantID), h.eventForwarder(sess)); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["room"] = domain.TenantRoom(req.TenantID)
		}

	case domain.ActionJoinConversation:
		conv, msgs, err := h.joinConversation(ctx, sess, caller, req)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["conversation"] = conv
			resp.Payload["messages"] = msgs
		}

	case domain.ActionLeaveConversation:
		h.presence.Leave(sess, domain.ConversationRoom(req.ConversationID))
		resp.Success = true
		resp.Payload["left"] = req.ConversationID

	case domain.ActionTyping, domain.ActionStopTyping:
		typing := domain.Action(req.Action) == domain.ActionTyping
		if err := h.convUC.Typing(ctx, caller, req.ConversationID, req.Name, typing); err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
		}

	case domain.ActionSendMessage:
		stored, conv, err := h.convUC.RecordInboundMessage(ctx, caller, req.ConversationID, req.Content, req.Kind, req.FileURL, req.Nonce)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["message"] = stored
			resp.Payload["conversation_id"] = conv.ID
		}

	case domain.ActionMarkSeen:
		count, err := h.convUC.MarkSeen(ctx, caller, req.ConversationID)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["seen_count"] = count
		}

	case domain.ActionGetHistory:
		msgs, err := h.convUC.History(ctx, caller, req.ConversationID, req.AfterSeq)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Success = true
			resp.Payload["messages"] = msgs
		}

	default:
		resp.Error = "unknown action"
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ", zap.String("UserID", sess.Identity), zap.String("Action", req.Action), zap.String("err", resp.Error))
	}
	h.sendResponse(sess, resp)
}

// joinConversation subscribe to a thread room and return the catch-up slice
// after req.AfterSeq in the same ack.
func (h *SupportWebsocketHandler) joinConversation(ctx context.Context, sess *Session, caller Caller, req domain.WSRequest) (*domain.Conversation, []domain.Message, error) {
	conversationID := req.ConversationID
	var conv *domain.Conversation
	var err error

	if conversationID == "" {
		conv, err = h.convUC.ResolveOrCreate(ctx, caller)
		if err != nil {
			return nil, nil, err
		}
		conversationID = conv.ID
	}

	msgs, err := h.convUC.History(ctx, caller, conversationID, req.AfterSeq)
	if err != nil {
		return nil, nil, err
	}

	if err := h.presence.Join(sess, domain.ConversationRoom(conversationID), h.eventForwarder(sess)); err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

func (h *SupportWebsocketHandler) eventForwarder(sess *Session) func(domain.Event) {
	return func(ev domain.Event) {
		h.forwardEvent(sess, ev)
	}
}

func (h *SupportWebsocketHandler) forwardEvent(sess *Session, ev domain.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := sess.Write(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write event error:", err)
	}
}

func (h *SupportWebsocketHandler) sendResponse(sess *Session, resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	if err := sess.Write(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (h *SupportWebsocketHandler) sendError(sess *Session, ref, errorMsg string) {
	h.sendResponse(sess, domain.WSResponse{
		Action:  "error",
		Ref:     ref,
		Success: false,
		Error:   errorMsg,
	})
}
