package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"botgpt/internal/ai"
	"botgpt/internal/app"
	"botgpt/internal/model"
	"botgpt/internal/transport/http/response"
)

type ConversationHandler struct {
	chatService *app.ChatService
}

type StartConversationRequest struct {
	Message     string   `json:"message" binding:"required"`
	Mode        string   `json:"mode" binding:"required,oneof=OPEN_CHAT RAG_CHAT"`
	DocumentIDs []string `json:"document_ids"`
}

type ContinueConversationRequest struct {
	Message string `json:"message" binding:"required"`
}

func NewConversationHandler(chatService *app.ChatService) *ConversationHandler {
	return &ConversationHandler{chatService: chatService}
}

func (h *ConversationHandler) Start(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	conversation, first, err := h.chatService.StartConversation(c.Request.Context(), app.StartConversationInput{
		UserID:       userID,
		FirstMessage: req.Message,
		Mode:         model.ConversationMode(req.Mode),
		DocumentIDs:  req.DocumentIDs,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "start conversation failed")
		}
		return
	}

	response.OK(c, gin.H{
		"conversation": conversation,
		"message":      first,
	})
}

func (h *ConversationHandler) Continue(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Param("id")

	var req ContinueConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if ok, err := h.ownsConversation(c, userID, conversationID); !ok {
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load conversation failed")
		}
		return
	}

	assistant, err := h.chatService.ContinueConversation(c.Request.Context(), conversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, "conversation not found")
		case errors.Is(err, ai.ErrServiceUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeServiceUnavailable, "completion service unavailable")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "continue conversation failed")
		}
		return
	}

	response.OK(c, gin.H{"message": assistant})
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversations, err := h.chatService.ListConversations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list conversations failed")
		return
	}

	response.OK(c, gin.H{"conversations": conversations})
}

func (h *ConversationHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Param("id")
	if ok, err := h.ownsConversation(c, userID, conversationID); !ok {
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load conversation failed")
		}
		return
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), conversationID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load history failed")
		return
	}

	response.OK(c, gin.H{
		"conversation_id": conversationID,
		"messages":        history,
	})
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Param("id")
	if ok, err := h.ownsConversation(c, userID, conversationID); !ok {
		if err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load conversation failed")
		}
		return
	}

	if err := h.chatService.DeleteConversation(c.Request.Context(), conversationID); err != nil {
		switch {
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, "conversation not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete conversation failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted": conversationID})
}

// ownsConversation writes the 404 itself when the conversation is missing or
// belongs to another user. A non-nil error means the lookup failed and the
// caller should respond 500.
func (h *ConversationHandler) ownsConversation(c *gin.Context, userID, conversationID string) (bool, error) {
	conversation, err := h.chatService.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, app.ErrConversationNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, "conversation not found")
			return false, nil
		}
		return false, err
	}
	if conversation.UserID != userID {
		response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, "conversation not found")
		return false, nil
	}
	return true, nil
}
