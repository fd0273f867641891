package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"botgpt/internal/app"
	"botgpt/internal/pkg/extract"
	"botgpt/internal/transport/http/response"
)

const maxUploadBytes = 20 << 20 // 20 MiB

type DocumentHandler struct {
	documentService *app.DocumentService
	httpClient      *http.Client
}

type IngestURLRequest struct {
	URL            string `json:"url" binding:"required,url"`
	ConversationID string `json:"conversation_id"`
}

type LinkDocumentsRequest struct {
	DocumentIDs []string `json:"document_ids" binding:"required,min=1"`
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload accepts a PDF as multipart form data, extracts its text, and queues
// the document for chunking and embedding.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file field")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large")
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only pdf uploads are supported")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "open upload failed")
		return
	}
	defer file.Close()

	text, err := extract.PDF(file)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "could not extract text from pdf")
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), app.CreateDocumentInput{
		UserID:         userID,
		ConversationID: c.PostForm("conversation_id"),
		Filename:       fileHeader.Filename,
		Text:           text,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "pdf has no extractable text")
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create document failed")
		}
		return
	}

	response.OK(c, doc)
}

// IngestURL fetches a web page, extracts its readable text, and queues it as
// a document.
func (h *DocumentHandler) IngestURL(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req IngestURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	title, text, err := h.fetchPage(c, req.URL)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	if title == "" {
		if u, err := url.Parse(req.URL); err == nil {
			title = u.Host
		}
	}

	doc, err := h.documentService.Create(c.Request.Context(), app.CreateDocumentInput{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Filename:       title,
		StoragePath:    req.URL,
		Text:           text,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "page has no extractable text")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create document failed")
		}
		return
	}

	response.OK(c, doc)
}

func (h *DocumentHandler) fetchPage(c *gin.Context, pageURL string) (title, text string, err error) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, pageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("invalid url")
	}
	req.Header.Set("User-Agent", "botgpt-ingest/1.0")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch url failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch url failed: status %d", resp.StatusCode)
	}

	title, text, err = extract.HTML(io.LimitReader(resp.Body, maxUploadBytes))
	if err != nil {
		return "", "", fmt.Errorf("could not extract text from page")
	}
	return title, text, nil
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	docs, err := h.documentService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}

	response.OK(c, gin.H{"documents": docs})
}

// Link attaches already-processed documents to a conversation.
func (h *DocumentHandler) Link(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Param("id")

	var req LinkDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.documentService.LinkToConversation(c.Request.Context(), conversationID, req.DocumentIDs); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "link documents failed")
		}
		return
	}

	response.OK(c, gin.H{"conversation_id": conversationID, "linked": req.DocumentIDs})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	documentID := c.Param("id")
	if err := h.documentService.Delete(c.Request.Context(), userID, documentID); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted": documentID})
}
