package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/preview"
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/transport"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxMutationBodyBytes = 1 << 20

type pagesResponsePayload struct {
	RoomCode string            `json:"roomCode"`
	Pages    []canvas.PageWire `json:"pages"`
}

type mutationResponsePayload struct {
	Applied   bool              `json:"applied"`
	FollowUps []json.RawMessage `json:"followUps"`
	Rejected  []string          `json:"rejected,omitempty"`
}

type layoutResponsePayload struct {
	PageID               string               `json:"pageId"`
	CanvasWidth          float64              `json:"canvasWidth"`
	CanvasHeight         float64              `json:"canvasHeight"`
	ReservedHeaderHeight float64              `json:"reservedHeaderHeight"`
	Frames               []canvas.PlacedFrame `json:"frames"`
}

func (h *httpHandler) handlePages(c *gin.Context) {
	code := roomCodeFrom(c)
	pages, err := h.hub.Snapshot(c.Request.Context(), code)
	if err != nil {
		h.respondHubError(c, "pages", err)
		return
	}
	c.JSON(http.StatusOK, pagesResponsePayload{RoomCode: code.String(), Pages: canvas.PagesToWire(pages)})
}

func (h *httpHandler) handleUsers(c *gin.Context) {
	users, err := h.hub.Users(c.Request.Context(), roomCodeFrom(c))
	if err != nil {
		h.respondHubError(c, "users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// handleMutation applies one JSON envelope as if it came from an anonymous participant.
func (h *httpHandler) handleMutation(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxMutationBodyBytes))
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	codec := transport.JSON()
	message, err := transport.Decode(codec, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": decodeErrorCode(err)})
		return
	}
	if message.Mutation == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mutation_required"})
		return
	}

	code := roomCodeFrom(c)
	outcome, err := h.hub.Submit(c.Request.Context(), code, message.Mutation, 0)
	if err != nil {
		h.respondHubError(c, "mutation", err)
		return
	}

	response := mutationResponsePayload{Applied: outcome.Applied, FollowUps: make([]json.RawMessage, 0, len(outcome.FollowUps))}
	for _, followUp := range outcome.FollowUps {
		encoded, err := transport.EncodeMutation(codec, followUp)
		if err != nil {
			h.logger.Error("failed to encode follow-up", zap.String("room_code", code.String()), zap.Error(err))
			continue
		}
		response.FollowUps = append(response.FollowUps, encoded)
	}
	for _, rejected := range message.Rejected {
		response.Rejected = append(response.Rejected, rejected.Error())
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleExport(c *gin.Context) {
	pages, err := h.hub.Snapshot(c.Request.Context(), roomCodeFrom(c))
	if err != nil {
		h.respondHubError(c, "export", err)
		return
	}
	payload, err := canvas.ExportJSON(pages)
	if err != nil {
		h.logger.Error("failed to export pages", zap.String("room_code", roomCodeFrom(c).String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export_failed"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *httpHandler) handleLayout(c *gin.Context) {
	doc, pageID, ok := h.loadPage(c, "layout")
	if !ok {
		return
	}
	resolver := canvas.NewResolver(doc)
	frames, _ := resolver.ResolvePage(pageID)
	if frames == nil {
		frames = []canvas.PlacedFrame{}
	}
	c.JSON(http.StatusOK, layoutResponsePayload{
		PageID:               pageID.String(),
		CanvasWidth:          canvas.CanvasWidth,
		CanvasHeight:         canvas.CanvasHeight,
		ReservedHeaderHeight: resolver.ReservedHeaderHeight(pageID),
		Frames:               frames,
	})
}

func (h *httpHandler) handlePreview(c *gin.Context) {
	doc, pageID, ok := h.loadPage(c, "preview")
	if !ok {
		return
	}
	var buffer bytes.Buffer
	if err := h.renderer.WritePNG(&buffer, doc, pageID); err != nil {
		if errors.Is(err, preview.ErrPageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "page_not_found"})
			return
		}
		h.logger.Error("failed to render preview",
			zap.String("room_code", roomCodeFrom(c).String()),
			zap.String("page_id", pageID.String()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preview_failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", buffer.Bytes())
}

// loadPage builds a detached document from the room snapshot and checks the page exists.
func (h *httpHandler) loadPage(c *gin.Context, operation string) (*canvas.Document, canvas.PageID, bool) {
	pageID, err := canvas.NewPageID(c.Param("pageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_page_id"})
		return nil, "", false
	}
	pages, err := h.hub.Snapshot(c.Request.Context(), roomCodeFrom(c))
	if err != nil {
		h.respondHubError(c, operation, err)
		return nil, "", false
	}
	doc := canvas.NewDocument(pages...)
	if _, ok := doc.Page(pageID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "page_not_found"})
		return nil, "", false
	}
	return doc, pageID, true
}

func decodeErrorCode(err error) string {
	switch {
	case errors.Is(err, transport.ErrUnknownMessageType):
		return "unknown_message_type"
	case errors.Is(err, canvas.ErrInvalidRoomCode):
		return "invalid_room_code"
	case errors.Is(err, canvas.ErrInvalidPageID):
		return "invalid_page_id"
	case errors.Is(err, canvas.ErrInvalidComponentID):
		return "invalid_component_id"
	default:
		return "invalid_message"
	}
}
