package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/neurobridge-mastery/internal/domain/mastery"
	"github.com/yungbote/neurobridge-mastery/internal/http/response"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

// RecommendationObserver counts next-item outcomes.
type RecommendationObserver interface {
	ObserveRecommendation(result string)
}

type MasteryHandler struct {
	log      *logger.Logger
	mastery  services.MasteryService
	observer RecommendationObserver
}

// NewMasteryHandler accepts a nil observer.
func NewMasteryHandler(log *logger.Logger, mastery services.MasteryService, observer RecommendationObserver) *MasteryHandler {
	return &MasteryHandler{
		log:      log.With("handler", "MasteryHandler"),
		mastery:  mastery,
		observer: observer,
	}
}

type submitResponseRequest struct {
	ContentItemID   uuid.UUID              `json:"content_item_id" binding:"required"`
	Correct         *bool                  `json:"correct" binding:"required"`
	TimeSpent       *float64               `json:"time_spent"`
	InteractionData *types.InteractionData `json:"interaction_data"`
}

type reseedRequest struct {
	ResetMastery bool `json:"reset_mastery"`
}

// POST /api/students/:studentId/responses
func (h *MasteryHandler) SubmitResponse(c *gin.Context) {
	studentID, ok := h.pathID(c, "studentId", "invalid_student_id")
	if !ok {
		return
	}
	var req submitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.mastery.ProcessResponse(c.Request.Context(), services.ResponseInput{
		StudentID:     studentID,
		ContentItemID: req.ContentItemID,
		Correct:       *req.Correct,
		TimeSpent:     req.TimeSpent,
		Interaction:   req.InteractionData,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// GET /api/students/:studentId/knowledge-components/:kcId/state
func (h *MasteryHandler) GetState(c *gin.Context) {
	studentID, kcID, ok := h.studentKC(c)
	if !ok {
		return
	}
	state, err := h.mastery.GetKnowledgeState(c.Request.Context(), studentID, kcID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state})
}

// POST /api/students/:studentId/knowledge-components/:kcId/reseed
func (h *MasteryHandler) Reseed(c *gin.Context) {
	studentID, kcID, ok := h.studentKC(c)
	if !ok {
		return
	}
	var req reseedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	state, err := h.mastery.ReseedKnowledgeState(c.Request.Context(), studentID, kcID, req.ResetMastery)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": state})
}

// GET /api/students/:studentId/knowledge-components/:kcId/next-item
func (h *MasteryHandler) NextItem(c *gin.Context) {
	studentID, kcID, ok := h.studentKC(c)
	if !ok {
		return
	}
	next, err := h.mastery.RecommendNext(c.Request.Context(), studentID, kcID)
	if err != nil {
		h.observe("error")
		h.fail(c, err)
		return
	}
	if next == nil {
		h.observe("empty")
	} else {
		h.observe("item")
	}
	response.RespondOK(c, gin.H{"next": next})
}

// GET /api/students/:studentId/knowledge-components/:kcId/recommendations
func (h *MasteryHandler) ListCandidates(c *gin.Context) {
	studentID, kcID, ok := h.studentKC(c)
	if !ok {
		return
	}
	candidates, err := h.mastery.ListCandidates(c.Request.Context(), studentID, kcID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if candidates == nil {
		candidates = []types.ScoredItem{}
	}
	response.RespondOK(c, gin.H{"candidates": candidates})
}

// GET /api/knowledge-components/:kcId/parameters
func (h *MasteryHandler) GetParameters(c *gin.Context) {
	kcID, ok := h.pathID(c, "kcId", "invalid_kc_id")
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{"parameters": h.mastery.GetParameters(c.Request.Context(), kcID)})
}

func (h *MasteryHandler) studentKC(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	studentID, ok := h.pathID(c, "studentId", "invalid_student_id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	kcID, ok := h.pathID(c, "kcId", "invalid_kc_id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return studentID, kcID, true
}

func (h *MasteryHandler) pathID(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, code, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *MasteryHandler) fail(c *gin.Context, err error) {
	ae := mapError(err)
	if ae.Status >= http.StatusInternalServerError {
		fields := append([]interface{}{"path", c.FullPath(), "error", err}, ctxutil.LogFields(c.Request.Context())...)
		h.log.Error("request failed", fields...)
	}
	response.RespondAPIError(c, ae)
}

func (h *MasteryHandler) observe(result string) {
	if h.observer != nil {
		h.observer.ObserveRecommendation(result)
	}
}
