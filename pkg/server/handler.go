package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"telcochurn/pkg/apperr"
	"telcochurn/pkg/audit"
	"telcochurn/pkg/data"
	"telcochurn/pkg/insights"
	"telcochurn/pkg/scoring"
)

// Auditor receives every successful score and lists the latest ones.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) error
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Handler serves scoring and dashboard analytics.
type Handler struct {
	data     *data.Source
	scoring  *scoring.Service
	audit    Auditor
	log      *zap.Logger
	similarK int

	mu      sync.Mutex
	similar *similarCache
}

type similarCache struct {
	modelID string
	table   *data.Table
	index   *insights.SimilarIndex
}

// NewHandler wires the handler. audit may be nil.
func NewHandler(src *data.Source, svc *scoring.Service, aud Auditor, similarK int, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if similarK < 1 {
		similarK = 10
	}
	return &Handler{data: src, scoring: svc, audit: aud, similarK: similarK, log: log}
}

func statusFor(err error) int {
	if errors.Is(err, insights.ErrNoCustomers) {
		return http.StatusNotFound
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidInput:
		return http.StatusBadRequest
	case apperr.CodeModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"code": apperr.CodeOf(err), "message": err.Error()}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": body})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.NewInvalidInputError([]string{key + ": expected a non-negative integer"})
	}
	return n, nil
}

// --------------------------------------------------
// Health and admin
// --------------------------------------------------
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": h.scoring.Loaded(),
		"rows":         h.data.Table().Len(),
	})
}

// Reload re-reads the dataset and the model artifact independently.
func (h *Handler) Reload(c *gin.Context) {
	result := gin.H{"data": "ok", "model": "ok"}
	status := http.StatusOK
	if err := h.data.Reload(); err != nil {
		result["data"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := h.scoring.Reload(c.Request.Context()); err != nil {
		result["model"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}

// Scores lists the most recent audited scores.
func (h *Handler) Scores(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "audit log is disabled"}})
		return
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		h.fail(c, err)
		return
	}
	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) Model(c *gin.Context) {
	p := h.scoring.Pipeline()
	if p == nil {
		h.fail(c, apperr.NewModelUnavailableError(nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         p.Meta.ID,
		"created_at": p.Meta.CreatedAt,
		"report":     p.Meta.Report,
		"features":   p.FeatureNames(),
	})
}

// --------------------------------------------------
// Scoring
// --------------------------------------------------
func (h *Handler) Score(c *gin.Context) {
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.NewInvalidInputError([]string{"body must be a JSON object"}))
		return
	}

	res, err := h.scoring.Score(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	if h.audit != nil {
		profile, _ := json.Marshal(req)
		entry := audit.Entry{ModelID: res.ModelID, Probability: res.Probability, Risk: string(res.Risk), Profile: profile}
		if err := h.audit.Record(c.Request.Context(), entry); err != nil {
			h.log.Warn("audit record failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, res)
}

// --------------------------------------------------
// Insights
// --------------------------------------------------
func (h *Handler) KPIs(c *gin.Context) {
	c.JSON(http.StatusOK, insights.Summarize(h.data.Table()))
}

func (h *Handler) Reasons(c *gin.Context) {
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, insights.Reasons(h.data.Table(), limit))
}

func (h *Handler) Survival(c *gin.Context) {
	c.JSON(http.StatusOK, insights.Survival(h.data.Table()))
}

func (h *Handler) Correlation(c *gin.Context) {
	corr, err := insights.Correlate(h.data.Table())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, corr)
}

func (h *Handler) Breakdown(c *gin.Context) {
	segs, err := insights.Breakdown(h.data.Table(), c.DefaultQuery("field", "contract"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, segs)
}

func (h *Handler) Distributions(c *gin.Context) {
	c.JSON(http.StatusOK, insights.Distributions(h.data.Table()))
}

func (h *Handler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, insights.Options(h.data.Table()))
}

// similarIndex returns an index for the current model and table, rebuilding
// it after either is reloaded.
func (h *Handler) similarIndex() (*insights.SimilarIndex, error) {
	p := h.scoring.Pipeline()
	if p == nil {
		return nil, apperr.NewModelUnavailableError(nil)
	}
	t := h.data.Table()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.similar != nil && h.similar.modelID == p.Meta.ID && h.similar.table == t {
		return h.similar.index, nil
	}
	idx, err := insights.NewSimilarIndex(p, t)
	if err != nil {
		return nil, err
	}
	h.similar = &similarCache{modelID: p.Meta.ID, table: t, index: idx}
	return idx, nil
}

func (h *Handler) Similar(c *gin.Context) {
	k, err := queryInt(c, "k", h.similarK)
	if err != nil {
		h.fail(c, err)
		return
	}
	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.NewInvalidInputError([]string{"body must be a JSON object"}))
		return
	}
	if _, err := scoring.ParseProfile(req); err != nil {
		h.fail(c, err)
		return
	}

	idx, err := h.similarIndex()
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := idx.Query(req, k)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --------------------------------------------------
// Map
// --------------------------------------------------
func (h *Handler) Cities(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, insights.TopCities(h.data.Table(), limit))
}

func (h *Handler) Map(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		h.fail(c, apperr.NewInvalidInputError([]string{"city is required"}))
		return
	}
	layer, err := insights.MapLayer(h.data.Table(), city, c.DefaultQuery("mode", insights.ModeScatter))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, layer)
}
