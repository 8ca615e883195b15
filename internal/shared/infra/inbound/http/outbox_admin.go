package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/shared/domain"
	"github.com/davicafu/hexashop/internal/shared/infra/analytics/clickhouse"
	"github.com/davicafu/hexashop/pkg/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AttemptSummarizer es opcional: solo existe cuando ClickHouse está configurado.
type AttemptSummarizer interface {
	Summary(ctx context.Context, contextName string, since time.Time) ([]clickhouse.TypeSummary, error)
}

// OutboxAdminHandler expone la inspección y el replay manual del outbox de cada contexto.
type OutboxAdminHandler struct {
	stores    map[string]domain.OutboxStore
	summaries AttemptSummarizer
	log       *zap.Logger
}

func NewOutboxAdminHandler(stores map[string]domain.OutboxStore, summaries AttemptSummarizer, log *zap.Logger) *OutboxAdminHandler {
	return &OutboxAdminHandler{stores: stores, summaries: summaries, log: log}
}

func (h *OutboxAdminHandler) store(c *gin.Context) (domain.OutboxStore, bool) {
	s, ok := h.stores[c.Param("context")]
	if !ok {
		utils.SendNotFound(c, "unknown bounded context")
	}
	return s, ok
}

// Stats endpoint GET /admin/outbox/:context/stats
func (h *OutboxAdminHandler) Stats(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	counts, err := store.CountByStatus(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to count outbox records", zap.String("context", c.Param("context")), zap.Error(err))
		utils.SendInternalServerError(c)
		return
	}

	utils.SendSuccess(c, http.StatusOK, gin.H{
		"context": c.Param("context"),
		"counts":  counts,
	})
}

// ListRecords endpoint GET /admin/outbox/:context/records?status=Failed&limit=50
func (h *OutboxAdminHandler) ListRecords(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	status := domain.OutboxStatus(c.DefaultQuery("status", string(domain.OutboxFailed)))
	if !status.Valid() {
		utils.SendBadRequest(c, "status must be Pending, Processed or Failed")
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			utils.SendBadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(v, maxListLimit)
	}

	records, err := store.FetchBatch(c.Request.Context(), status, limit)
	if err != nil {
		h.log.Error("Failed to list outbox records", zap.String("context", c.Param("context")), zap.Error(err))
		utils.SendInternalServerError(c)
		return
	}
	if records == nil {
		records = []domain.OutboxRecord{}
	}

	utils.SendSuccess(c, http.StatusOK, records)
}

// Replay endpoint POST /admin/outbox/:context/records/:id/replay
// Devuelve un registro Failed a Pending para que el dispatcher lo reintente.
func (h *OutboxAdminHandler) Replay(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid record id")
		return
	}

	err = store.Requeue(c.Request.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOutboxRecordNotFound):
		utils.SendNotFound(c, "outbox record not found")
		return
	case errors.Is(err, domain.ErrOutboxRecordNotFailed):
		utils.SendConflict(c, "only Failed records can be replayed")
		return
	default:
		h.log.Error("Failed to requeue outbox record", zap.String("outbox_id", id.String()), zap.Error(err))
		utils.SendInternalServerError(c)
		return
	}

	h.log.Info("🔁 Outbox record requeued",
		zap.String("context", c.Param("context")),
		zap.String("outbox_id", id.String()),
	)
	utils.SendSuccess(c, http.StatusAccepted, gin.H{"id": id, "status": domain.OutboxPending})
}

// Attempts endpoint GET /admin/outbox/:context/attempts?since=24h
func (h *OutboxAdminHandler) Attempts(c *gin.Context) {
	if _, ok := h.store(c); !ok {
		return
	}
	if h.summaries == nil {
		utils.SendError(c, http.StatusNotImplemented, "attempt analytics disabled")
		return
	}

	window := 24 * time.Hour
	if raw := c.Query("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			utils.SendBadRequest(c, "since must be a positive duration, e.g. 24h")
			return
		}
		window = d
	}

	summary, err := h.summaries.Summary(c.Request.Context(), c.Param("context"), time.Now().Add(-window))
	if err != nil {
		h.log.Error("Failed to query attempt log", zap.Error(err))
		utils.SendInternalServerError(c)
		return
	}
	if summary == nil {
		summary = []clickhouse.TypeSummary{}
	}
	utils.SendSuccess(c, http.StatusOK, summary)
}
