// Package api exposes the calculation pipeline over HTTP: multipart upload
// plus paid-to-date in, computed benefits or the rendered one-pager out.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quantbridge/rpucalc/internal/pipeline"
	"github.com/quantbridge/rpucalc/internal/report"
)

// ptdLayout is the wire format for the paid-to-date form field.
const ptdLayout = "2006-01-02"

// CaseStore is the persistence surface the API needs. A nil store runs the
// API stateless: calculations work, nothing is saved.
type CaseStore interface {
	SaveCase(ctx context.Context, res *pipeline.Result) error
	LoadCase(ctx context.Context, caseID string) (*pipeline.Result, error)
	LogEvent(ctx context.Context, sessionID, caseID, event string, payload any)
	SaveFeedback(ctx context.Context, caseID, sessionID string, rating int, comments string) error
}

// Handler serves the RPU HTTP endpoints.
type Handler struct {
	service *pipeline.Service
	cases   CaseStore
	logger  *slog.Logger
}

// NewHandler creates the HTTP handler. cases may be nil.
func NewHandler(service *pipeline.Service, cases CaseStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, cases: cases, logger: logger}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", h.health)

	v1 := router.Group("/api/v1")
	v1.POST("/rpu/calculate", h.calculate)
	v1.GET("/rpu/report", h.reportByCase)
	v1.POST("/feedback", h.feedback)

	return router
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// calculateRequest reads the multipart form: the BI file, the paid-to-date
// and an optional caller-supplied session ID.
func (h *Handler) calculateRequest(c *gin.Context) ([]byte, time.Time, string, bool) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return nil, time.Time{}, "", false
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading upload: " + err.Error()})
		return nil, time.Time{}, "", false
	}

	ptd, err := time.Parse(ptdLayout, c.PostForm("ptd"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ptd must be YYYY-MM-DD"})
		return nil, time.Time{}, "", false
	}

	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return fileBytes, ptd, sessionID, true
}

func (h *Handler) calculate(c *gin.Context) {
	fileBytes, ptd, sessionID, ok := h.calculateRequest(c)
	if !ok {
		return
	}

	res, err := h.service.Compute(fileBytes, ptd)
	if err != nil {
		h.logger.Warn("calculation failed", "session_id", sessionID, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "session_id": sessionID})
		return
	}

	h.persist(c.Request.Context(), sessionID, res)

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"result":     res,
	})
}

// reportByCase renders the one-pager. The caller either references a stored
// case by ID or uploads the file and ptd again for a stateless render.
func (h *Handler) reportByCase(c *gin.Context) {
	if caseID := c.Query("case_id"); caseID != "" {
		if h.cases == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "case storage not configured"})
			return
		}
		res, err := h.cases.LoadCase(c.Request.Context(), caseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if res == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
			return
		}
		h.renderReport(c, res)
		return
	}

	fileBytes, ptd, sessionID, ok := h.calculateRequest(c)
	if !ok {
		return
	}
	res, err := h.service.Compute(fileBytes, ptd)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "session_id": sessionID})
		return
	}
	h.persist(c.Request.Context(), sessionID, res)
	h.renderReport(c, res)
}

func (h *Handler) renderReport(c *gin.Context, res *pipeline.Result) {
	raw, err := report.Render(res)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="rpu-summary.pdf"`)
	c.Data(http.StatusOK, "application/pdf", raw)
}

type feedbackRequest struct {
	CaseID    string `json:"case_id" binding:"required"`
	SessionID string `json:"session_id"`
	Rating    int    `json:"rating"`
	Comments  string `json:"comments"`
}

func (h *Handler) feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.cases == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feedback storage not configured"})
		return
	}
	if err := h.cases.SaveFeedback(c.Request.Context(), req.CaseID, req.SessionID, req.Rating, req.Comments); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.cases.LogEvent(c.Request.Context(), req.SessionID, req.CaseID, "feedback_received", gin.H{"rating": req.Rating})
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// persist saves the case and logs the calculation. Failures log a warning
// and never fail the request.
func (h *Handler) persist(ctx context.Context, sessionID string, res *pipeline.Result) {
	if h.cases == nil {
		return
	}
	if err := h.cases.SaveCase(ctx, res); err != nil {
		h.logger.Warn("case save failed", "case_id", res.CaseID, "error", err)
		return
	}
	h.cases.LogEvent(ctx, sessionID, res.CaseID, "calculation_completed", gin.H{
		"product_id": res.ProductID,
		"confidence": res.Confidence,
	})
}

// Serve runs the HTTP server until ctx is canceled.
func Serve(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
