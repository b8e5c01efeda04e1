package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicstack/noshow-engine/internal/engine"
	"github.com/clinicstack/noshow-engine/internal/models"
	"github.com/clinicstack/noshow-engine/internal/predictor"
	"github.com/clinicstack/noshow-engine/internal/services"
)

// Handler binds the service facade to HTTP routes.
type Handler struct {
	logger  *slog.Logger
	service *services.NoShowService
}

// NewHandler constructs the HTTP handler set.
func NewHandler(logger *slog.Logger, service *services.NoShowService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Register attaches all routes to the router.
func (h *Handler) Register(router *gin.Engine) {
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dataset", h.Dataset)
		v1.POST("/train/numeric", h.TrainNumeric)
		v1.POST("/train/text", h.TrainText)
		v1.GET("/train/text/events", h.TrainTextEvents)
		v1.POST("/predict/numeric", h.PredictNumeric)
		v1.POST("/predict/text", h.PredictText)
		v1.GET("/runs", h.Runs)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Dataset summarises the loaded record set.
func (h *Handler) Dataset(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.DatasetInfo())
}

// TrainNumeric trains the numeric model synchronously and returns its
// report. The request blocks for the duration of training.
func (h *Handler) TrainNumeric(c *gin.Context) {
	report, err := h.service.TrainNumeric(c.Request.Context())
	if err != nil {
		h.logger.Error("numeric training failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "training failed",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

// TrainText starts a background text-model run and returns its run ID.
// A run already in flight is abandoned in favour of the new one.
func (h *Handler) TrainText(c *gin.Context) {
	runID, err := h.service.TrainText(c.Request.Context())
	if err != nil {
		h.logger.Error("text training submit failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "training submit failed",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": runID})
}

// TrainTextEvents streams host events as server-sent events until the
// current run reaches done or error, or the client goes away.
func (h *Handler) TrainTextEvents(c *gin.Context) {
	events, cancel := h.service.Subscribe()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return ev.Type != engine.EventDone && ev.Type != engine.EventError
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// PredictNumeric scores a prediction input through the numeric model.
func (h *Handler) PredictNumeric(c *gin.Context) {
	var in models.PredictionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	prediction, err := h.service.PredictNumeric(c.Request.Context(), in)
	if err != nil {
		h.respondPredictionError(c, err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// PredictText classifies a prediction input through the text model.
func (h *Handler) PredictText(c *gin.Context) {
	var in models.PredictionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	prediction, err := h.service.PredictText(c.Request.Context(), in)
	if err != nil {
		h.respondPredictionError(c, err)
		return
	}
	c.JSON(http.StatusOK, prediction)
}

// Runs lists recent training reports, newest first.
func (h *Handler) Runs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": h.service.Runs()})
}

// respondPredictionError maps a not-trained condition to 409 and
// everything else to 500.
func (h *Handler) respondPredictionError(c *gin.Context, err error) {
	if errors.Is(err, predictor.ErrNotTrained) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "not trained yet",
			"details": err.Error(),
		})
		return
	}
	h.logger.Error("prediction failed", slog.Any("error", err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "prediction failed",
		"details": err.Error(),
	})
}
