package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/cbr_rates/internal/apperrors"
	"github.com/SscSPs/cbr_rates/internal/core/domain"
	portssvc "github.com/SscSPs/cbr_rates/internal/core/ports/services"
	"github.com/SscSPs/cbr_rates/internal/dto"
	"github.com/SscSPs/cbr_rates/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ingestionHandler lets operators trigger ingestions over HTTP.
type ingestionHandler struct {
	ingestionService portssvc.IngestionSvc
}

func newIngestionHandler(is portssvc.IngestionSvc) *ingestionHandler {
	return &ingestionHandler{ingestionService: is}
}

func registerIngestionRoutes(rg *gin.RouterGroup, is portssvc.IngestionSvc) {
	h := newIngestionHandler(is)
	rg.POST("/ingestions", h.createIngestion)
}

// createIngestion godoc
// @Summary Ingest rates for today, a date or a period
// @Accept  json
// @Produce json
// @Param   request body dto.CreateIngestionRequest false "What to ingest"
// @Success 201 {object} dto.CreateIngestionResponse
// @Router /ingestions [post]
func (h *ingestionHandler) createIngestion(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateIngestionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind JSON for CreateIngestion", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
			return
		}
	}

	var currencies []domain.CurrencyCode
	for _, s := range req.Currencies {
		code, err := domain.ParseCurrencyCode(s)
		if err != nil {
			writeError(c, logger, apperrors.NewValidationError(err.Error()), "Invalid currency")
			return
		}
		currencies = append(currencies, code)
	}

	logger = logger.With(slog.String("date", req.Date), slog.String("period", req.Period))
	logger.Info("Received request to ingest rates")

	ctx := c.Request.Context()
	var (
		runs []domain.IngestionRun
		err  error
	)
	switch {
	case req.Period != "":
		from, to, perr := domain.ParsePeriod(req.Period)
		if perr != nil {
			writeError(c, logger, apperrors.NewValidationError(perr.Error()), "Invalid period")
			return
		}
		runs, err = h.ingestionService.IngestRange(ctx, from, to, currencies)
	case req.Date != "":
		date, perr := domain.ParseDate(req.Date)
		if perr != nil {
			writeError(c, logger, apperrors.NewValidationError(perr.Error()), "Invalid date")
			return
		}
		var run *domain.IngestionRun
		if run, err = h.ingestionService.IngestOne(ctx, date, currencies); run != nil {
			runs = append(runs, *run)
		}
	default:
		var run *domain.IngestionRun
		if run, err = h.ingestionService.IngestToday(ctx); run != nil {
			runs = append(runs, *run)
		}
	}

	if err != nil && len(runs) == 0 {
		writeError(c, logger, err, "Failed to ingest rates")
		return
	}

	resp := dto.ToCreateIngestionResponse(runs)
	if err != nil {
		logger.Warn("Ingestion finished with errors", slog.Int("runs", len(runs)), slog.String("error", err.Error()))
		resp.Errors = errorMessages(err)
	} else {
		logger.Info("Ingestion finished", slog.Int("runs", len(runs)))
	}
	c.JSON(http.StatusCreated, resp)
}
