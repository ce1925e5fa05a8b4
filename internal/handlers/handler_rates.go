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

// rateHandler handles HTTP requests for stored rates.
type rateHandler struct {
	queryService portssvc.RateQuerySvc
}

func newRateHandler(qs portssvc.RateQuerySvc) *rateHandler {
	return &rateHandler{queryService: qs}
}

// registerRateRoutes registers read-only routes for stored rates.
func registerRateRoutes(rg *gin.RouterGroup, qs portssvc.RateQuerySvc) {
	h := newRateHandler(qs)

	rates := rg.Group("/rates/:currency")
	{
		rates.GET("", h.listRates)
		rates.GET("/latest", h.getLatestRate)
		rates.GET("/on/:date", h.getRateOn)
	}
}

func parseCurrencyParam(c *gin.Context) (domain.CurrencyCode, error) {
	code, err := domain.ParseCurrencyCode(c.Param("currency"))
	if err != nil {
		return "", apperrors.NewValidationError(err.Error())
	}
	return code, nil
}

// getLatestRate godoc
// @Summary Latest rate of a currency
// @Router /rates/{currency}/latest [get]
func (h *rateHandler) getLatestRate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	code, err := parseCurrencyParam(c)
	if err != nil {
		writeError(c, logger, err, "Invalid currency")
		return
	}

	rec, err := h.queryService.GetLatestRate(c.Request.Context(), code)
	if err != nil {
		writeError(c, logger.With(slog.String("currency", string(code))), err, "Failed to retrieve latest rate")
		return
	}
	c.JSON(http.StatusOK, dto.ToRateResponse(*rec))
}

// getRateOn godoc
// @Summary Rate of a currency on a date (DD.MM.YYYY)
// @Router /rates/{currency}/on/{date} [get]
func (h *rateHandler) getRateOn(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	code, err := parseCurrencyParam(c)
	if err != nil {
		writeError(c, logger, err, "Invalid currency")
		return
	}
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		writeError(c, logger, apperrors.NewValidationError(err.Error()), "Invalid date")
		return
	}

	rec, err := h.queryService.GetRateOn(c.Request.Context(), code, date)
	if err != nil {
		writeError(c, logger.With(slog.String("currency", string(code))), err, "Failed to retrieve rate")
		return
	}
	c.JSON(http.StatusOK, dto.ToRateResponse(*rec))
}

// listRates godoc
// @Summary Rates of a currency between two dates, one per effective date
// @Param from query string true "DD.MM.YYYY"
// @Param to   query string true "DD.MM.YYYY"
// @Router /rates/{currency} [get]
func (h *rateHandler) listRates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	code, err := parseCurrencyParam(c)
	if err != nil {
		writeError(c, logger, err, "Invalid currency")
		return
	}
	from, err := domain.ParseDate(c.Query("from"))
	if err != nil {
		writeError(c, logger, apperrors.NewValidationError("from: "+err.Error()), "Invalid range")
		return
	}
	to, err := domain.ParseDate(c.Query("to"))
	if err != nil {
		writeError(c, logger, apperrors.NewValidationError("to: "+err.Error()), "Invalid range")
		return
	}

	recs, err := h.queryService.GetRatesBetween(c.Request.Context(), code, from, to)
	if err != nil {
		writeError(c, logger.With(slog.String("currency", string(code))), err, "Failed to list rates")
		return
	}
	c.JSON(http.StatusOK, dto.RateListResponse{
		CurrencyCode: string(code),
		From:         domain.FormatDotted(from),
		To:           domain.FormatDotted(to),
		Rates:        dto.ToRateResponses(recs),
	})
}
