package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	models "ChainPull/internal/domain/models"
	domrepo "ChainPull/internal/domain/repository"
	icache "ChainPull/internal/service/cache"
	"ChainPull/internal/usecase"
	xhttp "ChainPull/pkg/http"
	xlogger "ChainPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CandlesHandler serves read-only views over the live windows.
type CandlesHandler struct {
	logger *xlogger.Logger
	orch   *usecase.Orchestrator
	cache  icache.BytesCache
	ttl    time.Duration
}

func NewCandlesHandler(logger *xlogger.Logger, orch *usecase.Orchestrator) *CandlesHandler {
	return &CandlesHandler{logger: logger, orch: orch}
}

// SetCache enables snapshot memoization with the given TTL.
func (h *CandlesHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	h.ttl = ttl
}

func (h *CandlesHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/candles", h.Candles)
	g.GET("/status", h.Status)
	g.GET("/health", h.Health)
}

func (h *CandlesHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	tf := domrepo.Timeframe(req.TF)
	if _, err := domrepo.ParseTimeframe(tf); err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_TIMEFRAME",
			Field:   "tf",
			Message: fmt.Sprintf("invalid timeframe %q", req.TF),
		}})
	}

	w, ok := h.orch.Window(tf)
	if !ok {
		return xhttp.NotFoundResponse(c, fmt.Sprintf("timeframe %q is not tracked", req.TF))
	}

	cacheKey := fmt.Sprintf("candles:%s:%d", tf, req.Limit)
	if h.cache != nil {
		if b, hit, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("candles cache get error", xlogger.Error(err))
		} else if hit {
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	rows := w.Snapshot(req.Limit)
	resp := xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: "OK",
		Data:    &xhttp.ListDataResponse{Rows: rows, Total: int64(w.Len())},
	}
	b, err := json.Marshal(resp)
	if err != nil {
		h.logger.Error("candles marshal error", xlogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(cacheKey, b, h.ttl); err != nil {
			h.logger.Warn("candles cache set error", xlogger.Error(err))
		}
	}
	return c.JSONBlob(http.StatusOK, b)
}

func (h *CandlesHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.orch.Status())
}

func (h *CandlesHandler) Health(c echo.Context) error {
	statuses := h.orch.Status()
	healthy := len(statuses) > 0
	for _, s := range statuses {
		if !s.Connected {
			healthy = false
		}
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]interface{}{
			"healthy": false,
			"streams": statuses,
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"healthy": true,
		"streams": statuses,
	})
}
