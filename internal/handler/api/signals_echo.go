package api

import (
	"context"
	"net/http"
	"slices"

	"CryptoEdge/internal/domain/models"
	domsvc "CryptoEdge/internal/domain/service"
	"CryptoEdge/internal/service/ratelimit"
	xhttp "CryptoEdge/pkg/http"
	xlogger "CryptoEdge/pkg/logger"
	"CryptoEdge/pkg/util"

	"github.com/labstack/echo/v4"
)

// SignalReader is the read side the handler serves from.
type SignalReader interface {
	Pairs() []string
	GetLatest(ctx context.Context, pair string) (*models.Signal, error)
	GetLatestAll(ctx context.Context) (map[string]*models.Signal, error)
	GetHistory(ctx context.Context, pair string, limit int) ([]*models.Signal, error)
	GetLearningDigestText() string
	RebuildLearning(ctx context.Context) (string, error)
	Health(ctx context.Context) error
}

// Generation triggers cycles outside the schedule.
type Generation interface {
	RefreshNow(ctx context.Context) ([]*models.Signal, error)
	GenerateOne(ctx context.Context, pair string) (*models.Signal, error)
	Running() bool
}

// ErrorLog exposes aggregated internal errors to operators.
type ErrorLog interface {
	Recent(limit int) []xlogger.AggregatedEntry
}

// SignalsEchoHandler serves the signal, liquidity and diagnostics routes.
type SignalsEchoHandler struct {
	logger    *xlogger.Logger
	query     SignalReader
	gen       Generation
	liquidity domsvc.LiquiditySource
	reasoner  domsvc.Reasoner
	errs      ErrorLog
	limiter   *ratelimit.Limiter
}

var _ xhttp.Handler = (*SignalsEchoHandler)(nil)

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	query SignalReader,
	gen Generation,
	liquidity domsvc.LiquiditySource,
	reasoner domsvc.Reasoner,
	errs ErrorLog,
	limiter *ratelimit.Limiter,
) *SignalsEchoHandler {
	return &SignalsEchoHandler{
		logger:    logger.With(xlogger.Category("API")),
		query:     query,
		gen:       gen,
		liquidity: liquidity,
		reasoner:  reasoner,
		errs:      errs,
		limiter:   limiter,
	}
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api/signals")
	g.GET("/latest", h.LatestAll)
	g.GET("/latest/:pair", h.Latest)
	g.GET("/history/:pair", h.History)
	g.GET("/learning", h.Learning)

	var guard []echo.MiddlewareFunc
	if h.limiter != nil {
		guard = append(guard, RateLimit(h.limiter))
	}
	g.POST("/refresh", h.Refresh, guard...)
	g.POST("/generate/:pair", h.Generate, guard...)
	g.POST("/learning/rebuild", h.RebuildLearning, guard...)

	e.GET("/api/market/liquidity", h.Liquidity)
	e.GET("/api/system/errors", h.Errors)
}

func (h *SignalsEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError && appErr.Status != http.StatusServiceUnavailable {
		h.logger.Error(op+" failed", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *SignalsEchoHandler) LatestAll(c echo.Context) error {
	res, err := h.query.GetLatestAll(c.Request().Context())
	if err != nil {
		return h.fail(c, "latest all", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Latest(c echo.Context) error {
	req := &models.PairRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.query.GetLatest(c.Request().Context(), util.NormalizePair(req.Pair))
	if err != nil {
		return h.fail(c, "latest", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pair := util.NormalizePair(req.Pair)

	res, err := h.query.GetHistory(c.Request().Context(), pair, req.Limit)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.SuccessResponse(c, &models.HistoryResponse{Pair: pair, Signals: res})
}

func (h *SignalsEchoHandler) Refresh(c echo.Context) error {
	res, err := h.gen.RefreshNow(c.Request().Context())
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Generate(c echo.Context) error {
	req := &models.PairRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	pair := util.NormalizePair(req.Pair)
	if !slices.Contains(h.query.Pairs(), pair) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("Unsupported pair").WithParam("pairs", h.query.Pairs()))
	}

	res, err := h.gen.GenerateOne(c.Request().Context(), pair)
	if err != nil {
		return h.fail(c, "generate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Learning(c echo.Context) error {
	return xhttp.SuccessResponse(c, &models.DigestResponse{Digest: h.query.GetLearningDigestText()})
}

func (h *SignalsEchoHandler) RebuildLearning(c echo.Context) error {
	text, err := h.query.RebuildLearning(c.Request().Context())
	if err != nil {
		return h.fail(c, "learning rebuild", err)
	}
	return xhttp.SuccessResponse(c, &models.DigestResponse{Digest: text})
}

func (h *SignalsEchoHandler) Liquidity(c echo.Context) error {
	lc := h.liquidity.Fetch(c.Request().Context())
	if lc == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("Liquidity data temporarily unavailable"))
	}
	return xhttp.SuccessResponse(c, lc)
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	res := &models.HealthResponse{
		Storage:          "ok",
		GenerationActive: h.gen.Running(),
		ReasoningReady:   h.reasoner.Available(),
	}
	status := http.StatusOK
	if err := h.query.Health(c.Request().Context()); err != nil {
		h.logger.Warn("storage health check failed", xlogger.Error(err))
		res.Storage = "down"
		status = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, status, res)
}

func (h *SignalsEchoHandler) Errors(c echo.Context) error {
	req := &models.ErrorsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.errs == nil {
		return xhttp.SuccessResponse(c, []xlogger.AggregatedEntry{})
	}
	return xhttp.SuccessResponse(c, h.errs.Recent(req.Limit))
}
