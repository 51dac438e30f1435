package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	apierrors "abrsqol/internal/errors"
	"abrsqol/internal/infrastructure"
	"abrsqol/internal/middleware"
	ws "abrsqol/internal/websocket"
	api "abrsqol/pkg/contracts/api/v1"
	"abrsqol/pkg/contracts/events"
)

// StreamHandler serves GET /api/v1/qol/stream: the peer sends one
// InvertRequest and receives progress, column completions and finally a
// result or an error message.
type StreamHandler struct {
	service      QoLService
	upgrader     *websocket.Upgrader
	validate     *validator.Validate
	metrics      *ws.Metrics
	logEvery     int
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// StreamConfig configures a StreamHandler.
type StreamConfig struct {
	AllowedOrigins []string
	// ProgressEvery is the default progress sampling interval.
	ProgressEvery int
	Metrics       *ws.Metrics
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(service QoLService, cfg StreamConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *StreamHandler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &StreamHandler{
		service:      service,
		upgrader:     ws.NewUpgrader(cfg.AllowedOrigins),
		validate:     newValidator(),
		metrics:      cfg.Metrics,
		logEvery:     cfg.ProgressEvery,
		logger:       logger.With(slog.String("component", "stream_handler")),
		errorHandler: errorHandler,
	}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetRequestID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered with an HTTP error.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("request_id", traceID))
		return
	}

	session := ws.NewSession(ws.NewConnectionWrapper(conn), traceID, h.logger, h.metrics)
	go session.WritePump(context.WithoutCancel(r.Context()))
	defer func() {
		session.Close()
		<-session.Done()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session.Publish(ctx, events.NewMessage(events.MessageTypeConnect, traceID, map[string]string{
		"session_id": session.ID(),
	}))

	var req api.InvertRequest
	if err := session.ReadJSON(&req); err != nil {
		if errors.Is(err, ws.ErrMalformedRequest) {
			h.sendError(ctx, session, r, apierrors.InvalidRequestWithError(err))
		}
		return
	}
	go session.Watch(cancel)

	if err := validateRequest(h.validate, &req); err != nil {
		h.sendError(ctx, session, r, err)
		return
	}
	in, ids, err := buildInputs(&req)
	if err != nil {
		h.sendError(ctx, session, r, err)
		return
	}

	every := req.ProgressEvery
	if every == 0 {
		every = h.logEvery
	}
	res, err := h.service.Solve(ctx, in, resolveParams(h.service.Defaults(), req.Params),
		ws.NewProgressObserver(session, every))
	if err != nil {
		h.sendError(ctx, session, r, err)
		return
	}

	msg := events.NewMessage(events.MessageTypeResult, traceID, toResponse(res, ids, traceID))
	if err := session.Deliver(ctx, msg); err != nil {
		h.logger.WarnContext(ctx, "result not delivered",
			slog.String("error", err.Error()),
			slog.String("request_id", traceID))
	}
}

// sendError reports err to the peer using the same status and problem type
// the REST endpoint would return.
func (h *StreamHandler) sendError(ctx context.Context, session *ws.Session, r *http.Request, err error) {
	problem := h.errorHandler.ErrorToProblem(err, r)
	h.logger.WarnContext(ctx, "stream request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("type", problem.Type))

	msg := events.NewMessage(events.MessageTypeError, session.TraceID(), events.ErrorEvent{
		Code:    problem.Type,
		Status:  problem.Status,
		Message: problem.Detail,
	})
	// The solve context may already be cancelled; the error still goes out.
	if err := session.Deliver(context.WithoutCancel(ctx), msg); err != nil {
		h.logger.DebugContext(ctx, "error message not delivered", slog.String("error", err.Error()))
	}
}
