package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "abrsqol/internal/errors"
	"abrsqol/internal/infrastructure"
	"abrsqol/internal/middleware"
	api "abrsqol/pkg/contracts/api/v1"
)

// QoLHandler serves the request/response inversion endpoints.
type QoLHandler struct {
	service      QoLService
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQoLHandler creates a new QoL handler
func NewQoLHandler(service QoLService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QoLHandler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &QoLHandler{
		service:      service,
		validate:     newValidator(),
		logger:       logger.With(slog.String("component", "qol_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the QoL routes
func (h *QoLHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/defaults", h.GetDefaults)
	r.With(middleware.RequireJSON).Post("/invert", h.Invert)
	return r
}

// GetDefaults handles GET /api/v1/qol/defaults
func (h *QoLHandler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	cols := h.service.Columns()
	render.JSON(w, r, api.DefaultsResponse{
		Params: toModelParams(h.service.Defaults()),
		Columns: map[string]string{
			"w":   cols.W.String(),
			"p_H": cols.PH.String(),
			"P_t": cols.Pt.String(),
			"p_n": cols.Pn.String(),
			"L":   cols.L.String(),
			"L_b": cols.Lb.String(),
		},
	})
}

// Invert handles POST /api/v1/qol/invert
func (h *QoLHandler) Invert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)

	var req api.InvertRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, decodeError(err))
		return
	}
	if err := validateRequest(h.validate, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	in, ids, err := buildInputs(&req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	locations, theta := in.Dims()
	h.logger.InfoContext(ctx, "inverting quality of life",
		slog.String("request_id", reqID),
		slog.Int("locations", locations),
		slog.Int("theta", theta))

	res, err := h.service.Solve(ctx, in, resolveParams(h.service.Defaults(), req.Params), nil)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, toResponse(res, ids, reqID))
}

// decodeError keeps body size errors intact so they map to 413.
func decodeError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return apierrors.InvalidRequestWithError(err)
}
