package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "allocdash/internal/errors"
	"allocdash/internal/exporter"
	custommw "allocdash/internal/middleware"
	"allocdash/internal/services"
)

// XLSXContentType is the media type of downloaded workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReloadTriggerHTTP labels reloads requested through the API
const ReloadTriggerHTTP = "http"

// DashboardHandler serves the dashboard views
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *custommw.RequestValidator
	errorHandler *apierrors.ErrorHandler
	xlsx         *exporter.XLSXWriter
	logger       *slog.Logger
}

// NewDashboardHandler creates a dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    custommw.NewRequestValidator(logger),
		errorHandler: errorHandler,
		xlsx:         exporter.NewXLSXWriter(logger),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Route("/correlation", func(r chi.Router) {
			r.Get("/", h.GetCorrelation)
			r.Get("/selectors", h.GetCorrelationSelectors)
		})

		r.Route("/stress", func(r chi.Router) {
			r.Get("/", h.GetStress)
			r.Get("/selectors", h.GetStressSelectors)
			r.Get("/comparison", h.GetStressComparison)
			r.Get("/history", h.GetStressHistory)
		})

		r.Route("/exposure", func(r chi.Router) {
			r.Get("/", h.GetExposure)
			r.Get("/selectors", h.GetExposureSelectors)
			r.Get("/comparison", h.GetExposureComparison)
			r.Get("/history", h.GetExposureHistory)
		})

		r.Get("/legend", h.GetLegend)
		r.Get("/workbooks", h.GetWorkbooks)
		r.Get("/exports", h.ListExports)
		r.Post("/reload", h.Reload)
	})

	r.Get("/exports/{kind}", h.DownloadExport)

	return r
}

func (h *DashboardHandler) success(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.WarnContext(r.Context(), op+" failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("error", err.Error()))
	h.errorHandler.HandleError(w, r, err)
}

// respond renders result or the error of a service call
func (h *DashboardHandler) respond(w http.ResponseWriter, r *http.Request, op string, result interface{}, err error) {
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	h.success(w, r, result)
}

// validate renders a 400 problem and returns false when params are invalid
func (h *DashboardHandler) validate(w http.ResponseWriter, r *http.Request, params interface{}) bool {
	if err := h.validator.ValidateStruct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

// GetCorrelationSelectors handles GET /correlation/selectors
func (h *DashboardHandler) GetCorrelationSelectors(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.CorrelationSelectors(r.Context())
	h.respond(w, r, "correlation selectors", result, err)
}

// GetCorrelation handles GET /correlation
func (h *DashboardHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	params := bindCorrelation(r)
	if !h.validate(w, r, params) {
		return
	}
	result, err := h.service.Correlation(r.Context(), params.query())
	h.respond(w, r, "correlation", result, err)
}

// GetStressSelectors handles GET /stress/selectors
func (h *DashboardHandler) GetStressSelectors(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.StressSelectors(r.Context())
	h.respond(w, r, "stress selectors", result, err)
}

// GetStress handles GET /stress
func (h *DashboardHandler) GetStress(w http.ResponseWriter, r *http.Request) {
	params := bindSnapshot(r)
	if !h.validate(w, r, params) {
		return
	}
	result, err := h.service.StressView(r.Context(), params.query())
	h.respond(w, r, "stress view", result, err)
}

// GetStressComparison handles GET /stress/comparison
func (h *DashboardHandler) GetStressComparison(w http.ResponseWriter, r *http.Request) {
	params := bindComparison(r)
	if !h.validate(w, r, params) {
		return
	}
	result, err := h.service.StressComparison(r.Context(), params.query())
	h.respond(w, r, "stress comparison", result, err)
}

// GetStressHistory handles GET /stress/history
func (h *DashboardHandler) GetStressHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := stressHistoryParams{
		Scenario:   q.Get("scenario"),
		Portfolios: queryList(q, "portfolios"),
	}
	if !h.validate(w, r, params) {
		return
	}
	result, err := h.service.StressHistory(r.Context(), services.HistoryQuery{
		Key:        params.Scenario,
		Portfolios: params.Portfolios,
	})
	h.respond(w, r, "stress history", result, err)
}

// GetExposureSelectors handles GET /exposure/selectors
func (h *DashboardHandler) GetExposureSelectors(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ExposureSelectors(r.Context())
	h.respond(w, r, "exposure selectors", result, err)
}

// GetExposure handles GET /exposure
func (h *DashboardHandler) GetExposure(w http.ResponseWriter, r *http.Request) {
	params := bindSnapshot(r)
	if !h.validate(w, r, params) {
		return
	}
	result, err := h.service.ExposureView(r.Context(), params.query())
	h.respond(w, r, "exposure view", result, err)
}

// GetExposureComparison handles GET /exposure/comparison
func (h *DashboardHandler) GetExposureComparison(w http.ResponseWriter, r *http.Request) {
	params := bindComparison(r)
	if !h.validate(w, r, params) {
		return
	}
	result, err := h.service.ExposureComparison(r.Context(), params.query())
	h.respond(w, r, "exposure comparison", result, err)
}

// GetExposureHistory handles GET /exposure/history
func (h *DashboardHandler) GetExposureHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := exposureHistoryParams{
		Metric:     q.Get("metric"),
		Portfolios: queryList(q, "portfolios"),
	}
	if !h.validate(w, r, params) {
		return
	}
	result, err := h.service.ExposureHistory(r.Context(), services.HistoryQuery{
		Key:        params.Metric,
		Portfolios: params.Portfolios,
	})
	h.respond(w, r, "exposure history", result, err)
}

// GetLegend handles GET /legend
func (h *DashboardHandler) GetLegend(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Legend(r.Context())
	h.respond(w, r, "legend", result, err)
}

// GetWorkbooks handles GET /workbooks
func (h *DashboardHandler) GetWorkbooks(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Workbooks(r.Context())
	if err != nil {
		h.fail(w, r, "workbook discovery", err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  len(result),
	})
}

// ListExports handles GET /exports
func (h *DashboardHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	h.success(w, r, services.ExportKinds)
}

// DownloadExport handles GET /exports/{kind} and streams an xlsx file
func (h *DashboardHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	params := exportParams{
		Kind:              chi.URLParam(r, "kind"),
		correlationParams: bindCorrelation(r),
		comparisonParams:  bindComparison(r),
	}
	if !h.validate(w, r, params) {
		return
	}

	export, err := h.service.Export(r.Context(), services.ExportRequest{
		Kind:        services.ExportKind(params.Kind),
		Correlation: params.correlationParams.query(),
		Comparison:  params.comparisonParams.query(),
	})
	if err != nil {
		h.fail(w, r, "export", err)
		return
	}

	var buf bytes.Buffer
	if err := h.xlsx.Write(&buf, export.Tables...); err != nil {
		h.fail(w, r, "export", fmt.Errorf("build workbook: %w", err))
		return
	}

	h.logger.InfoContext(r.Context(), "export generated",
		slog.String("kind", params.Kind),
		slog.Int("bytes", buf.Len()))

	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted", slog.String("error", err.Error()))
	}
}

// Reload handles POST /reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	h.success(w, r, h.service.Reload(r.Context(), ReloadTriggerHTTP))
}
