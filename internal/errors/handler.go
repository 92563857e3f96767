package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Problem types
const (
	TypeValidation = "/errors/validation"
	TypeNotFound   = "/errors/not-found"
	TypeRateLimit  = "/errors/rate-limit"
	TypeInternal   = "/errors/internal"
	TypeTimeout    = "/errors/timeout"

	TypeWorkbookSchema  = "/errors/workbook/schema"
	TypeWorkbookParse   = "/errors/workbook/parse"
	TypeWorkbookStorage = "/errors/workbook/storage"
	TypeEmptySelection  = "/errors/selection/empty"
	TypeEmptyPeerGroup  = "/errors/selection/empty-peer-group"
)

type problemKind struct {
	status int
	typ    string
	title  string
}

var internalProblem = problemKind{http.StatusInternalServerError, TypeInternal, "Internal Server Error"}

// appProblems maps each error type to the response it produces. Broken
// workbooks are 422 because the request was fine but the data behind it
// is not; unreadable ones are 503 because a reload may fix them.
var appProblems = map[ErrorType]problemKind{
	ErrTypeSchema:         {http.StatusUnprocessableEntity, TypeWorkbookSchema, "Workbook Schema Mismatch"},
	ErrTypeParsing:        {http.StatusUnprocessableEntity, TypeWorkbookParse, "Workbook Parse Failure"},
	ErrTypeEmptySelection: {http.StatusNotFound, TypeEmptySelection, "Empty Selection"},
	ErrTypeEmptyPeerGroup: {http.StatusUnprocessableEntity, TypeEmptyPeerGroup, "Empty Peer Group"},
	ErrTypeNotFound:       {http.StatusNotFound, TypeNotFound, "Resource Not Found"},
	ErrTypeValidation:     {http.StatusBadRequest, TypeValidation, "Validation Failed"},
	ErrTypeStorage:        {http.StatusServiceUnavailable, TypeWorkbookStorage, "Workbook Unavailable"},
}

// ErrorHandler turns errors and panics into problem responses
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates an ErrorHandler. includeStack adds goroutine
// stacks to responses and is meant for development only.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and answers with its problem. A nil error writes
// nothing.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	h.logger.ErrorContext(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	if h.includeStack {
		problem.WithExtension("stack", string(debug.Stack()))
	}
	h.write(w, r, problem)
}

// ErrorToProblem classifies err without writing anything
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", r.URL.Path)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		typ := TypeInternal
		if apiErr.ErrorCode == CodeValidationFailed {
			typ = TypeValidation
		}
		problem := NewProblemDetails(apiErr.StatusCode, typ, http.StatusText(apiErr.StatusCode), apiErr.Message, r.URL.Path).
			WithExtension("error_code", apiErr.ErrorCode)
		if apiErr.Details != nil {
			problem.WithExtension("details", apiErr.Details)
		}
		return problem
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		kind, ok := appProblems[appErr.Type]
		if !ok {
			kind = internalProblem
		}
		problem := NewProblemDetails(kind.status, kind.typ, kind.title, appErr.Message, r.URL.Path).
			WithExtension("error_type", string(appErr.Type))
		for k, v := range appErr.Context {
			problem.WithExtension(k, v)
		}
		return problem
	}

	return NewProblemDetails(internalProblem.status, internalProblem.typ, internalProblem.title,
		"An unexpected error occurred while processing your request", r.URL.Path)
}

// HandlePanic answers a recovered panic with a 500 problem
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	stack := string(debug.Stack())
	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("stack", stack),
	)

	problem := NewProblemDetails(internalProblem.status, internalProblem.typ, internalProblem.title,
		"An unexpected error occurred", r.URL.Path)
	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprint(recovered)).WithExtension("stack", stack)
	}
	h.write(w, r, problem)
}

// NotFound is the router's 404 handler
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path))
}

// MethodNotAllowed is the router's 405 handler
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, NewProblemDetails(http.StatusMethodNotAllowed, TypeInternal, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path))
}

// RecoveryMiddleware recovers handler panics. http.ErrAbortHandler is
// re-raised so net/http can abort the response.
func (h *ErrorHandler) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.HandlePanic(w, r, rec)
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *ErrorHandler) write(w http.ResponseWriter, r *http.Request, problem *ProblemDetails) {
	problem.WithExtension("trace_id", middleware.GetReqID(r.Context()))
	_ = render.Render(w, r, problem)
}
