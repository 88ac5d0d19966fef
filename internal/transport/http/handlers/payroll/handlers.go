package payrollhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hrops/internal/domain/payroll"
	"hrops/internal/platform/jobs"
	"hrops/internal/platform/lock"
	"hrops/internal/transport/http/api"
	"hrops/internal/transport/http/middleware"
	"hrops/internal/transport/http/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Handler struct {
	Service *payroll.Service
	Jobs    *jobs.Service
	// GenerateLimit throttles preview and generate requests per client per minute.
	GenerateLimit int
}

func NewHandler(service *payroll.Service, jobRunner *jobs.Service, generateLimit int) *Handler {
	return &Handler{Service: service, Jobs: jobRunner, GenerateLimit: generateLimit}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payroll", func(r chi.Router) {
		r.Get("/config", h.handleGetConfig)
		r.Put("/config", h.handleUpdateConfig)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(h.GenerateLimit, time.Minute))
			r.Post("/months/{month}/preview", h.handlePreview)
			r.Post("/months/{month}/generate", h.handleGenerate)
		})
		r.Get("/months/{month}/payslips", h.handleListPayslips)
		r.Get("/payslips/{payslipID}", h.handleGetPayslip)
		r.Post("/payslips/{payslipID}/approve", h.handleApprovePayslip)
		r.Post("/payslips/{payslipID}/pay", h.handlePayPayslip)
	})
}

type configResponse struct {
	payroll.RuleConfiguration
	INSSCeiling        string `json:"inssCeiling"`
	IRRFExemptionLimit string `json:"irrfExemptionLimit"`
}

func newConfigResponse(cfg payroll.RuleConfiguration) configResponse {
	return configResponse{
		RuleConfiguration:  cfg,
		INSSCeiling:        payroll.INSSCeiling.StringFixed(2),
		IRRFExemptionLimit: payroll.IRRFExemptionLimit.StringFixed(2),
	}
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Service.Configuration(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, newConfigResponse(cfg), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var payload payroll.RuleOverrides
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	validator := shared.NewValidator()
	validator.Struct(payload)
	if payload.Name != nil && strings.TrimSpace(*payload.Name) == "" {
		validator.Add("name", "must not be blank")
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	cfg, err := h.Service.UpdateConfiguration(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, newConfigResponse(cfg), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Preview(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	month, err := payroll.ParseMonthReference(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if !h.Jobs.Enqueue(payroll.JobPayrollGeneration, h.Service.GenerationJob(month)) {
			api.Fail(w, http.StatusServiceUnavailable, "queue_full", "generation queue is full", middleware.GetRequestID(r.Context()))
			return
		}
		api.Accepted(w, map[string]any{"monthReference": month, "status": "queued"}, middleware.GetRequestID(r.Context()))
		return
	}

	var result payroll.GenerationResult
	_, err = h.Jobs.RunNow(r.Context(), payroll.JobPayrollGeneration, func(ctx context.Context) (any, error) {
		var runErr error
		result, runErr = h.Service.Generate(ctx, month)
		if runErr != nil {
			return map[string]any{"monthReference": month, "error": runErr.Error()}, runErr
		}
		return result.Summary(), nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.Payslips) > 0 {
		status = http.StatusCreated
	}
	api.WriteJSON(w, status, api.Envelope{Success: true, Data: generateResponse{
		GenerationSummary: result.Summary(),
		ConfigVersion:     result.ConfigVersion,
		Payslips:          result.Payslips,
		Skipped:           result.Skipped,
		Warnings:          result.Warnings,
	}, RequestID: middleware.GetRequestID(r.Context())})
}

type generateResponse struct {
	payroll.GenerationSummary
	ConfigVersion int                       `json:"configVersion"`
	Payslips      []payroll.Payslip         `json:"payslips"`
	Skipped       []payroll.SkippedEmployee `json:"skipped"`
	Warnings      []payroll.EmployeeWarning `json:"warnings"`
}

func (h *Handler) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, defaultPageSize, maxPageSize)
	payslips, total, err := h.Service.ListPayslips(r.Context(), chi.URLParam(r, "month"), page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	shared.WriteTotal(w, total)
	api.Success(w, payslips, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetPayslip(w http.ResponseWriter, r *http.Request) {
	payslip, err := h.Service.GetPayslip(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, payslip, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleApprovePayslip(w http.ResponseWriter, r *http.Request) {
	payslip, err := h.Service.ApprovePayslip(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, payslip, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePayPayslip(w http.ResponseWriter, r *http.Request) {
	payslip, err := h.Service.MarkPayslipPaid(r.Context(), chi.URLParam(r, "payslipID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	api.Success(w, payslip, middleware.GetRequestID(r.Context()))
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrInvalidMonthReference):
		api.Fail(w, http.StatusBadRequest, "invalid_month", err.Error(), requestID)
	case errors.Is(err, payroll.ErrInvalidConfiguration):
		api.Fail(w, http.StatusBadRequest, "invalid_configuration", err.Error(), requestID)
	case errors.Is(err, payroll.ErrPayslipNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "payslip not found", requestID)
	case errors.Is(err, payroll.ErrInvalidStatusTransition):
		api.Fail(w, http.StatusConflict, "invalid_status_transition", err.Error(), requestID)
	case errors.Is(err, lock.ErrLocked):
		api.Fail(w, http.StatusConflict, "generation_in_progress", "payroll generation for this month is already running", requestID)
	case errors.Is(err, payroll.ErrAmbiguousConfiguration):
		api.Fail(w, http.StatusInternalServerError, "ambiguous_configuration", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
