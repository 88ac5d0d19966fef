package payrollhandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrops/internal/app/server"
	"hrops/internal/domain/payroll"
	"hrops/internal/platform/config"
	"hrops/internal/platform/jobs"
	"hrops/internal/platform/lock"
	"hrops/internal/platform/metrics"
	"hrops/internal/store/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	RequestID string `json:"requestId"`
}

type testEnv struct {
	server *httptest.Server
	store  *memory.Store
	locker *lock.Local
	jobs   *jobs.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	store.AddEmployee(payroll.Employee{ID: "e1", Name: "Ana", BaseSalary: decimal.NewNullDecimal(decimal.NewFromInt(3000)), Status: payroll.EmployeeStatusActive})
	store.AddEmployee(payroll.Employee{ID: "e2", Name: "Bruno", BaseSalary: decimal.NewNullDecimal(decimal.NewFromInt(2000)), Status: payroll.EmployeeStatusActive})

	cfg := config.Config{
		Environment:       "test",
		StoreDriver:       config.StoreDriverMemory,
		MaxBodyBytes:      1 << 20,
		MetricsEnabled:    true,
		PayrollLockTTL:    time.Minute,
		GenerateRateLimit: 100,
	}
	locker := lock.NewLocal()
	collector := metrics.New()
	service := payroll.NewService(store, locker, collector, cfg.PayrollLockTTL)
	jobRunner := jobs.New(store)

	ts := httptest.NewServer(server.NewRouter(cfg, service, jobRunner, collector))
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, store: store, locker: locker, jobs: jobRunner}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestConfigReadAndUpdate(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/payroll/config", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg map[string]any
	decodeData(t, body, &cfg)
	assert.Equal(t, float64(22), cfg["workDaysPerMonth"])
	assert.Equal(t, float64(0), cfg["version"])
	assert.Equal(t, "908.85", cfg["inssCeiling"])
	assert.Equal(t, "2259.20", cfg["irrfExemptionLimit"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, resp.Header.Get("X-Request-ID"), body.RequestID)

	resp, body = env.do(t, http.MethodPut, "/api/v1/payroll/config", map[string]any{"vtEnabled": false, "workDaysPerMonth": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, body, &cfg)
	assert.Equal(t, float64(1), cfg["version"])
	assert.Equal(t, false, cfg["vtEnabled"])
	assert.Equal(t, float64(20), cfg["workDaysPerMonth"])
}

func TestConfigUpdateRejectsInvalidPayloads(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPut, "/api/v1/payroll/config", map[string]any{"workDaysPerMonth": 40, "name": "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "validation_error", body.Error.Code)
	fields, _ := body.Error.Details["fields"].([]any)
	assert.Len(t, fields, 2)

	resp, body = env.do(t, http.MethodPut, "/api/v1/payroll/config", map[string]any{"bonusEnabled": true})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_payload", body.Error.Code)

	resp, body = env.do(t, http.MethodPut, "/api/v1/payroll/config", "{")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_payload", body.Error.Code)
}

func TestGenerateIsIdempotentOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/payroll/months/2024-05/generate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first struct {
		Created  int               `json:"created"`
		Skipped  int               `json:"skipped"`
		Payslips []payroll.Payslip `json:"payslips"`
	}
	decodeData(t, body, &first)
	assert.Equal(t, 2, first.Created)
	require.Len(t, first.Payslips, 2)
	for _, slip := range first.Payslips {
		if slip.EmployeeID == "e1" {
			assert.True(t, slip.NetSalary.Equal(decimal.RequireFromString("2525.03")), slip.NetSalary.String())
		}
	}

	resp, body = env.do(t, http.MethodPost, "/api/v1/payroll/months/2024-05/generate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second struct {
		Created int `json:"created"`
		Skipped int `json:"skipped"`
	}
	decodeData(t, body, &second)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Skipped)

	assert.Equal(t, []string{jobs.StatusCompleted, jobs.StatusCompleted}, env.store.JobRunStatuses(payroll.JobPayrollGeneration))

	resp, body = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snapshot map[string]any
	decodeData(t, body, &snapshot)
	assert.Equal(t, float64(2), snapshot["payslipsCreatedTotal"])
}

func TestPreviewAndMonthValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/payroll/months/2024-05/preview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var preview payroll.GenerationResult
	decodeData(t, body, &preview)
	assert.Len(t, preview.Payslips, 2)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/payroll/months/2024-05/payslips", nil)
	assert.Equal(t, "0", resp.Header.Get("X-Total-Count"))

	resp, body = env.do(t, http.MethodPost, "/api/v1/payroll/months/2024-5/generate", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_month", body.Error.Code)
}

func TestGenerateConflictsWhileMonthIsLocked(t *testing.T) {
	env := newTestEnv(t)
	release, err := env.locker.Acquire(context.Background(), payroll.GenerationLockKey("2024-05"), time.Minute)
	require.NoError(t, err)
	defer func() { _ = release(context.Background()) }()

	resp, body := env.do(t, http.MethodPost, "/api/v1/payroll/months/2024-05/generate", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "generation_in_progress", body.Error.Code)
	assert.Equal(t, []string{jobs.StatusFailed}, env.store.JobRunStatuses(payroll.JobPayrollGeneration))
}

func TestAsyncGenerateRunsInBackground(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/payroll/months/2024-05/generate?async=true", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var queued map[string]string
	decodeData(t, body, &queued)
	assert.Equal(t, "queued", queued["status"])

	ctx, cancel := context.WithCancel(context.Background())
	env.jobs.Start(ctx)
	t.Cleanup(func() {
		cancel()
		env.jobs.Wait()
	})

	assert.Eventually(t, func() bool {
		statuses := env.store.JobRunStatuses(payroll.JobPayrollGeneration)
		return len(statuses) == 1 && statuses[0] == jobs.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	payslips, err := env.store.ListPayslips(context.Background(), "2024-05")
	require.NoError(t, err)
	assert.Len(t, payslips, 2)
}

func TestPayslipListingAndStatusWorkflow(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/api/v1/payroll/months/2024-05/generate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/v1/payroll/months/2024-05/payslips?limit=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get("X-Total-Count"))
	var page []payroll.Payslip
	decodeData(t, body, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "Ana", page[0].EmployeeName)
	id := page[0].ID

	resp, body = env.do(t, http.MethodGet, "/api/v1/payroll/months/2024-05/payslips?page=2&pageSize=1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeData(t, body, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "Bruno", page[0].EmployeeName)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/payroll/payslips/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+id+"/pay", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_status_transition", body.Error.Code)

	resp, body = env.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var slip payroll.Payslip
	decodeData(t, body, &slip)
	assert.Equal(t, payroll.PayslipStatusApproved, slip.Status)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/payroll/payslips/"+id+"/pay", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/api/v1/payroll/payslips/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", body.Error.Code)
}
