package handler

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agrolab/sample-engine/internal/domain"
	"github.com/agrolab/sample-engine/internal/filter"
	"github.com/agrolab/sample-engine/internal/schedule"
	"github.com/agrolab/sample-engine/internal/service"
	"github.com/agrolab/sample-engine/internal/transport"
)

func TestSampleIntegration_SubmitSample(t *testing.T) {
	t.Parallel()

	svc := &stubSampleService{
		submitFn: func(ctx context.Context, sample *domain.Sample) (*domain.Sample, error) {
			sample.ID = "s-created"
			sample.PackageID = "nir-standard"
			sample.Status = domain.StatusPending
			sample.PendingTests = []string{"Dry Matter", "Crude Protein"}
			sample.CreatedAt = time.Now().UTC()
			sample.UpdatedAt = sample.CreatedAt
			return sample, nil
		},
	}

	app := newSampleTestApp(t, svc)

	validBody := `{"farmId":"farm-1","containerId":"C-1","mode":"feeds","sampleType":"Corn Silage","package":"NIR Standard"}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/samples", validBody)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if created["id"] != "s-created" {
		t.Fatalf("id = %v, want s-created", created["id"])
	}
	if created["status"] != domain.StatusPending.String() {
		t.Fatalf("status = %v, want pending", created["status"])
	}
	if created["totalPrice"] != 18.50 {
		t.Fatalf("totalPrice = %v, want 18.50", created["totalPrice"])
	}
	if created["expectedCompletion"] == nil {
		t.Fatal("pending sample should carry a completion estimate")
	}

	invalidModeBody := `{"farmId":"farm-1","mode":"water","sampleType":"Corn Silage","package":"nir-standard"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/samples", invalidModeBody)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid mode", resp.StatusCode)
	}
}

func TestSampleIntegration_SubmitSampleErrorMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "unknown catalog entry", serviceErr: fmt.Errorf("%w: no-such", domain.ErrUnknownCatalogEntry), wantStatus: fiber.StatusUnprocessableEntity},
		{name: "duplicate container", serviceErr: fmt.Errorf("%w: container", domain.ErrConflict), wantStatus: fiber.StatusConflict},
		{name: "rate limited", serviceErr: fmt.Errorf("%w: farm-1", domain.ErrRateLimited), wantStatus: fiber.StatusTooManyRequests},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubSampleService{
				submitFn: func(ctx context.Context, sample *domain.Sample) (*domain.Sample, error) {
					return nil, tc.serviceErr
				},
			}
			app := newSampleTestApp(t, svc)

			body := `{"farmId":"farm-1","mode":"feeds","sampleType":"Corn Silage","package":"nir-standard"}`
			resp, _ := performRequest(t, app, http.MethodPost, "/v1/samples", body)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestSampleIntegration_GetSample(t *testing.T) {
	t.Parallel()

	createdAt := time.Now().UTC().Add(-3 * time.Hour)
	svc := &stubSampleService{
		getByIDFn: func(ctx context.Context, id string) (*domain.Sample, error) {
			if id != "s1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Sample{
				ID: "s1", LabNumber: "1-027-450", ContainerID: "C-1", FarmID: "farm-1",
				Mode: domain.ModeFeeds, SampleType: "TMR", PackageID: "nir-plus",
				Status: domain.StatusCompleted, CompletedTests: []string{"Dry Matter"},
				CreatedAt: createdAt, UpdatedAt: createdAt,
			}, nil
		},
	}
	app := newSampleTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/samples/s1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["labNumber"] != "1-027-450" {
		t.Fatalf("labNumber = %v, want 1-027-450", parsed["labNumber"])
	}
	if _, ok := parsed["expectedCompletion"]; ok {
		t.Fatal("completed sample must not carry a completion estimate")
	}
	if parsed["submittedAgo"] != "3 hours ago" {
		t.Fatalf("submittedAgo = %v, want 3 hours ago", parsed["submittedAgo"])
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/samples/missing", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSampleIntegration_SearchSamples(t *testing.T) {
	t.Parallel()

	svc := &stubSampleService{
		searchFn: func(ctx context.Context, farmID string, mode domain.Mode, spec filter.Spec) ([]domain.Sample, error) {
			if farmID != "farm-1" {
				t.Fatalf("farmID = %q, want farm-1", farmID)
			}
			if len(spec.Statuses) != 1 || spec.Statuses[0] != domain.StatusProcessing {
				t.Fatalf("statuses = %v, want [processing]", spec.Statuses)
			}
			if spec.DateRange != filter.DateRange30Days {
				t.Fatalf("dateRange = %q, want 30days", spec.DateRange)
			}
			return []domain.Sample{
				{ID: "s1", FarmID: farmID, Mode: mode, SampleType: "TMR",
					PackageID: "nir-standard", Status: domain.StatusProcessing,
					CreatedAt: time.Now().UTC()},
			}, nil
		},
	}
	app := newSampleTestApp(t, svc)

	body := `{"farmId":"farm-1","mode":"feeds","dateRange":"30days","statuses":["processing"]}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/samples/search", body)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(respBody))
	}

	var parsed searchSamplesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Meta.Total != 1 || len(parsed.Data) != 1 {
		t.Fatalf("meta/total = %+v, want 1 result", parsed.Meta)
	}

	badRange := `{"farmId":"farm-1","mode":"feeds","dateRange":"lately"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/samples/search", badRange)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid dateRange", resp.StatusCode)
	}

	missingCustomBounds := `{"farmId":"farm-1","mode":"feeds","dateRange":"custom"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/samples/search", missingCustomBounds)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for custom range without bounds", resp.StatusCode)
	}
}

func TestSampleIntegration_ChangeConfiguration(t *testing.T) {
	t.Parallel()

	svc := &stubSampleService{
		changeConfigurationFn: func(ctx context.Context, sampleID string, change service.ConfigurationChange) (*service.ChangeResult, error) {
			if change.Package != "nir-plus" {
				t.Fatalf("package = %q, want nir-plus", change.Package)
			}
			return &service.ChangeResult{
				Outcome:         domain.ChangeNeedsApproval,
				CostDelta:       7.50,
				ChangeRequestID: "cr-1",
			}, nil
		},
	}
	app := newSampleTestApp(t, svc)

	body := `{"package":"nir-plus","addOns":["fermentation"]}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/samples/s1/configuration", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202 for needs_approval, body=%s", resp.StatusCode, string(respBody))
	}

	var parsed changeResultResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Outcome != "needs_approval" {
		t.Fatalf("outcome = %q, want needs_approval", parsed.Outcome)
	}
	if parsed.CostDelta != 7.50 {
		t.Fatalf("costDelta = %v, want 7.50", parsed.CostDelta)
	}
	if parsed.ChangeRequestID != "cr-1" {
		t.Fatalf("changeRequestId = %q, want cr-1", parsed.ChangeRequestID)
	}
}

func TestSampleIntegration_TransitionStatus(t *testing.T) {
	t.Parallel()

	svc := &stubSampleService{
		transitionStatusFn: func(ctx context.Context, id string, next domain.Status) (*domain.Sample, error) {
			if next == domain.StatusPending {
				return nil, fmt.Errorf("%w: processing -> pending", domain.ErrIllegalTransition)
			}
			return &domain.Sample{
				ID: id, FarmID: "farm-1", Mode: domain.ModeFeeds, SampleType: "TMR",
				PackageID: "nir-standard", Status: next, CreatedAt: time.Now().UTC(),
			}, nil
		},
	}
	app := newSampleTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/samples/s1/status", `{"status":"processing"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/samples/s1/status", `{"status":"pending"}`)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 for a backward move", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/samples/s1/status", `{"status":"bogus"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an unknown status", resp.StatusCode)
	}
}

func TestSampleIntegration_DeleteSample(t *testing.T) {
	t.Parallel()

	svc := &stubSampleService{
		deleteFn: func(ctx context.Context, id string) error {
			if id == "processing-sample" {
				return fmt.Errorf("%w: sample already entered processing", domain.ErrConflict)
			}
			return nil
		},
	}
	app := newSampleTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodDelete, "/v1/samples/s1", "")
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodDelete, "/v1/samples/processing-sample", "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 once lab work started", resp.StatusCode)
	}
}

func TestSampleIntegration_GetCatalog(t *testing.T) {
	t.Parallel()

	app := newSampleTestApp(t, &stubSampleService{})

	resp, body := performRequest(t, app, http.MethodGet, "/v1/catalogs/feeds", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed catalogResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed.Mode != "feeds" {
		t.Fatalf("mode = %q, want feeds", parsed.Mode)
	}
	if len(parsed.Packages) == 0 || len(parsed.AddOns) == 0 {
		t.Fatal("catalog should list packages and add-ons")
	}
	if len(parsed.SampleTypes) != 4 {
		t.Fatalf("sampleTypes = %v, want the 4 feeds types", parsed.SampleTypes)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/catalogs/water", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an unknown mode", resp.StatusCode)
	}
}

func TestHealthIntegration_LivezAndReadyz(t *testing.T) {
	t.Parallel()

	t.Run("livez returns 200", func(t *testing.T) {
		t.Parallel()

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sql.OpenDB(stubConnector{}), newStubRedisClient(nil), nil)

		resp, body := performRequest(t, app, http.MethodGet, "/livez", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 200 when dependencies healthy", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(nil)
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb, nil)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
		}
	})

	t.Run("readyz returns 503 when dependencies down", func(t *testing.T) {
		t.Parallel()

		sqlDB := sql.OpenDB(stubConnector{pingErr: errors.New("postgres down")})
		t.Cleanup(func() { _ = sqlDB.Close() })

		rdb := newStubRedisClient(errors.New("redis down"))
		t.Cleanup(func() { _ = rdb.Close() })

		app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
		RegisterHealthRoutes(app, sqlDB, rdb, nil)

		resp, body := performRequest(t, app, http.MethodGet, "/readyz", "")
		if resp.StatusCode != fiber.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503, body=%s", resp.StatusCode, string(body))
		}
	})
}

type stubSampleService struct {
	submitFn              func(ctx context.Context, sample *domain.Sample) (*domain.Sample, error)
	getByIDFn             func(ctx context.Context, id string) (*domain.Sample, error)
	searchFn              func(ctx context.Context, farmID string, mode domain.Mode, spec filter.Spec) ([]domain.Sample, error)
	deleteFn              func(ctx context.Context, id string) error
	transitionStatusFn    func(ctx context.Context, id string, next domain.Status) (*domain.Sample, error)
	changeConfigurationFn func(ctx context.Context, sampleID string, change service.ConfigurationChange) (*service.ChangeResult, error)
	changeRequestsFn      func(ctx context.Context, sampleID string) ([]domain.ChangeRequest, error)
}

func (s *stubSampleService) Submit(ctx context.Context, sample *domain.Sample) (*domain.Sample, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, sample)
	}
	return nil, errors.New("not implemented")
}

func (s *stubSampleService) GetByID(ctx context.Context, id string) (*domain.Sample, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSampleService) Search(ctx context.Context, farmID string, mode domain.Mode, spec filter.Spec) ([]domain.Sample, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, farmID, mode, spec)
	}
	return nil, nil
}

func (s *stubSampleService) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *stubSampleService) TransitionStatus(ctx context.Context, id string, next domain.Status) (*domain.Sample, error) {
	if s.transitionStatusFn != nil {
		return s.transitionStatusFn(ctx, id, next)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSampleService) ChangeConfiguration(ctx context.Context, sampleID string, change service.ConfigurationChange) (*service.ChangeResult, error) {
	if s.changeConfigurationFn != nil {
		return s.changeConfigurationFn(ctx, sampleID, change)
	}
	return nil, domain.ErrNotFound
}

func (s *stubSampleService) ChangeRequests(ctx context.Context, sampleID string) ([]domain.ChangeRequest, error) {
	if s.changeRequestsFn != nil {
		return s.changeRequestsFn(ctx, sampleID)
	}
	return nil, nil
}

func newSampleTestApp(t *testing.T, svc SampleService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})

	estimator := schedule.NewEstimator(time.UTC, nil)
	if err := RegisterSampleRoutes(app, svc, estimator, nil); err != nil {
		t.Fatalf("RegisterSampleRoutes() error = %v", err)
	}

	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") {
			if h.pingErr != nil {
				cmd.SetErr(h.pingErr)
				return h.pingErr
			}
			cmd.SetErr(nil)
			return nil
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
