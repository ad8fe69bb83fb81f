package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/agrolab/sample-engine/internal/catalog"
	"github.com/agrolab/sample-engine/internal/domain"
	"github.com/agrolab/sample-engine/internal/filter"
	"github.com/agrolab/sample-engine/internal/observability"
	"github.com/agrolab/sample-engine/internal/pricing"
	"github.com/agrolab/sample-engine/internal/schedule"
	"github.com/agrolab/sample-engine/internal/service"
)

type SampleService interface {
	Submit(ctx context.Context, sample *domain.Sample) (*domain.Sample, error)
	GetByID(ctx context.Context, id string) (*domain.Sample, error)
	Search(ctx context.Context, farmID string, mode domain.Mode, spec filter.Spec) ([]domain.Sample, error)
	Delete(ctx context.Context, id string) error
	TransitionStatus(ctx context.Context, id string, next domain.Status) (*domain.Sample, error)
	ChangeConfiguration(ctx context.Context, sampleID string, change service.ConfigurationChange) (*service.ChangeResult, error)
	ChangeRequests(ctx context.Context, sampleID string) ([]domain.ChangeRequest, error)
}

type SampleHandler struct {
	service   SampleService
	estimator *schedule.Estimator
	metrics   *observability.Metrics
}

func NewSampleHandler(service SampleService, estimator *schedule.Estimator, metrics *observability.Metrics) (*SampleHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("sample service is required")
	}
	if estimator == nil {
		estimator = schedule.NewEstimator(nil, nil)
	}
	return &SampleHandler{service: service, estimator: estimator, metrics: metrics}, nil
}

func RegisterSampleRoutes(router fiber.Router, service SampleService, estimator *schedule.Estimator, metrics *observability.Metrics) error {
	h, err := NewSampleHandler(service, estimator, metrics)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/samples", h.SubmitSample)
	v1.Get("/samples/:id", h.GetSample)
	v1.Post("/samples/search", h.SearchSamples)
	v1.Post("/samples/:id/configuration", h.ChangeConfiguration)
	v1.Get("/samples/:id/changes", h.ListChangeRequests)
	v1.Post("/samples/:id/status", h.TransitionStatus)
	v1.Delete("/samples/:id", h.DeleteSample)
	v1.Get("/catalogs/:mode", h.GetCatalog)

	return nil
}

type submitSampleRequest struct {
	FarmID      string   `json:"farmId"`
	ContainerID string   `json:"containerId"`
	SampleName  string   `json:"sampleName"`
	Mode        string   `json:"mode"`
	SampleType  string   `json:"sampleType"`
	Package     string   `json:"package"`
	AddOns      []string `json:"addOns"`
}

type searchSamplesRequest struct {
	FarmID        string   `json:"farmId"`
	Mode          string   `json:"mode"`
	DateRange     string   `json:"dateRange"`
	CustomStart   string   `json:"customStart"`
	CustomEnd     string   `json:"customEnd"`
	SampleTypes   []string `json:"sampleTypes"`
	Packages      []string `json:"packages"`
	Statuses      []string `json:"statuses"`
	LabNumberFrom string   `json:"labNumberFrom"`
	LabNumberTo   string   `json:"labNumberTo"`
}

type changeConfigurationRequest struct {
	Package    string   `json:"package"`
	AddOns     []string `json:"addOns"`
	SampleName *string  `json:"sampleName"`
}

type transitionStatusRequest struct {
	Status string `json:"status"`
}

type estimateResponse struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
}

type sampleResponse struct {
	ID                 string            `json:"id"`
	LabNumber          string            `json:"labNumber,omitempty"`
	ContainerID        string            `json:"containerId"`
	SampleName         string            `json:"sampleName,omitempty"`
	FarmID             string            `json:"farmId"`
	Mode               string            `json:"mode"`
	SampleType         string            `json:"sampleType"`
	PackageID          string            `json:"packageId"`
	AddOnIDs           []string          `json:"addOnIds"`
	Status             string            `json:"status"`
	CompletedTests     []string          `json:"completedTests"`
	PendingTests       []string          `json:"pendingTests"`
	TotalPrice         float64           `json:"totalPrice"`
	ExpectedCompletion *estimateResponse `json:"expectedCompletion,omitempty"`
	SubmittedAgo       string            `json:"submittedAgo"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

type searchSamplesResponse struct {
	Data []sampleResponse `json:"data"`
	Meta searchMeta       `json:"meta"`
}

type searchMeta struct {
	Total int `json:"total"`
}

type changeResultResponse struct {
	Outcome         string          `json:"outcome"`
	CostDelta       float64         `json:"costDelta"`
	ChangeRequestID string          `json:"changeRequestId,omitempty"`
	Sample          *sampleResponse `json:"sample,omitempty"`
}

type changeRequestResponse struct {
	ID               string    `json:"id"`
	SampleID         string    `json:"sampleId"`
	ProposedPackage  string    `json:"proposedPackage"`
	ProposedAddOnIDs []string  `json:"proposedAddOnIds"`
	ProposedName     *string   `json:"proposedName,omitempty"`
	CostDelta        float64   `json:"costDelta"`
	Status           string    `json:"status"`
	Dispatched       bool      `json:"dispatched"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type catalogPackageItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Analytes []string `json:"analytes"`
}

type catalogAddOnItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price"`
	Description string   `json:"description,omitempty"`
	Analytes    []string `json:"analytes"`
}

type catalogResponse struct {
	Mode        string               `json:"mode"`
	SampleTypes []string             `json:"sampleTypes"`
	Packages    []catalogPackageItem `json:"packages"`
	AddOns      []catalogAddOnItem   `json:"addOns"`
}

func (h *SampleHandler) SubmitSample(c *fiber.Ctx) error {
	var req submitSampleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	mode, err := domain.ParseModeFromString(req.Mode)
	if err != nil {
		return toHTTPError(err)
	}

	sample := domain.Sample{
		FarmID:      req.FarmID,
		ContainerID: req.ContainerID,
		SampleName:  req.SampleName,
		Mode:        mode,
		SampleType:  req.SampleType,
		PackageID:   req.Package,
		AddOnIDs:    req.AddOns,
	}

	created, err := h.service.Submit(requestContext(c), &sample)
	if err != nil {
		return toHTTPError(err)
	}

	h.metrics.IncSampleSubmitted(created.SampleType)

	return c.Status(fiber.StatusCreated).JSON(h.toSampleResponse(created))
}

func (h *SampleHandler) GetSample(c *fiber.Ctx) error {
	sample, err := h.service.GetByID(requestContext(c), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(h.toSampleResponse(sample))
}

func (h *SampleHandler) SearchSamples(c *fiber.Ctx) error {
	var req searchSamplesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	mode, err := domain.ParseModeFromString(req.Mode)
	if err != nil {
		return toHTTPError(err)
	}

	spec, err := toFilterSpec(req)
	if err != nil {
		return toHTTPError(err)
	}

	samples, err := h.service.Search(requestContext(c), req.FarmID, mode, spec)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]sampleResponse, 0, len(samples))
	for i := range samples {
		data = append(data, h.toSampleResponse(&samples[i]))
	}

	return c.Status(fiber.StatusOK).JSON(searchSamplesResponse{
		Data: data,
		Meta: searchMeta{Total: len(data)},
	})
}

func (h *SampleHandler) ChangeConfiguration(c *fiber.Ctx) error {
	var req changeConfigurationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.ChangeConfiguration(requestContext(c), c.Params("id"), service.ConfigurationChange{
		Package:    req.Package,
		AddOns:     req.AddOns,
		SampleName: req.SampleName,
	})
	if err != nil {
		return toHTTPError(err)
	}

	h.metrics.IncConfigChange(result.Outcome.String())

	resp := changeResultResponse{
		Outcome:         result.Outcome.String(),
		CostDelta:       result.CostDelta,
		ChangeRequestID: result.ChangeRequestID,
	}
	if result.Sample != nil {
		sample := h.toSampleResponse(result.Sample)
		resp.Sample = &sample
	}

	status := fiber.StatusOK
	if result.Outcome == domain.ChangeNeedsApproval {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(resp)
}

func (h *SampleHandler) ListChangeRequests(c *fiber.Ctx) error {
	requests, err := h.service.ChangeRequests(requestContext(c), c.Params("id"))
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]changeRequestResponse, 0, len(requests))
	for i := range requests {
		data = append(data, toChangeRequestResponse(&requests[i]))
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": data})
}

func (h *SampleHandler) TransitionStatus(c *fiber.Ctx) error {
	var req transitionStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	next, err := domain.ParseStatusFromString(req.Status)
	if err != nil {
		return toHTTPError(err)
	}

	sample, err := h.service.TransitionStatus(requestContext(c), c.Params("id"), next)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(h.toSampleResponse(sample))
}

func (h *SampleHandler) DeleteSample(c *fiber.Ctx) error {
	if err := h.service.Delete(requestContext(c), c.Params("id")); err != nil {
		return toHTTPError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SampleHandler) GetCatalog(c *fiber.Ctx) error {
	mode, err := domain.ParseModeFromString(c.Params("mode"))
	if err != nil {
		return toHTTPError(err)
	}

	cat, err := catalog.ForMode(mode)
	if err != nil {
		return toHTTPError(err)
	}

	packages := make([]catalogPackageItem, 0)
	for _, pkg := range cat.Packages() {
		packages = append(packages, catalogPackageItem{
			ID:       pkg.ID,
			Name:     pkg.Name,
			Price:    pkg.Price,
			Analytes: pkg.Analytes,
		})
	}

	addOns := make([]catalogAddOnItem, 0)
	for _, addOn := range cat.AddOns() {
		addOns = append(addOns, catalogAddOnItem{
			ID:          addOn.ID,
			Name:        addOn.Name,
			Price:       addOn.Price,
			Description: addOn.Description,
			Analytes:    addOn.Analytes,
		})
	}

	return c.Status(fiber.StatusOK).JSON(catalogResponse{
		Mode:        mode.String(),
		SampleTypes: domain.SampleTypes(mode),
		Packages:    packages,
		AddOns:      addOns,
	})
}

func toFilterSpec(req searchSamplesRequest) (filter.Spec, error) {
	spec := filter.Spec{
		DateRange:     filter.DateRange(strings.ToLower(strings.TrimSpace(req.DateRange))),
		SampleTypes:   req.SampleTypes,
		Packages:      req.Packages,
		LabNumberFrom: strings.TrimSpace(req.LabNumberFrom),
		LabNumberTo:   strings.TrimSpace(req.LabNumberTo),
	}
	if !spec.DateRange.IsValid() {
		return filter.Spec{}, fmt.Errorf("%w: invalid dateRange %q", domain.ErrValidation, req.DateRange)
	}

	if spec.DateRange == filter.DateRangeCustom {
		start, err := parseRFC3339(req.CustomStart, "customStart")
		if err != nil {
			return filter.Spec{}, err
		}
		end, err := parseRFC3339(req.CustomEnd, "customEnd")
		if err != nil {
			return filter.Spec{}, err
		}
		spec.CustomStart = start
		spec.CustomEnd = end
	}

	for _, raw := range req.Statuses {
		status, err := domain.ParseStatusFromString(raw)
		if err != nil {
			return filter.Spec{}, err
		}
		spec.Statuses = append(spec.Statuses, status)
	}

	return spec, nil
}

func parseRFC3339(value string, field string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required for a custom range", domain.ErrValidation, field)
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return parsed, nil
}

func (h *SampleHandler) toSampleResponse(s *domain.Sample) sampleResponse {
	resp := sampleResponse{
		ID:             s.ID,
		LabNumber:      s.LabNumber,
		ContainerID:    s.ContainerID,
		SampleName:     s.SampleName,
		FarmID:         s.FarmID,
		Mode:           s.Mode.String(),
		SampleType:     s.SampleType,
		PackageID:      s.PackageID,
		AddOnIDs:       s.AddOnIDs,
		Status:         s.Status.String(),
		CompletedTests: s.CompletedTests,
		PendingTests:   s.PendingTests,
		SubmittedAgo:   h.estimator.RelativeAge(s.CreatedAt),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}

	if cat, err := catalog.ForMode(s.Mode); err == nil {
		resp.TotalPrice = pricing.LooseTotal(cat, pricing.Selection{Package: s.PackageID, AddOns: s.AddOnIDs})
	}

	if estimate, err := h.estimator.ExpectedCompletion(s.Status, s.CreatedAt); err == nil && estimate != nil {
		resp.ExpectedCompletion = &estimateResponse{
			Date:    estimate.Date.Format("2006-01-02"),
			Weekday: estimate.Weekday.String(),
		}
	}

	return resp
}

func toChangeRequestResponse(r *domain.ChangeRequest) changeRequestResponse {
	return changeRequestResponse{
		ID:               r.ID,
		SampleID:         r.SampleID,
		ProposedPackage:  r.ProposedPackage,
		ProposedAddOnIDs: r.ProposedAddOnIDs,
		ProposedName:     r.ProposedName,
		CostDelta:        r.CostDelta,
		Status:           r.Status.String(),
		Dispatched:       r.Dispatched,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	correlationID := strings.TrimSpace(c.Get("X-Correlation-ID"))
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return observability.WithCorrelationID(c.Context(), correlationID)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnknownCatalogEntry):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	default:
		return err
	}
}
