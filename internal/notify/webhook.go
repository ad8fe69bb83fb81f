package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/agrolab/sample-engine/internal/domain"
)

const defaultWebhookTimeout = 10 * time.Second

// Notifier is the outbound port for telling a farm its results are ready.
type Notifier interface {
	SampleCompleted(ctx context.Context, sample domain.Sample) error
}

type completionPayload struct {
	SampleID   string   `json:"sampleId"`
	LabNumber  string   `json:"labNumber,omitempty"`
	FarmID     string   `json:"farmId"`
	SampleName string   `json:"sampleName,omitempty"`
	SampleType string   `json:"sampleType"`
	Analytes   []string `json:"analytes"`
}

// WebhookNotifier POSTs a completion callback to a configured endpoint.
type WebhookNotifier struct {
	client   *resty.Client
	endpoint string
}

func NewWebhookNotifier(endpoint string) (*WebhookNotifier, error) {
	client := resty.New()
	client.SetTimeout(defaultWebhookTimeout)
	client.SetRetryCount(0)

	return NewWebhookNotifierWithClient(endpoint, client)
}

func NewWebhookNotifierWithClient(endpoint string, client *resty.Client) (*WebhookNotifier, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("webhook endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid webhook endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultWebhookTimeout)
	}
	client.SetRetryCount(0)

	return &WebhookNotifier{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (n *WebhookNotifier) SampleCompleted(ctx context.Context, sample domain.Sample) error {
	if n == nil || n.client == nil {
		return fmt.Errorf("notifier is not initialized")
	}

	payload := completionPayload{
		SampleID:   sample.ID,
		LabNumber:  sample.LabNumber,
		FarmID:     sample.FarmID,
		SampleName: sample.SampleName,
		SampleType: sample.SampleType,
		Analytes:   sample.CompletedTests,
	}

	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.endpoint)
	if err != nil {
		return &DeliveryError{
			Message:   "completion callback failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &DeliveryError{
			Message:   "completion callback returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &DeliveryError{
		StatusCode: statusCode,
		Message:    callbackErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func callbackErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("endpoint returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
