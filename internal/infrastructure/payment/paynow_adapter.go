package payment

import (
	"context"
	"crypto/sha512"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Ashtonex/maasim/internal/domain/order"
	"github.com/Ashtonex/maasim/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// PaynowAdapter implements the payment gateway port against the Paynow
// merchant API. All calls are form-encoded POSTs signed with a SHA512
// hash of the field values and the integration key.
type PaynowAdapter struct {
	config     *PaynowConfig
	httpClient *http.Client
}

// NewPaynowAdapter creates a Paynow gateway adapter
func NewPaynowAdapter(config *PaynowConfig) (*PaynowAdapter, error) {
	if config == nil {
		return nil, fmt.Errorf("paynow config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid paynow config: %w", err)
	}
	return &PaynowAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout,
		},
	}, nil
}

// CreatePayment registers the payment with Paynow and returns the browser
// redirect URL plus the poll URL Paynow assigns for later status checks.
func (a *PaynowAdapter) CreatePayment(ctx context.Context, req *order.CreatePaymentRequest) (*order.CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Field order matters: the hash covers the values in posted order.
	keys := []string{"id", "reference", "amount", "additionalinfo", "returnurl", "resulturl", "authemail", "status"}
	values := map[string]string{
		"id":             a.config.IntegrationID,
		"reference":      req.Reference,
		"amount":         req.Amount.Amount().StringFixed(2),
		"additionalinfo": req.ItemName,
		"returnurl":      req.ReturnURL,
		"resulturl":      req.ResultURL,
		"authemail":      req.PayerEmail,
		"status":         "Message",
	}

	form := url.Values{}
	var hashInput strings.Builder
	for _, k := range keys {
		form.Set(k, values[k])
		hashInput.WriteString(values[k])
	}
	form.Set("hash", a.sign(hashInput.String()))

	resp, err := a.doRequest(ctx, a.config.InitiateURL, form)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(resp.get("status"), "Ok") {
		reason := resp.get("error")
		if reason == "" {
			reason = resp.get("status")
		}
		return nil, fmt.Errorf("%w: %s", order.ErrGatewayRequestFailed, reason)
	}
	if err := a.verifyHash(resp); err != nil {
		return nil, err
	}

	return &order.CreatePaymentResponse{
		RedirectURL:   resp.get("browserurl"),
		PollReference: resp.get("pollurl"),
	}, nil
}

// PollPayment fetches the current transaction state from the poll URL
// returned at creation. It never mutates anything on the gateway side.
func (a *PaynowAdapter) PollPayment(ctx context.Context, pollReference string) (*order.PollResult, error) {
	if pollReference == "" {
		return nil, fmt.Errorf("%w: empty poll reference", order.ErrGatewayRequestFailed)
	}

	resp, err := a.doRequest(ctx, pollReference, url.Values{})
	if err != nil {
		return nil, err
	}
	if err := a.verifyHash(resp); err != nil {
		return nil, err
	}

	result := &order.PollResult{
		Status:           mapPaynowStatus(resp.get("status")),
		Reference:        resp.get("reference"),
		GatewayReference: resp.get("paynowreference"),
		PayerEmail:       resp.get("authemail"),
	}
	if raw := resp.get("amount"); raw != "" {
		amount, err := parsePaynowAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", order.ErrGatewayInvalidResponse, err)
		}
		result.Amount = amount
	}
	return result, nil
}

// doRequest posts the form and parses the order-preserving response body
func (a *PaynowAdapter) doRequest(ctx context.Context, endpoint string, form url.Values) (paynowResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "paynow.request",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentGateway, "paynow"))
	defer span.End()

	resp, err := a.post(ctx, endpoint, form)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return resp, err
}

func (a *PaynowAdapter) post(ctx context.Context, endpoint string, form url.Values) (paynowResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", order.ErrGatewayUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", order.ErrGatewayUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http status %d", order.ErrGatewayUnavailable, httpResp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", order.ErrGatewayUnavailable, err)
	}

	resp, err := parsePaynowResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", order.ErrGatewayInvalidResponse, err)
	}
	return resp, nil
}

// sign computes the uppercase SHA512 hex digest over the concatenated
// field values followed by the integration key
func (a *PaynowAdapter) sign(input string) string {
	sum := sha512.Sum512([]byte(input + a.config.IntegrationKey))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// verifyHash checks the hash field Paynow sends with every response
func (a *PaynowAdapter) verifyHash(resp paynowResponse) error {
	received := resp.get("hash")
	if received == "" {
		return fmt.Errorf("%w: missing response hash", order.ErrGatewayInvalidResponse)
	}
	if !strings.EqualFold(received, a.sign(resp.hashInput())) {
		return fmt.Errorf("%w: response hash mismatch", order.ErrGatewayInvalidResponse)
	}
	return nil
}

// mapPaynowStatus maps Paynow transaction statuses onto gateway statuses
func mapPaynowStatus(status string) order.PaymentStatus {
	switch strings.ToLower(status) {
	case "paid", "awaiting delivery", "delivered":
		return order.PaymentStatusPaid
	case "created", "sent":
		return order.PaymentStatusPending
	case "cancelled", "failed", "disputed", "refunded":
		return order.PaymentStatusFailed
	default:
		return order.PaymentStatusUnknown
	}
}

var _ order.PaymentGateway = (*PaynowAdapter)(nil)
