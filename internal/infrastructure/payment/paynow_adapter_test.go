package payment

import (
	"context"
	"crypto/sha512"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashtonex/maasim/internal/domain/order"
	"github.com/Ashtonex/maasim/internal/domain/shared/valueobject"
)

const testIntegrationKey = "3e9fed89-60e1-4ce5-ab6e-6b1eb2d4f977"

// createTestPaynowConfig creates a test PaynowConfig pointed at the given endpoint
func createTestPaynowConfig(initiateURL string) *PaynowConfig {
	return &PaynowConfig{
		IntegrationID:  "12345",
		IntegrationKey: testIntegrationKey,
		InitiateURL:    initiateURL,
		RequestTimeout: 5 * time.Second,
	}
}

// signTestValues reproduces the gateway side of the hash: SHA512 over the
// concatenated values plus the integration key, uppercase hex
func signTestValues(values ...string) string {
	sum := sha512.Sum512([]byte(strings.Join(values, "") + testIntegrationKey))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// encodeTestResponse builds an order-preserving form body from key/value pairs
func encodeTestResponse(pairs ...[2]string) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p[0]+"="+url.QueryEscape(p[1]))
	}
	return strings.Join(parts, "&")
}

func createTestPaymentRequest() *order.CreatePaymentRequest {
	return &order.CreatePaymentRequest{
		Reference:  "MAASIM-1A2B3C4D5E6F",
		PayerEmail: "reader@example.com",
		ItemName:   "The Silent Patient",
		Amount:     valueobject.NewMoneyUSDFromFloat(9.99),
		ReturnURL:  "https://shop.example.com/checkout/return",
		ResultURL:  "https://shop.example.com/api/payments/paynow",
	}
}

func TestPaynowConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *PaynowConfig
		wantErr error
	}{
		{
			name: "valid config",
			config: &PaynowConfig{
				IntegrationID:  "12345",
				IntegrationKey: testIntegrationKey,
			},
			wantErr: nil,
		},
		{
			name: "missing integration ID",
			config: &PaynowConfig{
				IntegrationKey: testIntegrationKey,
			},
			wantErr: ErrPaynowMissingIntegrationID,
		},
		{
			name: "missing integration key",
			config: &PaynowConfig{
				IntegrationID: "12345",
			},
			wantErr: ErrPaynowMissingIntegrationKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPaynowConfig_Defaults(t *testing.T) {
	config := &PaynowConfig{
		IntegrationID:  "12345",
		IntegrationKey: testIntegrationKey,
	}
	require.NoError(t, config.Validate())
	assert.Equal(t, paynowDefaultInitiateURL, config.InitiateURL)
	assert.Equal(t, 10*time.Second, config.RequestTimeout)
}

func TestNewPaynowAdapter(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		adapter, err := NewPaynowAdapter(createTestPaynowConfig(""))
		require.NoError(t, err)
		assert.NotNil(t, adapter)
	})

	t.Run("nil config", func(t *testing.T) {
		adapter, err := NewPaynowAdapter(nil)
		assert.Error(t, err)
		assert.Nil(t, adapter)
	})

	t.Run("invalid config", func(t *testing.T) {
		adapter, err := NewPaynowAdapter(&PaynowConfig{})
		assert.ErrorIs(t, err, ErrPaynowMissingIntegrationID)
		assert.Nil(t, adapter)
	})
}

func TestPaynowAdapter_CreatePayment_Validation(t *testing.T) {
	adapter, err := NewPaynowAdapter(createTestPaynowConfig(""))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(req *order.CreatePaymentRequest)
	}{
		{
			name:   "missing reference",
			mutate: func(req *order.CreatePaymentRequest) { req.Reference = "" },
		},
		{
			name:   "missing payer email",
			mutate: func(req *order.CreatePaymentRequest) { req.PayerEmail = "" },
		},
		{
			name:   "missing item name",
			mutate: func(req *order.CreatePaymentRequest) { req.ItemName = "" },
		},
		{
			name:   "zero amount",
			mutate: func(req *order.CreatePaymentRequest) { req.Amount = valueobject.ZeroUSD() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createTestPaymentRequest()
			tt.mutate(req)
			_, err := adapter.CreatePayment(context.Background(), req)
			assert.ErrorIs(t, err, order.ErrPaymentInvalidRequest)
		})
	}
}

func TestPaynowAdapter_CreatePayment(t *testing.T) {
	const (
		browserURL = "https://www.paynow.co.zw/payment/confirm/abc123"
		pollURL    = "https://www.paynow.co.zw/interface/pollstatus?guid=abc123"
	)

	var receivedForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		receivedForm = r.PostForm

		body := encodeTestResponse(
			[2]string{"status", "Ok"},
			[2]string{"browserurl", browserURL},
			[2]string{"pollurl", pollURL},
			[2]string{"hash", signTestValues("Ok", browserURL, pollURL)},
		)
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	adapter, err := NewPaynowAdapter(createTestPaynowConfig(server.URL))
	require.NoError(t, err)

	resp, err := adapter.CreatePayment(context.Background(), createTestPaymentRequest())
	require.NoError(t, err)
	assert.Equal(t, browserURL, resp.RedirectURL)
	assert.Equal(t, pollURL, resp.PollReference)

	// The initiate request carries the merchant fields and a valid hash
	assert.Equal(t, "12345", receivedForm.Get("id"))
	assert.Equal(t, "MAASIM-1A2B3C4D5E6F", receivedForm.Get("reference"))
	assert.Equal(t, "9.99", receivedForm.Get("amount"))
	assert.Equal(t, "The Silent Patient", receivedForm.Get("additionalinfo"))
	assert.Equal(t, "reader@example.com", receivedForm.Get("authemail"))
	assert.Equal(t, "Message", receivedForm.Get("status"))

	wantHash := signTestValues(
		receivedForm.Get("id"),
		receivedForm.Get("reference"),
		receivedForm.Get("amount"),
		receivedForm.Get("additionalinfo"),
		receivedForm.Get("returnurl"),
		receivedForm.Get("resulturl"),
		receivedForm.Get("authemail"),
		receivedForm.Get("status"),
	)
	assert.Equal(t, wantHash, receivedForm.Get("hash"))
}

func TestPaynowAdapter_CreatePayment_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "status=Error&error=Invalid+integration+id")
	}))
	defer server.Close()

	adapter, err := NewPaynowAdapter(createTestPaynowConfig(server.URL))
	require.NoError(t, err)

	_, err = adapter.CreatePayment(context.Background(), createTestPaymentRequest())
	assert.ErrorIs(t, err, order.ErrGatewayRequestFailed)
	assert.Contains(t, err.Error(), "Invalid integration id")
}

func TestPaynowAdapter_CreatePayment_HashMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := encodeTestResponse(
			[2]string{"status", "Ok"},
			[2]string{"browserurl", "https://www.paynow.co.zw/payment/confirm/abc123"},
			[2]string{"pollurl", "https://www.paynow.co.zw/interface/pollstatus?guid=abc123"},
			[2]string{"hash", "DEADBEEF"},
		)
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	adapter, err := NewPaynowAdapter(createTestPaynowConfig(server.URL))
	require.NoError(t, err)

	_, err = adapter.CreatePayment(context.Background(), createTestPaymentRequest())
	assert.ErrorIs(t, err, order.ErrGatewayInvalidResponse)
}

func TestPaynowAdapter_CreatePayment_Unavailable(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		adapter, err := NewPaynowAdapter(createTestPaynowConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.CreatePayment(context.Background(), createTestPaymentRequest())
		assert.ErrorIs(t, err, order.ErrGatewayUnavailable)
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // closed before any request

		adapter, err := NewPaynowAdapter(createTestPaynowConfig(server.URL))
		require.NoError(t, err)

		_, err = adapter.CreatePayment(context.Background(), createTestPaymentRequest())
		assert.ErrorIs(t, err, order.ErrGatewayUnavailable)
	})
}

func TestPaynowAdapter_PollPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := encodeTestResponse(
			[2]string{"reference", "MAASIM-1A2B3C4D5E6F"},
			[2]string{"paynowreference", "987654"},
			[2]string{"amount", "9.99"},
			[2]string{"status", "Paid"},
			[2]string{"hash", signTestValues("MAASIM-1A2B3C4D5E6F", "987654", "9.99", "Paid")},
		)
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	adapter, err := NewPaynowAdapter(createTestPaynowConfig(""))
	require.NoError(t, err)

	result, err := adapter.PollPayment(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusPaid, result.Status)
	assert.Equal(t, "MAASIM-1A2B3C4D5E6F", result.Reference)
	assert.Equal(t, "987654", result.GatewayReference)
	assert.Equal(t, "9.99", result.Amount.StringFixed(2))
}

func TestPaynowAdapter_PollPayment_HashMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := encodeTestResponse(
			[2]string{"reference", "MAASIM-1A2B3C4D5E6F"},
			[2]string{"amount", "9.99"},
			[2]string{"status", "Paid"},
			[2]string{"hash", "DEADBEEF"},
		)
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	adapter, err := NewPaynowAdapter(createTestPaynowConfig(""))
	require.NoError(t, err)

	_, err = adapter.PollPayment(context.Background(), server.URL)
	assert.ErrorIs(t, err, order.ErrGatewayInvalidResponse)
}

func TestPaynowAdapter_PollPayment_MissingHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "reference=MAASIM-1A2B3C4D5E6F&status=Paid")
	}))
	defer server.Close()

	adapter, err := NewPaynowAdapter(createTestPaynowConfig(""))
	require.NoError(t, err)

	_, err = adapter.PollPayment(context.Background(), server.URL)
	assert.ErrorIs(t, err, order.ErrGatewayInvalidResponse)
}

func TestPaynowAdapter_PollPayment_EmptyReference(t *testing.T) {
	adapter, err := NewPaynowAdapter(createTestPaynowConfig(""))
	require.NoError(t, err)

	_, err = adapter.PollPayment(context.Background(), "")
	assert.ErrorIs(t, err, order.ErrGatewayRequestFailed)
}

func TestMapPaynowStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected order.PaymentStatus
	}{
		{"Paid", order.PaymentStatusPaid},
		{"Awaiting Delivery", order.PaymentStatusPaid},
		{"Delivered", order.PaymentStatusPaid},
		{"Created", order.PaymentStatusPending},
		{"Sent", order.PaymentStatusPending},
		{"Cancelled", order.PaymentStatusFailed},
		{"Failed", order.PaymentStatusFailed},
		{"Disputed", order.PaymentStatusFailed},
		{"Refunded", order.PaymentStatusFailed},
		{"paid", order.PaymentStatusPaid},
		{"Something Else", order.PaymentStatusUnknown},
		{"", order.PaymentStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapPaynowStatus(tt.input))
		})
	}
}

func TestParsePaynowResponse(t *testing.T) {
	t.Run("preserves wire order for hashing", func(t *testing.T) {
		resp, err := parsePaynowResponse("b=2&a=1&hash=XYZ&c=3")
		require.NoError(t, err)
		assert.Equal(t, "213", resp.hashInput())
		assert.Equal(t, "XYZ", resp.get("hash"))
	})

	t.Run("decodes url escapes", func(t *testing.T) {
		resp, err := parsePaynowResponse("status=Awaiting+Delivery&pollurl=https%3A%2F%2Fexample.com%2Fpoll%3Fguid%3D1")
		require.NoError(t, err)
		assert.Equal(t, "Awaiting Delivery", resp.get("status"))
		assert.Equal(t, "https://example.com/poll?guid=1", resp.get("pollurl"))
	})

	t.Run("keys are case insensitive", func(t *testing.T) {
		resp, err := parsePaynowResponse("Status=Ok&BrowserUrl=https%3A%2F%2Fexample.com")
		require.NoError(t, err)
		assert.Equal(t, "Ok", resp.get("status"))
		assert.Equal(t, "https://example.com", resp.get("browserurl"))
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := parsePaynowResponse("")
		assert.Error(t, err)
	})
}
