package payment

import (
	"errors"
	"time"
)

const paynowDefaultInitiateURL = "https://www.paynow.co.zw/interface/initiatetransaction"

// PaynowConfig contains configuration for the Paynow merchant API
type PaynowConfig struct {
	// IntegrationID is the merchant integration ID issued by Paynow
	IntegrationID string
	// IntegrationKey is the shared secret used for request and response hashing
	IntegrationKey string
	// InitiateURL is the transaction initiation endpoint
	InitiateURL string
	// RequestTimeout bounds each call to the gateway
	RequestTimeout time.Duration
}

// Errors for configuration validation
var (
	ErrPaynowMissingIntegrationID  = errors.New("paynow: missing integration ID")
	ErrPaynowMissingIntegrationKey = errors.New("paynow: missing integration key")
)

// Validate validates the configuration and fills in defaults
func (c *PaynowConfig) Validate() error {
	if c.IntegrationID == "" {
		return ErrPaynowMissingIntegrationID
	}
	if c.IntegrationKey == "" {
		return ErrPaynowMissingIntegrationKey
	}
	if c.InitiateURL == "" {
		c.InitiateURL = paynowDefaultInitiateURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	return nil
}
