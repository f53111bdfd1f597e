package payment

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// paynowField is a single key/value pair from a Paynow response body.
// Paynow hashes fields in wire order, so parsed responses must keep
// the order the gateway sent them in.
type paynowField struct {
	key   string
	value string
}

// paynowResponse is an ordered form-encoded Paynow response
type paynowResponse []paynowField

// parsePaynowResponse parses a form-encoded body preserving field order
func parsePaynowResponse(body string) (paynowResponse, error) {
	var fields paynowResponse
	for _, pair := range strings.Split(strings.TrimSpace(body), "&") {
		if pair == "" {
			continue
		}
		key, rawValue, _ := strings.Cut(pair, "=")
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("malformed field %q: %w", key, err)
		}
		fields = append(fields, paynowField{key: strings.ToLower(key), value: value})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return fields, nil
}

// get returns the value of the named field, or "" when absent
func (r paynowResponse) get(key string) string {
	for _, f := range r {
		if f.key == key {
			return f.value
		}
	}
	return ""
}

// parsePaynowAmount parses the decimal amount Paynow echoes back
func parsePaynowAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}

// hashInput concatenates every field value except the hash itself,
// in wire order, which is the input Paynow signs
func (r paynowResponse) hashInput() string {
	var b strings.Builder
	for _, f := range r {
		if f.key == "hash" {
			continue
		}
		b.WriteString(f.value)
	}
	return b.String()
}
