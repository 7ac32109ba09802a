// Package remote is the thin protocol wrapper around the external HR
// backend. It exposes one method per write route plus the clock-event
// query, returns typed errors, and shields the backend with a circuit
// breaker so a struggling HR system is not hammered by every tick.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/ports"
)

// ClockEvent is one recorded punch returned by the state query.
type ClockEvent struct {
	Kind model.ActionKind `json:"kind"`
	At   time.Time        `json:"at"`
}

// Client issues authenticated calls against the HR API.
type Client struct {
	http    *http.Client
	baseURL string
	company string

	decrypter ports.Decrypter
	cipher    string
	tokenOnce sync.Once
	token     string
	tokenErr  error

	cb *gobreaker.CircuitBreaker
}

// NewClient builds a client for the backend at baseURL. The credential is
// handed over encrypted and only decrypted on first use.
func NewClient(baseURL, company string, decrypter ports.Decrypter, credentialCipher string) *Client {
	settings := gobreaker.Settings{
		Name:        "hr-api",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
	}

	return &Client{
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:   baseURL,
		company:   company,
		decrypter: decrypter,
		cipher:    credentialCipher,
		cb:        gobreaker.NewCircuitBreaker(settings),
	}
}

// GetClockEvents returns the punches recorded for date, oldest first.
func (c *Client) GetClockEvents(ctx context.Context, date string) ([]ClockEvent, error) {
	var out struct {
		Events []ClockEvent `json:"events"`
	}
	path := fmt.Sprintf("/api/v1/attendance/events?date=%s&company=%s", date, c.company)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

// DirectWrite writes an attendance record straight into the backend.
// Many company configurations reject this route with a permission error.
func (c *Client) DirectWrite(ctx context.Context, op model.Operation) error {
	payload := map[string]any{
		"company": c.company,
		"date":    op.Date,
		"kind":    op.Kind,
		"action":  op.Action,
		"time":    op.Time,
		"note":    op.Reason,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/attendance/records", payload, nil)
}

// SubmitApproval files the same change as an approval request instead of a
// direct record write.
func (c *Client) SubmitApproval(ctx context.Context, op model.Operation) error {
	payload := map[string]any{
		"company":   c.company,
		"date":      op.Date,
		"kind":      op.Kind,
		"action":    op.Action,
		"time":      op.Time,
		"half_day":  op.HalfDay,
		"leaveType": op.LeaveType,
		"reason":    op.Reason,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/approvals", payload, nil)
}

// PunchEvent emits a raw punch event, the route the mobile clients use.
func (c *Client) PunchEvent(ctx context.Context, op model.Operation) error {
	payload := map[string]any{
		"company": c.company,
		"action":  op.Action,
		"date":    op.Date,
	}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/punch", payload, nil)
}

// Withdraw cancels a previously submitted approval request.
func (c *Client) Withdraw(ctx context.Context, op model.Operation) error {
	path := fmt.Sprintf("/api/v1/approvals/%s/withdraw", op.RequestID)
	return c.doJSON(ctx, http.MethodPost, path, map[string]any{"company": c.company}, nil)
}

func (c *Client) bearer() (string, error) {
	c.tokenOnce.Do(func() {
		c.token, c.tokenErr = c.decrypter.Decrypt(c.cipher)
	})
	return c.token, c.tokenErr
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	token, err := c.bearer()
	if err != nil {
		return fmt.Errorf("decrypting HR credential: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling HR API payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating HR API request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.cb.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("calling HR API: %w", err)
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if resp.StatusCode >= 300 {
			return nil, newAPIError(resp.StatusCode, data)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	raw, _ := res.([]byte)
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding HR API response: %w", err)
		}
	}
	return nil
}
