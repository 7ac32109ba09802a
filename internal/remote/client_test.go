package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sky-zhang01/punchpilot-sub001/internal/core/model"
	"github.com/sky-zhang01/punchpilot-sub001/internal/remote"
)

type plainDecrypter struct{}

func (plainDecrypter) Decrypt(c string) (string, error) { return c, nil }

func TestGetClockEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-08-28", r.URL.Query().Get("date"))
		json.NewEncoder(w).Encode(map[string]any{
			"events": []map[string]any{
				{"kind": "checkin", "at": "2026-08-28T09:01:00+08:00"},
				{"kind": "checkout", "at": "2026-08-28T18:20:00+08:00"},
			},
		})
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL, "acme", plainDecrypter{}, "secret-token")
	events, err := c.GetClockEvents(context.Background(), "2026-08-28")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.ActionCheckIn, events[0].Kind)
	assert.Equal(t, model.ActionCheckOut, events[1].Kind)
}

func TestDirectWriteRejectionIsTypedAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "EDIT_NOT_ALLOWED",
			"message": "direct record edits are disabled for this company",
		})
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL, "acme", plainDecrypter{}, "tok")
	err := c.DirectWrite(context.Background(), model.Operation{
		Kind: model.OpCorrection, Action: model.ActionCheckIn,
		Date: "2026-08-28", Time: "09:00",
	})
	require.Error(t, err)

	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "EDIT_NOT_ALLOWED", apiErr.Code)
	assert.Equal(t, model.FailurePermission, remote.DefaultClassifier(err))
}

func TestServerErrorClassifiedTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL, "acme", plainDecrypter{}, "tok")
	err := c.PunchEvent(context.Background(), model.Operation{
		Kind: model.OpClock, Action: model.ActionCheckIn, Date: "2026-08-28",
	})
	require.Error(t, err)
	assert.Equal(t, model.FailureTransient, remote.DefaultClassifier(err))
}

func TestNetworkErrorClassifiedTransient(t *testing.T) {
	c := remote.NewClient("http://127.0.0.1:1", "acme", plainDecrypter{}, "tok")
	err := c.PunchEvent(context.Background(), model.Operation{
		Kind: model.OpClock, Action: model.ActionCheckOut, Date: "2026-08-28",
	})
	require.Error(t, err)
	assert.Equal(t, model.FailureTransient, remote.DefaultClassifier(err))
}
