package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/storyloft/storyloft/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h *testHarness, method, path string, payload []byte) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := h.app.Test(httptestRequest(method, path, payload), 5000)
	require.NoError(t, err)

	var body map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	h := newTestHarness(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/core/accounts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "acct_new", "display_name": "Narrator Studio", "contact_email": "studio@example.com"}`)
	})
	defer h.Close()

	payload := []byte(`{"user_id":"user_1","display_name":"Narrator Studio","contact_email":"studio@example.com"}`)
	resp, body := doJSON(t, h, http.MethodPost, "/api/v2/accounts", payload)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acct_new", body["account_id"])

	require.Len(t, h.accounts.created, 1)
	assert.Equal(t, "user_1", h.accounts.created[0].UserID)
	assert.Equal(t, "acct_new", h.accounts.created[0].AccountID)
}

func TestCreateAccountValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing user_id", payload: `{"display_name":"X","contact_email":"x@example.com"}`},
		{name: "missing display_name", payload: `{"user_id":"user_1","contact_email":"x@example.com"}`},
		{name: "invalid email", payload: `{"user_id":"user_1","display_name":"X","contact_email":"not-an-email"}`},
		{name: "malformed body", payload: `{"user_id":`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHarness(nil)
			defer h.Close()

			resp, _ := doJSON(t, h, http.MethodPost, "/api/v2/accounts", []byte(tc.payload))
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Empty(t, h.accounts.created)
		})
	}
}

func TestCreateAccountAlreadyExists(t *testing.T) {
	t.Parallel()

	h := newTestHarness(nil)
	defer h.Close()

	h.accounts.byUserID["user_1"] = &models.ConnectedAccount{UserID: "user_1", AccountID: "acct_old"}

	payload := []byte(`{"user_id":"user_1","display_name":"Narrator Studio","contact_email":"studio@example.com"}`)
	resp, body := doJSON(t, h, http.MethodPost, "/api/v2/accounts", payload)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User already has a connected account", body["error"])
	assert.Equal(t, "acct_old", body["account_id"])
	assert.Empty(t, h.accounts.created)
}

func TestAccountStatus(t *testing.T) {
	t.Parallel()

	var platformHits int
	h := newTestHarness(func(w http.ResponseWriter, r *http.Request) {
		platformHits++
		require.Equal(t, "/v2/core/accounts/acct_123", r.URL.Path)
		query := r.URL.Query()
		assert.ElementsMatch(t, []string{"configuration.merchant", "requirements"}, query["include"])
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "acct_123",
			"display_name": "Narrator Studio",
			"contact_email": "studio@example.com",
			"configuration": {"merchant": {"capabilities": {"card_payments": {"status": "active"}}}},
			"requirements": {"summary": {"minimum_deadline": {"status": "none"}}}
		}`)
	})
	defer h.Close()

	resp, body := doJSON(t, h, http.MethodGet, "/api/v2/accounts/status?accountId=acct_123", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acct_123", body["accountId"])
	assert.Equal(t, true, body["readyToProcessPayments"])
	assert.Equal(t, true, body["onboardingComplete"])
	assert.Equal(t, "none", body["requirementsStatus"])
	assert.Equal(t, 1, h.statusCache.sets)

	// The second lookup is served from the cache without another poll.
	resp, body = doJSON(t, h, http.MethodGet, "/api/v2/accounts/status?accountId=acct_123", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acct_123", body["accountId"])
	assert.Equal(t, 1, platformHits)
	assert.Equal(t, 1, h.statusCache.sets)
}

func TestAccountStatusIncompleteOnboarding(t *testing.T) {
	t.Parallel()

	h := newTestHarness(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "acct_456",
			"configuration": {"merchant": {"capabilities": {"card_payments": {"status": "pending"}}}},
			"requirements": {"summary": {"minimum_deadline": {"status": "currently_due"}}}
		}`)
	})
	defer h.Close()

	resp, body := doJSON(t, h, http.MethodGet, "/api/v2/accounts/status?accountId=acct_456", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["readyToProcessPayments"])
	assert.Equal(t, false, body["onboardingComplete"])
	assert.Equal(t, "currently_due", body["requirementsStatus"])
}

func TestAccountStatusMissingParam(t *testing.T) {
	t.Parallel()

	h := newTestHarness(nil)
	defer h.Close()

	resp, body := doJSON(t, h, http.MethodGet, "/api/v2/accounts/status", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing accountId query parameter", body["error"])
}

func TestGetUserAccount(t *testing.T) {
	t.Parallel()

	h := newTestHarness(nil)
	defer h.Close()

	h.accounts.byUserID["user_1"] = &models.ConnectedAccount{UserID: "user_1", AccountID: "acct_123"}

	resp, body := doJSON(t, h, http.MethodGet, "/api/v2/accounts/user?userId=user_1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acct_123", body["account_id"])
}

func TestGetUserAccountWithoutAccount(t *testing.T) {
	t.Parallel()

	h := newTestHarness(nil)
	defer h.Close()

	// No mapping is a normal state, not an error.
	resp, body := doJSON(t, h, http.MethodGet, "/api/v2/accounts/user?userId=user_unknown", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	val, present := body["account_id"]
	assert.True(t, present)
	assert.Nil(t, val)
}

func TestGetUserAccountMissingParam(t *testing.T) {
	t.Parallel()

	h := newTestHarness(nil)
	defer h.Close()

	resp, body := doJSON(t, h, http.MethodGet, "/api/v2/accounts/user", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing userId query parameter", body["error"])
}
