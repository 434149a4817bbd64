package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chris/stealth-ledger/pkg/api"
	"github.com/chris/stealth-ledger/pkg/chain/mocks"
	"github.com/chris/stealth-ledger/pkg/handlers/assets"
	"github.com/chris/stealth-ledger/pkg/handlers/balances"
	"github.com/chris/stealth-ledger/pkg/handlers/payments"
	"github.com/chris/stealth-ledger/pkg/handlers/withdrawals"
	"github.com/chris/stealth-ledger/pkg/inventory"
	"github.com/chris/stealth-ledger/pkg/ledger"
	"github.com/chris/stealth-ledger/pkg/storage/memory"
	"github.com/chris/stealth-ledger/pkg/withdrawal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	led := ledger.NewService(store, nil, logger)
	inv := inventory.NewService(store, store, nil, logger)
	wd := withdrawal.NewService(store, led, mocks.NewClient(t), "", time.Second, logger)

	h := NewApiHandler(
		payments.NewPaymentsHandler(led, nil),
		balances.NewBalancesHandler(led),
		withdrawals.NewWithdrawalsHandler(wd),
		assets.NewAssetsHandler(inv),
	)
	srv := httptest.NewServer(NewRouter(h, logger))
	t.Cleanup(srv.Close)
	return srv
}

func readEnvelope(t *testing.T, resp *http.Response) api.Envelope {
	t.Helper()
	defer resp.Body.Close()
	var env api.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestRouter(t *testing.T) {
	srv := newServer(t)

	t.Run("Health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Content-Type"))
		assert.True(t, readEnvelope(t, resp).Success)
	})

	t.Run("RecordThenRead", func(t *testing.T) {
		body := `{"txHash":"0xabc","stealthAddress":"0xs","payerAddress":"0xp","amount":"250000000",
			"tokenSymbol":"APT","tokenAddress":"0x1::aptos_coin::AptosCoin","decimals":8,"ephemeralPubkey":"0x02"}`
		resp, err := http.Post(srv.URL+"/users/alice/payments", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()

		resp, err = http.Get(srv.URL + "/users/alice/balances/lookup?token=0x1::aptos_coin::AptosCoin")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		env := readEnvelope(t, resp)
		data, ok := env.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "2.5", data["displayBalance"])
	})

	t.Run("BadPathParam", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/withdrawals/not-a-uuid")
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		env := readEnvelope(t, resp)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	})

	t.Run("MissingQueryParam", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/users/alice/balances/lookup")
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}
