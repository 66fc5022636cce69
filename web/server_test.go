package web

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AvatarElite/core"
	"AvatarElite/ledger"
	"AvatarElite/payment"
	"AvatarElite/storage"
)

func testServer() *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	conf := &core.Config{}
	conf.Stripe.SecretKey = "sk_test_123"
	conf.Stripe.WebhookSecret = "whsec_test_123"

	payments := payment.NewService(conf, log)
	led := ledger.New(storage.NewMemoryStorage(), log)
	return New(":0", payments, led, log)
}

func TestHealth(t *testing.T) {
	srv := testServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.http.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestWebhook_RejectsMissingSignature(t *testing.T) {
	srv := testServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{}`))
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	srv := testServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	srv.http.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "webhook error")
}
