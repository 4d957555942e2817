package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pathofhideout/vouchbot/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendVouch(t *testing.T) {
	var received postVouchRequest
	var path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewWebhook(srv.URL, "secret", zap.NewNop())
	err := client.SendVouch(context.Background(), &types.Vouch{
		MessageID: "111111111111111111",
		VoucherID: "222222222222222222",
		VouchedID: "333333333333333333",
		Amount:    -1,
		Reason:    "late delivery",
		CreatedAt: time.Now(),
	})

	require.NoError(t, err)
	assert.Equal(t, "/vouch", path)
	assert.Equal(t, "111111111111111111", received.OriginID)
	assert.Equal(t, "333333333333333333", received.Buyer)
	assert.Equal(t, "222222222222222222", received.Seller)
	assert.True(t, received.IsNegative)
	assert.Equal(t, "late delivery", received.Detail)
	assert.Equal(t, "secret", received.Token)
}

func TestDeleteVouch(t *testing.T) {
	var received deleteVouchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewWebhook(srv.URL, "secret", zap.NewNop())
	require.NoError(t, client.DeleteVouch(context.Background(), "111111111111111111"))
	assert.Equal(t, "111111111111111111", received.OriginID)
}

func TestPostDoesNotRetryClientErrors(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewWebhook(srv.URL, "secret", zap.NewNop())
	err := client.DeleteVouch(context.Background(), "111111111111111111")

	assert.ErrorIs(t, err, ErrUnexpectedStatusCode)
	assert.Equal(t, 1, calls)
}

func TestPostRetriesServerErrors(t *testing.T) {
	var calls int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewWebhook(srv.URL, "secret", zap.NewNop())
	assert.NoError(t, client.DeleteVouch(context.Background(), "111111111111111111"))
	assert.Equal(t, 3, calls)
}
