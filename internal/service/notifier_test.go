package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bnpl-credit-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPNotifier_Delivers(t *testing.T) {
	received := make(chan ports.NotificationEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event ports.NotificationEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, 2*time.Second, zerolog.Nop())
	event := ports.NotificationEvent{
		UserID:  uuid.New(),
		Kind:    "repayment",
		Amount:  dec("84.00"),
		Message: "Repayment of 84.00 received, 1 line(s) settled",
	}
	n.Notify(context.Background(), event)

	select {
	case got := <-received:
		assert.Equal(t, event.UserID, got.UserID)
		assert.Equal(t, "repayment", got.Kind)
		assert.True(t, got.Amount.Equal(dec("84.00")))
	case <-time.After(3 * time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestHTTPNotifier_NoEndpointConfigured(t *testing.T) {
	n := NewHTTPNotifier("", time.Second, zerolog.Nop())
	// Must be a no-op, not a panic or a hang.
	n.Notify(context.Background(), ports.NotificationEvent{UserID: uuid.New(), Kind: "repayment"})
}
