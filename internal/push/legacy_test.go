package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
)

func TestLegacyHTTPGatewaySendOneDelivered(t *testing.T) {
	t.Parallel()

	var gotBody legacyRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "key=srv-key" {
			t.Errorf("authorization = %q, want key=srv-key", auth)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":1,"failure":0,"results":[{"message_id":"m-1"}]}`))
	}))
	defer server.Close()

	gateway, err := NewLegacyHTTPGateway(server.URL, "srv-key")
	if err != nil {
		t.Fatalf("NewLegacyHTTPGateway() error = %v", err)
	}

	endpoint := domain.DeviceEndpoint{Token: "tok-1", Platform: domain.PlatformAndroid}
	outcome, err := gateway.SendOne(context.Background(), endpoint, testIntent())
	if err != nil {
		t.Fatalf("SendOne() unexpected error = %v", err)
	}
	if outcome.Status != domain.OutcomeDelivered || outcome.ProviderMessageID != "m-1" {
		t.Fatalf("outcome = %+v, want delivered m-1", outcome)
	}

	if gotBody.To != "tok-1" {
		t.Fatalf("request.to = %q, want tok-1", gotBody.To)
	}
	if gotBody.Notification.Title != "Order update" {
		t.Fatalf("request.notification.title = %q, want Order update", gotBody.Notification.Title)
	}
}

func TestLegacyHTTPGatewaySendOneTokenErrorIsInvalid(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":0,"failure":1,"results":[{"error":"NotRegistered"}]}`))
	}))
	defer server.Close()

	gateway, err := NewLegacyHTTPGateway(server.URL, "srv-key")
	if err != nil {
		t.Fatalf("NewLegacyHTTPGateway() error = %v", err)
	}

	endpoint := domain.DeviceEndpoint{Token: "tok-dead", Platform: domain.PlatformAndroid}
	outcome, err := gateway.SendOne(context.Background(), endpoint, testIntent())
	if err != nil {
		t.Fatalf("SendOne() unexpected error = %v (invalid tokens are not transport errors)", err)
	}
	if outcome.Status != domain.OutcomeInvalid {
		t.Fatalf("Status = %s, want %s", outcome.Status, domain.OutcomeInvalid)
	}
}

func TestLegacyHTTPGatewaySendManyPartialInvalid(t *testing.T) {
	t.Parallel()

	var gotBody legacyRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": 1,
			"failure": 2,
			"results": [
				{"message_id": "m-1"},
				{"error": "NotRegistered"},
				{"error": "Unavailable"}
			]
		}`))
	}))
	defer server.Close()

	gateway, err := NewLegacyHTTPGateway(server.URL, "srv-key")
	if err != nil {
		t.Fatalf("NewLegacyHTTPGateway() error = %v", err)
	}

	endpoints := []domain.DeviceEndpoint{
		{Token: "tok-1", Platform: domain.PlatformAndroid},
		{Token: "tok-dead", Platform: domain.PlatformAndroid},
		{Token: "tok-2", Platform: domain.PlatformIOS},
	}
	batch, err := gateway.SendMany(context.Background(), endpoints, testIntent())
	if err != nil {
		t.Fatalf("SendMany() unexpected error = %v", err)
	}

	if batch.SuccessCount != 1 || batch.FailureCount != 2 {
		t.Fatalf("counts = %d/%d, want 1/2", batch.SuccessCount, batch.FailureCount)
	}
	if len(batch.InvalidEndpoints) != 1 || batch.InvalidEndpoints[0].Token != "tok-dead" {
		t.Fatalf("InvalidEndpoints = %v, want [tok-dead]", batch.InvalidEndpoints)
	}
	if batch.PerEndpoint[2].Status != domain.OutcomeTransient {
		t.Fatalf("third outcome = %s, want %s", batch.PerEndpoint[2].Status, domain.OutcomeTransient)
	}
	if len(gotBody.RegistrationIDs) != 3 {
		t.Fatalf("registration_ids = %v, want 3 tokens", gotBody.RegistrationIDs)
	}
}

func TestLegacyHTTPGatewaySendManyServerErrorFailsWholeBatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gateway, err := NewLegacyHTTPGateway(server.URL, "srv-key")
	if err != nil {
		t.Fatalf("NewLegacyHTTPGateway() error = %v", err)
	}

	endpoints := []domain.DeviceEndpoint{{Token: "tok-1", Platform: domain.PlatformAndroid}}
	_, err = gateway.SendMany(context.Background(), endpoints, testIntent())

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("SendMany() error = %v, want *ProviderError", err)
	}
	if !providerErr.Transient {
		t.Fatal("500 response should classify as transient")
	}
	if !IsTransient(err) {
		t.Fatal("IsTransient() should report true for a 500 response")
	}
}

func TestLegacyHTTPGatewaySendManyZeroEndpointsSkipsProvider(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be contacted for zero endpoints")
	}))
	defer server.Close()

	gateway, err := NewLegacyHTTPGateway(server.URL, "srv-key")
	if err != nil {
		t.Fatalf("NewLegacyHTTPGateway() error = %v", err)
	}

	batch, err := gateway.SendMany(context.Background(), nil, testIntent())
	if err != nil {
		t.Fatalf("SendMany() unexpected error = %v", err)
	}
	if batch.SuccessCount != 0 || batch.FailureCount != 0 || len(batch.InvalidEndpoints) != 0 {
		t.Fatalf("batch = %+v, want all-zero", batch)
	}
}
