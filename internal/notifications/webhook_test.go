package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhook_Notify(t *testing.T) {
	var received Message
	var gotAuth bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		gotAuth = ok && user == "sentry" && pass == "secret"
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hook := &Webhook{URL: server.URL, Username: "sentry", Password: "secret"}
	err := hook.Notify(EventCreate, OutcomeFailure, map[string]string{"error_kind": "too-soon"})
	if err != nil {
		t.Fatalf("Notify() unexpected error: %v", err)
	}

	if !gotAuth {
		t.Error("basic auth credentials were not sent")
	}
	if received.Service != "restoresentry" {
		t.Errorf("Service = %q, want restoresentry", received.Service)
	}
	if received.Event != EventCreate || received.Outcome != OutcomeFailure {
		t.Errorf("event/outcome = %s/%s, want create/failure", received.Event, received.Outcome)
	}
	if received.Details["error_kind"] != "too-soon" {
		t.Errorf("Details = %v, want error_kind=too-soon", received.Details)
	}
}

func TestWebhook_Notify_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	hook := &Webhook{URL: server.URL}
	if err := hook.Notify(EventDelete, OutcomeSuccess, nil); err == nil {
		t.Error("Notify() expected error for 502 response")
	}
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(Event, Outcome, map[string]string) error {
	c.calls++
	return c.err
}

func TestFanout_TriesAllTransports(t *testing.T) {
	failing := &countingNotifier{err: errors.New("down")}
	working := &countingNotifier{}

	err := Fanout{failing, working}.Notify(EventApply, OutcomeSuccess, nil)
	if err == nil {
		t.Error("Fanout should report the first failure")
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1: one failing transport must not stop the rest", failing.calls, working.calls)
	}
}
