package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dd0wney/cluso-anomaly/pkg/checkpoint"
)

func fixed(status Status) CheckFunc {
	return func(context.Context) Check { return Check{Status: status} }
}

func TestCheck_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"no checks", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for i, s := range tt.statuses {
				c.Register(string(rune('a'+i)), fixed(s))
			}
			resp := c.Check(context.Background())
			if resp.Status != tt.want {
				t.Errorf("Status = %s, want %s", resp.Status, tt.want)
			}
			if len(resp.Checks) != len(tt.statuses) {
				t.Errorf("len(Checks) = %d, want %d", len(resp.Checks), len(tt.statuses))
			}
		})
	}
}

func TestCheck_NamesResults(t *testing.T) {
	c := NewChecker()
	c.Register("memory", MemoryCheck(0))

	resp := c.Check(context.Background())
	check, ok := resp.Checks["memory"]
	if !ok {
		t.Fatal("memory check missing")
	}
	if check.Name != "memory" {
		t.Errorf("Name = %q, want memory", check.Name)
	}
	if check.LastChecked.IsZero() {
		t.Error("LastChecked not set")
	}
}

func TestMemoryCheck_Limit(t *testing.T) {
	if got := MemoryCheck(1)(context.Background()).Status; got != StatusDegraded {
		t.Errorf("Status = %s, want degraded with a 1 byte limit", got)
	}
	if got := MemoryCheck(0)(context.Background()).Status; got != StatusHealthy {
		t.Errorf("Status = %s, want healthy without a limit", got)
	}
}

type failingStore struct{ checkpoint.Store }

func (failingStore) Exists(context.Context, string) (bool, error) {
	return false, errors.New("access denied")
}

func (failingStore) Location(name string) string { return "s3://bucket/" + name }

func TestStoreCheck(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	check := StoreCheck(store)(context.Background())
	if check.Status != StatusHealthy {
		t.Errorf("Status = %s, want healthy", check.Status)
	}
	if saved := check.Details["train_saved"]; saved != false {
		t.Errorf("train_saved = %v, want false", saved)
	}

	if err := store.Put(context.Background(), checkpoint.TrainFile, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if saved := StoreCheck(store)(context.Background()).Details["train_saved"]; saved != true {
		t.Errorf("train_saved = %v after Put, want true", saved)
	}

	check = StoreCheck(failingStore{})(context.Background())
	if check.Status != StatusUnhealthy || check.Message != "access denied" {
		t.Errorf("got %s %q, want unhealthy access denied", check.Status, check.Message)
	}
}

func TestHandler(t *testing.T) {
	tests := []struct {
		status Status
		code   int
	}{
		{StatusHealthy, http.StatusOK},
		{StatusDegraded, http.StatusOK},
		{StatusUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		c := NewChecker()
		c.Register("x", fixed(tt.status))

		rec := httptest.NewRecorder()
		c.Handler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != tt.code {
			t.Errorf("%s: code = %d, want %d", tt.status, rec.Code, tt.code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var resp Response
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != tt.status {
			t.Errorf("body status = %s, want %s", resp.Status, tt.status)
		}
	}
}
