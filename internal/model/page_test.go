package model

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestPageRecordError(t *testing.T) {
	t.Parallel()

	t.Run("nil error means success", func(t *testing.T) {
		t.Parallel()

		p := &PageRecord{URL: "http://a.onion"}
		if !p.Succeeded() {
			t.Error("expected record without error to succeed")
		}
		if p.ErrorString() != "" {
			t.Errorf("expected empty error string, got %q", p.ErrorString())
		}
	})

	t.Run("error string is exposed", func(t *testing.T) {
		t.Parallel()

		p := &PageRecord{URL: "http://a.onion", Error: StringPtr("Timeout")}
		if p.Succeeded() {
			t.Error("expected record with error to fail")
		}
		if p.ErrorString() != "Timeout" {
			t.Errorf("expected Timeout, got %q", p.ErrorString())
		}
	})
}

func TestStringPtr(t *testing.T) {
	t.Parallel()

	if StringPtr("") != nil {
		t.Error("expected nil for empty string")
	}
	if got := StringPtr("x"); got == nil || *got != "x" {
		t.Errorf("expected pointer to x, got %v", got)
	}
}

func TestPageRecordJSONKeys(t *testing.T) {
	t.Parallel()

	p := &PageRecord{URL: "http://a.onion", HTTPStatus: 200}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, key := range []string{`"url"`, `"final_url"`, `"status"`, `"depth"`, `"error":null`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}

func TestFetchResultOK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result FetchResult
		want   bool
	}{
		{"200 with body", FetchResult{Status: http.StatusOK, Content: "<html></html>"}, true},
		{"200 empty body", FetchResult{Status: http.StatusOK}, false},
		{"404 with body", FetchResult{Status: http.StatusNotFound, Content: "nope"}, false},
		{"no response", FetchResult{Error: "Timeout"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.result.OK(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
