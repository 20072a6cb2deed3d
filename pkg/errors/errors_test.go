package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConfigurationErrorMatchesSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"unknown algorithm", UnknownAlgorithmError("tf", "cubic"), ErrUnknownAlgorithm},
		{"missing parent", MissingParentError(), ErrMissingParent},
		{"invalid option", InvalidOptionError("precision", -1, "must be >= 0"), ErrInvalidOption},
		{"unknown method", UnknownMethodError("statistics", "bm25"), ErrUnknownMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("scoring: %w", tt.err)
			if !errors.Is(wrapped, ErrConfiguration) {
				t.Errorf("expected %v to match ErrConfiguration", wrapped)
			}
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("expected %v to match %v", wrapped, tt.sentinel)
			}
		})
	}
}

func TestUnknownAlgorithmCarriesFamilyAndName(t *testing.T) {
	var cfgErr *ConfigurationError
	if !errors.As(UnknownAlgorithmError("idf", "smooth"), &cfgErr) {
		t.Fatal("expected ConfigurationError")
	}
	if cfgErr.Family != "idf" || cfgErr.Name != "smooth" {
		t.Errorf("got family=%q name=%q", cfgErr.Family, cfgErr.Name)
	}
	if cfgErr.Kind != UnknownAlgorithm {
		t.Errorf("got kind %v", cfgErr.Kind)
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{MissingParentError(), http.StatusBadRequest},
		{fmt.Errorf("lookup: %w", ErrCollectionNotFound), http.StatusNotFound},
		{ErrDocumentNotFound, http.StatusNotFound},
		{New(ErrInternal, http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{ErrTimeout, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatusCode(tt.err); got != tt.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
