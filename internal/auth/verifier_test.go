package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestParseBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc123", "abc123", false},
		{"valid with trailing space", "Bearer abc123  ", "abc123", false},
		{"missing prefix", "abc123", "", true},
		{"wrong scheme", "Basic abc123", "", true},
		{"lowercase scheme", "bearer abc123", "", true},
		{"prefix only", "Bearer ", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBearer(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedHeader) {
				t.Fatalf("expected ErrMalformedHeader, got %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseBearer(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestIsCredentialError(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		ErrMalformedHeader,
		ErrInvalidToken,
		ErrProviderUnavailable,
		fmt.Errorf("%w: provider said no", ErrInvalidToken),
	} {
		if !IsCredentialError(err) {
			t.Errorf("expected %v to be a credential error", err)
		}
	}
	if IsCredentialError(errors.New("db down")) {
		t.Error("expected plain error not to be a credential error")
	}
	if IsCredentialError(context.DeadlineExceeded) {
		t.Error("expected bare deadline not to be a credential error")
	}
}

func TestIsUnavailable(t *testing.T) {
	t.Parallel()

	expired, cancel := context.WithCancel(context.Background())
	cancel()
	if !isUnavailable(expired, errors.New("fetch keys")) {
		t.Error("expected cancelled context to read as unavailable")
	}
	if !isUnavailable(context.Background(), context.DeadlineExceeded) {
		t.Error("expected deadline error to read as unavailable")
	}
	if isUnavailable(context.Background(), errors.New("signature mismatch")) {
		t.Error("expected plain rejection not to read as unavailable")
	}
}
