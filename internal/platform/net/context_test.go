package net_test

import (
	"context"
	"testing"

	pnet "reviewprep/internal/platform/net"
)

func TestWithRequest(t *testing.T) {
	base := context.Background()

	tests := []struct {
		name string
		id   string
		same bool
	}{
		{"sets id", "req-123", false},
		{"empty id leaves ctx", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := pnet.WithRequest(base, tc.id)
			if got := pnet.RequestID(ctx); got != tc.id {
				t.Fatalf("RequestID got %q want %q", got, tc.id)
			}
			if (ctx == base) != tc.same {
				t.Fatalf("ctx identity same=%v want %v", ctx == base, tc.same)
			}
		})
	}
}

func TestRequestID_Missing(t *testing.T) {
	if got := pnet.RequestID(context.Background()); got != "" {
		t.Fatalf("got %q want empty", got)
	}
}
