package orchestrator

import (
	"errors"
	"testing"

	"clipforge/internal/services"
)

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"url request", Request{OwnerSubject: "u", IdempotencyKey: "k", URL: "https://x.test/v"}, true},
		{"media request", Request{OwnerSubject: "u", IdempotencyKey: "k", MediaID: "m"}, true},
		{"missing owner", Request{IdempotencyKey: "k", URL: "https://x.test/v"}, false},
		{"missing key", Request{OwnerSubject: "u", URL: "https://x.test/v"}, false},
		{"no source", Request{OwnerSubject: "u", IdempotencyKey: "k"}, false},
		{"both sources", Request{OwnerSubject: "u", IdempotencyKey: "k", URL: "https://x.test/v", MediaID: "m"}, false},
		{"blank owner", Request{OwnerSubject: "   ", IdempotencyKey: "k", URL: "https://x.test/v"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("error not tagged as validation: %v", err)
				}
			}
		})
	}
}
