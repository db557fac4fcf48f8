package credentials

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/propchain/registry_gateway/internal/errors"
	"github.com/propchain/registry_gateway/internal/storage/memory"
)

func newService() *Service {
	return New(memory.New(), zerolog.Nop())
}

func TestRegisterAndVerify(t *testing.T) {
	svc := newService()

	ident, err := svc.Register(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if ident.ID == "" {
		t.Fatalf("expected generated id")
	}
	if ident.SecretHash == "secret1" || strings.Contains(ident.SecretHash, "secret1") {
		t.Fatalf("plaintext secret must not be stored")
	}

	ok, err := svc.Verify(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching secret to verify")
	}

	ok, err = svc.Verify(context.Background(), "alice", "secret2")
	if err != nil {
		t.Fatalf("verify wrong secret: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatched secret to fail verification")
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	svc := newService()

	if _, err := svc.Register(context.Background(), "alice", "secret1"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), "alice", "secret2")
	se := errors.GetServiceError(err)
	if se == nil || se.Code != errors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterConcurrentSameUsername(t *testing.T) {
	svc := newService()

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "alice", fmt.Sprintf("secret%d", n))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.GetServiceError(err) != nil && errors.GetServiceError(err).Code == errors.CodeConflict:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("exactly one registration must win, got %d", succeeded)
	}
	if conflicted != attempts-1 {
		t.Fatalf("expected %d conflicts, got %d", attempts-1, conflicted)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService()

	for _, tc := range []struct {
		name     string
		username string
		secret   string
	}{
		{"empty username", "", "secret"},
		{"blank username", "   ", "secret"},
		{"empty password", "alice", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.username, tc.secret)
			se := errors.GetServiceError(err)
			if se == nil || se.Code != errors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestVerifyUnknownUser(t *testing.T) {
	svc := newService()

	_, err := svc.Verify(context.Background(), "ghost", "secret")
	se := errors.GetServiceError(err)
	if se == nil || se.Code != errors.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}
