package auth

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/rhuss/lakegate/pkg/worker"
)

func rawIdentity() *Identity {
	return NewIdentity(IdentityParams{
		Subject:     "raw-subject",
		Roles:       []string{"transport-role"},
		Attributes:  map[string]string{"source": "bearer", "tenant": "raw"},
		Credentials: []any{"x509-chain", Credential{PrincipalName: "hint", Token: "tok-1"}},
	})
}

func TestAugment_AnonymousUnchanged(t *testing.T) {
	authn := &stubAuthn{}
	a := NewAugmentor(authn, worker.NewPool("test", 1))
	anon := AnonymousIdentity()

	got, err := a.Augment(context.Background(), anon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != anon {
		t.Error("anonymous identity should be returned unchanged")
	}
	if authn.calls != 0 {
		t.Errorf("authenticator called %d times, want 0", authn.calls)
	}
}

func TestAugment_MissingCredential(t *testing.T) {
	authn := &stubAuthn{principal: &Principal{Name: "alice"}}
	a := NewAugmentor(authn, worker.NewPool("test", 1))
	id := NewIdentity(IdentityParams{Subject: "Basic"})

	_, err := a.Augment(context.Background(), id)

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthenticationError", err)
	}
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
	if authn.calls != 0 {
		t.Errorf("authenticator called %d times, want 0", authn.calls)
	}
}

func TestAugment_Success(t *testing.T) {
	authn := &stubAuthn{principal: &Principal{
		Name:       "alice@example.com",
		Roles:      []string{"catalog_admin", "reader"},
		Properties: map[string]string{"tenant": "acme"},
	}}
	a := NewAugmentor(authn, worker.NewPool("test", 1))
	raw := rawIdentity()

	got, err := a.Augment(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := (Credential{PrincipalName: "hint", Token: "tok-1"}); authn.last != want {
		t.Errorf("credential = %+v, want %+v", authn.last, want)
	}

	if got.IsAnonymous() {
		t.Error("augmented identity should not be anonymous")
	}
	if got.Subject() != "alice@example.com" {
		t.Errorf("Subject() = %q, want alice@example.com", got.Subject())
	}
	if got.PrincipalName() != "alice@example.com" {
		t.Errorf("PrincipalName() = %q, want alice@example.com", got.PrincipalName())
	}
	if roles := got.Roles(); !slices.Equal(roles, []string{"catalog_admin", "reader"}) {
		t.Errorf("Roles() = %v, want [catalog_admin reader]", roles)
	}
	wantAttrs := map[string]string{
		"source":               "bearer",
		"tenant":               "acme",
		PrincipalNameAttribute: "alice@example.com",
	}
	if attrs := got.Attributes(); !maps.Equal(attrs, wantAttrs) {
		t.Errorf("Attributes() = %v, want %v", attrs, wantAttrs)
	}
	if creds := got.Credentials(); len(creds) != 2 || creds[0] != "x509-chain" || creds[1] != raw.Credentials()[1] {
		t.Errorf("Credentials() = %v, want %v", creds, raw.Credentials())
	}

	// The raw identity is untouched.
	if raw.Subject() != "raw-subject" {
		t.Errorf("raw Subject() = %q, want raw-subject", raw.Subject())
	}
	if roles := raw.Roles(); !slices.Equal(roles, []string{"transport-role"}) {
		t.Errorf("raw Roles() = %v, want [transport-role]", roles)
	}
	if attrs := raw.Attributes(); !maps.Equal(attrs, map[string]string{"source": "bearer", "tenant": "raw"}) {
		t.Errorf("raw Attributes() = %v", attrs)
	}
}

func TestAugment_EmptyRolesReplaceOriginal(t *testing.T) {
	authn := &stubAuthn{principal: &Principal{Name: "svc"}}
	a := NewAugmentor(authn, worker.NewPool("test", 1))

	got, err := a.Augment(context.Background(), rawIdentity())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if roles := got.Roles(); len(roles) != 0 {
		t.Errorf("Roles() = %v, want none", roles)
	}
}

func TestAugment_ServiceFailurePassesThroughUnchanged(t *testing.T) {
	failure := &ServiceFailureError{Message: "identity provider down", Err: errors.New("dial tcp: refused")}
	authn := &stubAuthn{err: failure}
	a := NewAugmentor(authn, worker.NewPool("test", 1))

	_, err := a.Augment(context.Background(), rawIdentity())
	if err != failure {
		t.Errorf("error = %v, want the original *ServiceFailureError", err)
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		t.Error("service failure must not be wrapped as *AuthenticationError")
	}
}

func TestAugment_OtherErrorsWrapped(t *testing.T) {
	cause := errors.New("token expired")
	a := NewAugmentor(&stubAuthn{err: cause}, worker.NewPool("test", 1))

	_, err := a.Augment(context.Background(), rawIdentity())

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want *AuthenticationError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error = %v, should wrap %v", err, cause)
	}
	if errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("error = %v, should not match ErrServiceUnavailable", err)
	}
}

func TestAugment_NoPrincipal(t *testing.T) {
	for _, p := range []*Principal{nil, {Name: ""}} {
		a := NewAugmentor(&stubAuthn{principal: p}, worker.NewPool("test", 1))

		_, err := a.Augment(context.Background(), rawIdentity())
		if !errors.Is(err, ErrUnauthenticated) {
			t.Errorf("principal %v: error = %v, want ErrUnauthenticated", p, err)
		}
	}
}

func TestAugment_NilIdentity(t *testing.T) {
	a := NewAugmentor(&stubAuthn{}, worker.NewPool("test", 1))

	_, err := a.Augment(context.Background(), nil)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("error = %v, want ErrUnauthenticated", err)
	}
}

func TestAugmentAsync(t *testing.T) {
	authn := &stubAuthn{principal: &Principal{Name: "bob@example.com"}}
	a := NewAugmentor(authn, worker.NewPool("test", 2))

	got, err := a.AugmentAsync(context.Background(), rawIdentity()).Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PrincipalName() != "bob@example.com" {
		t.Errorf("PrincipalName() = %q, want bob@example.com", got.PrincipalName())
	}
}

func TestAugmentAsync_ServiceFailure(t *testing.T) {
	failure := &ServiceFailureError{Message: "down"}
	a := NewAugmentor(&stubAuthn{err: failure}, worker.NewPool("test", 1))

	_, err := a.AugmentAsync(context.Background(), rawIdentity()).Await(context.Background())
	if err != failure {
		t.Errorf("error = %v, want the original *ServiceFailureError", err)
	}
}
