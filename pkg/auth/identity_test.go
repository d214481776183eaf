package auth

import (
	"maps"
	"slices"
	"testing"
)

func TestNewIdentityCopiesInputs(t *testing.T) {
	roles := []string{"reader"}
	attrs := map[string]string{"k": "v"}
	creds := []any{Credential{Token: "t"}}

	id := NewIdentity(IdentityParams{Subject: "alice", Roles: roles, Attributes: attrs, Credentials: creds})

	roles[0] = "admin"
	attrs["k"] = "changed"
	creds[0] = "gone"

	if got := id.Roles(); !slices.Equal(got, []string{"reader"}) {
		t.Errorf("Roles() = %v, want [reader]", got)
	}
	if v, _ := id.Attribute("k"); v != "v" {
		t.Errorf("Attribute(k) = %q, want v", v)
	}
	if _, ok := id.Credential(); !ok {
		t.Error("Credential() should still find the original credential")
	}
}

func TestIdentityAccessorsReturnCopies(t *testing.T) {
	id := NewIdentity(IdentityParams{
		Subject:    "alice",
		Roles:      []string{"reader"},
		Attributes: map[string]string{"k": "v"},
	})

	id.Roles()[0] = "admin"
	id.Attributes()["k"] = "changed"

	if got := id.Roles(); !slices.Equal(got, []string{"reader"}) {
		t.Errorf("Roles() = %v, want [reader]", got)
	}
	if got := id.Attributes(); !maps.Equal(got, map[string]string{"k": "v"}) {
		t.Errorf("Attributes() = %v, want map[k:v]", got)
	}
	if !id.HasRole("reader") {
		t.Error("HasRole(reader) = false, want true")
	}
	if id.HasRole("admin") {
		t.Error("HasRole(admin) = true, want false")
	}
}

func TestAnonymousIdentity(t *testing.T) {
	id := AnonymousIdentity()

	if !id.IsAnonymous() {
		t.Error("IsAnonymous() = false, want true")
	}
	if id.Subject() != "" {
		t.Errorf("Subject() = %q, want empty", id.Subject())
	}
	if id.PrincipalName() != "" {
		t.Errorf("PrincipalName() = %q, want empty", id.PrincipalName())
	}
	if _, ok := id.Credential(); ok {
		t.Error("anonymous identity should carry no credential")
	}
}

func TestExtractCredential(t *testing.T) {
	cred := Credential{PrincipalName: "bob", Token: "tok"}

	got, ok := extractCredential([]any{"x509", 42, &cred})
	if !ok || got != cred {
		t.Errorf("extractCredential(pointer) = %+v, %v; want %+v, true", got, ok, cred)
	}

	got, ok = extractCredential([]any{cred, Credential{Token: "second"}})
	if !ok || got.Token != "tok" {
		t.Errorf("extractCredential(first wins) = %+v, %v; want token tok", got, ok)
	}

	if _, ok := extractCredential([]any{"x509", (*Credential)(nil)}); ok {
		t.Error("nil *Credential should not be extracted")
	}
	if _, ok := extractCredential(nil); ok {
		t.Error("empty credentials should yield nothing")
	}
}
