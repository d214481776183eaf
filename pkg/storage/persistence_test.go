package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRealmID(t *testing.T) {
	valid := []string{"default-realm", "acme", "Realm_1", "eu.west.1", "a"}
	for _, id := range valid {
		if err := ValidateRealmID(id); err != nil {
			t.Errorf("ValidateRealmID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "-leading", "has space", "slash/realm", strings.Repeat("x", 70)}
	for _, id := range invalid {
		err := ValidateRealmID(id)
		if !errors.Is(err, ErrInvalidRealm) {
			t.Errorf("ValidateRealmID(%q) = %v, want ErrInvalidRealm", id, err)
		}
	}
}
