package anonymous

import (
	"context"
	"testing"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

func TestAuthenticate(t *testing.T) {
	p, err := NewProvider([]string{"guest", "CREATOR"})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	for _, token := range []string{"", "anything"} {
		got, err := p.Authenticate(context.Background(), token)
		if err != nil {
			t.Fatalf("Authenticate(%q) error = %v", token, err)
		}
		if got.Name != Name || !got.HasAnyRole(domain.RoleCreator) || got.HasAnyRole(domain.RoleAdmin) {
			t.Errorf("Authenticate(%q) = %+v", token, got)
		}
	}
}

func TestNewProvider_UnknownRole(t *testing.T) {
	if _, err := NewProvider([]string{"SUPERUSER"}); err == nil {
		t.Error("NewProvider() expected error")
	}
}
