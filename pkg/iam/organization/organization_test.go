package organization_test

import (
	"testing"

	"github.com/flagforge/flagforge/pkg/iam/organization"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  Acme   Corp  ", "acme-corp"},
		{"Acme!!!Corp", "acme-corp"},
		{"--Acme--", "acme"},
		{"ACME", "acme"},
	}
	for _, c := range cases {
		if got := organization.Slugify(c.in); got != c.want {
			t.Fatalf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDefaultEnvironments(t *testing.T) {
	envs := organization.DefaultEnvironments()
	if len(envs) != 3 {
		t.Fatalf("expected 3 default environments, got %d", len(envs))
	}
	keys := []string{"dev", "staging", "prod"}
	for i, env := range envs {
		if env.Key != keys[i] {
			t.Fatalf("expected key %q at position %d, got %q", keys[i], i, env.Key)
		}
		if env.SortOrder != i+1 {
			t.Fatalf("expected sort order %d, got %d", i+1, env.SortOrder)
		}
	}
}
