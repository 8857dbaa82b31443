package flagsinfra_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/flags"
	"github.com/flagforge/flagforge/pkg/flags/flagsinfra"
	"github.com/flagforge/flagforge/pkg/kernel"
)

func newMockProvider(t *testing.T) (flags.Provider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return flagsinfra.NewPostgresFlagProvider(sqlx.NewDb(db, "sqlmock")), mock
}

func TestActiveFlagValues_ScopedToOrgAndEnvironment(t *testing.T) {
	p, mock := newMockProvider(t)
	orgID := kernel.NewOrganizationID("org-1")
	envID := kernel.NewEnvironmentID("env-1")

	rows := sqlmock.NewRows([]string{"key", "enabled", "payload", "updated_at"}).
		AddRow("checkout-v2", true, `{"rollout":50}`, time.Now()).
		AddRow("dark-mode", false, "", time.Now())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, enabled, payload, updated_at")).
		WithArgs("org-1", "env-1").
		WillReturnRows(rows)

	values, err := p.ActiveFlagValues(context.Background(), orgID, envID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}
	if values[0].Key != "checkout-v2" || !values[0].Enabled {
		t.Fatalf("unexpected first value: %+v", values[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFlagValue_UnknownKeyIsNotFound(t *testing.T) {
	p, mock := newMockProvider(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, enabled, payload, updated_at")).
		WithArgs("org-1", "env-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"key", "enabled", "payload", "updated_at"}))

	_, err := p.FlagValue(context.Background(), kernel.NewOrganizationID("org-1"), kernel.NewEnvironmentID("env-1"), "missing")
	if !errx.IsCode(err, flags.CodeFlagNotFound) {
		t.Fatalf("expected flag-not-found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
