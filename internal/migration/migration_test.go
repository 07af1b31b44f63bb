package migration

import (
	"io/fs"
	"testing"

	dbpkg "github.com/abbydulski/Runway-sub000/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	assert.True(t, names["000001_init.up.sql"])
	assert.True(t, names["000001_init.down.sql"])
}

func TestApplyOnSQLiteCreatesTables(t *testing.T) {
	conn, err := dbpkg.NewTest()
	require.NoError(t, err)

	require.NoError(t, Apply(conn))

	for _, table := range []string{
		"organizations",
		"teams",
		"users",
		"integrations",
		"invites",
		"onboarding_steps",
		"user_onboarding_progress",
		"provisioning_logs",
	} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}
