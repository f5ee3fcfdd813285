package database

import (
	"database/sql"
	"io/fs"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-reports/core"
)

func Test_dsn(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "localhost",
		Port:          5432,
		Name:          "masomo",
		User:          "app",
		Password:      "p@ss",
		AdminUser:     "postgres",
		AdminPassword: "root",
	}}

	tests := []struct {
		name       string
		dbName     string
		admin      bool
		disableTLS bool
		wantUser   string
		wantPath   string
		wantSSL    string
	}{
		{name: "app user", dbName: "masomo", wantUser: "app", wantPath: "/masomo", wantSSL: "require"},
		{name: "admin user", dbName: "postgres", admin: true, wantUser: "postgres", wantPath: "/postgres", wantSSL: "require"},
		{name: "no TLS", dbName: "masomo", disableTLS: true, wantUser: "app", wantPath: "/masomo", wantSSL: "disable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf.Database.DisableTLS = tt.disableTLS
			u, err := url.Parse(dsn(tt.dbName, tt.admin, conf))
			require.NoError(t, err)
			assert.Equal(t, "postgres", u.Scheme)
			assert.Equal(t, "localhost:5432", u.Host)
			assert.Equal(t, tt.wantUser, u.User.Username())
			assert.Equal(t, tt.wantPath, u.Path)
			assert.Equal(t, tt.wantSSL, u.Query().Get("sslmode"))
			assert.Equal(t, "utc", u.Query().Get("timezone"))
		})
	}
}

func Test_migrations(t *testing.T) {
	files, err := fs.Glob(migrations, migrationsDir+"/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	content, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "-- +goose Up")
	assert.Contains(t, string(content), "-- +goose Down")
}

func TestRunMigrations(t *testing.T) {
	defer func(orig func(string, *sql.DB, string, ...string) error) { gooseRunFunc = orig }(gooseRunFunc)

	var gotCommand, gotDir string
	var gotArgs []string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir, gotArgs = command, dir, args
		return nil
	}

	require.NoError(t, RunMigrations(nil, "up-to", "1"))
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, migrationsDir, gotDir)
	assert.Equal(t, []string{"1"}, gotArgs)

	require.NoError(t, Migrate(nil))
	assert.Equal(t, "up", gotCommand)
}
