package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/masomo-reports/apps/api/echo"
	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/export"
	"github.com/trezcool/masomo-reports/storage/database"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	out := new(bytes.Buffer)
	conf := &core.Config{
		AppName:   "Masomo",
		SecretKey: "secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Export:    core.ExportConfig{Timezone: "UTC", ColumnStrategy: "first"},
	}
	return &commandLine{
		conf:   conf,
		out:    out,
		openDB: func() (*sql.DB, error) { return nil, nil },
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkRunErr(t *testing.T, err error, tt cliTest) {
	t.Helper()
	if err != nil {
		if tt.wantErr != nil {
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if !strings.Contains(err.Error(), tt.wantErrStr) {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
	}
}

func Test_commandLine_root(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, cli.run(args), tt)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var ran []string
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, strings.TrimSpace(command+" "+strings.Join(args, " ")))
		return nil
	}
	defer func() { migrateFunc = database.RunMigrations }()

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, cli.run(args), tt)
		})
	}
	assert.Equal(t, []string{"up", "up-by-one", "up-to 1", "down", "down-to 0", "redo", "reset", "status", "version", "fix"}, ran)
}

func Test_commandLine_migrate_dbError(t *testing.T) {
	cli, _ := setup(t)
	dbErr := errors.New("connection refused")
	cli.openDB = func() (*sql.DB, error) { return nil, dbErr }

	err := cli.run([]string{"admin", "migrate", "up"})
	assert.Equal(t, dbErr, err)
}

func Test_commandLine_export(t *testing.T) {
	cli, out := setup(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "attendance.json")
	require.NoError(t, os.WriteFile(in, []byte(`[{"student": "Ali", "days_present": 5}, {"student": "Sara", "days_present": 4}]`), 0o644))
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"a":`), 0o644))

	type extra struct {
		file string
	}
	tests := []cliTest{
		{name: "missing flags", args: []string{"export"}, wantErrStr: `required flag(s) "format", "in" not set`},
		{name: "missing input", args: []string{"export", "-f", "pdf", "-i", filepath.Join(dir, "nope.json")}, wantErrStr: "reading input"},
		{name: "unsupported format", args: []string{"export", "-f", "csv", "-i", in}, wantErr: export.ErrUnsupportedFormat},
		{name: "invalid json", args: []string{"export", "-f", "pdf", "-i", broken}, wantErrStr: "export broken (pdf)"},
		{
			name:  "excel from title",
			args:  []string{"export", "-f", "excel", "-t", "Weekly Attendance", "-i", in, "-o", dir},
			extra: extra{file: "weekly-attendance.xlsx"},
		},
		{
			name:  "pdf from input name",
			args:  []string{"export", "--format", "pdf", "--in", in, "--out", filepath.Join(dir, "out")},
			extra: extra{file: filepath.Join("out", "attendance.pdf")},
		},
		{
			name:  "custom name",
			args:  []string{"export", "-f", "excel", "-i", in, "-o", dir, "--name", "Term 1 Fees"},
			extra: extra{file: "term-1-fees.xlsx"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			checkRunErr(t, err, tt)

			if extra, ok := tt.extra.(extra); ok && err == nil {
				path := filepath.Join(dir, extra.file)
				assert.Equal(t, path+"\n", out.String())
				content, err := os.ReadFile(path)
				require.NoError(t, err)
				if strings.HasSuffix(path, ".pdf") {
					assert.True(t, bytes.HasPrefix(content, []byte("%PDF-")))
					return
				}
				f, err := excelize.OpenReader(bytes.NewReader(content))
				require.NoError(t, err)
				defer f.Close()
				rows, err := f.GetRows(export.SheetName)
				require.NoError(t, err)
				assert.Equal(t, []string{"Student", "Days Present"}, rows[4])
				assert.Equal(t, []string{"Ali", "5"}, rows[5])
			}
		})
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)
	now := time.Now().Truncate(time.Second)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	type extra struct {
		ttl     time.Duration
		isAdmin bool
		roles   []string
	}
	tests := []cliTest{
		{name: "no subject", args: []string{"token"}, wantErrStr: "--subject is required"},
		{
			name:  "admin",
			args:  []string{"token", "--subject", "42", "--role", "admin:", "--username", "awe"},
			extra: extra{ttl: time.Hour, isAdmin: true, roles: []string{"admin:"}},
		},
		{
			name:  "reception with ttl",
			args:  []string{"token", "--subject", "desk", "--role", "reception:", "--ttl", "8h"},
			extra: extra{ttl: 8 * time.Hour, roles: []string{"reception:"}},
		},
		{
			name:  "many roles",
			args:  []string{"token", "--subject", "7", "--role", "teacher:,admin:principal"},
			extra: extra{ttl: time.Hour, isAdmin: true, roles: []string{"teacher:", "admin:principal"}},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			checkRunErr(t, err, tt)

			if extra, ok := tt.extra.(extra); ok && err == nil {
				claims := new(echoapi.Claims)
				_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
					return []byte(cli.conf.SecretKey), nil
				})
				require.NoError(t, err)
				assert.Equal(t, now.Add(extra.ttl).Unix(), claims.ExpiresAt)
				assert.Equal(t, extra.isAdmin, claims.IsAdmin)
				assert.Equal(t, extra.roles, claims.Roles)
				assert.True(t, claims.IsStaff())
			}
		})
	}
}
