package logsvc

import (
	"bytes"
	"fmt"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-reports/core"
)

func newTestLogger() (*RollbarLogger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	l := NewRollbarLogger(log.New(buf, "", 0), &core.Config{Env: "TEST", TestMode: true})
	return l, buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	l, _ := newTestLogger()
	err := errors.New("boom")
	extras := map[string]interface{}{"format": "pdf"}

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{name: "msg only", want: []interface{}{"exporting"}},
		{name: "error and extras", args: []interface{}{err, extras}, want: []interface{}{"exporting", err, extras}},
		{
			name: "person is dropped",
			args: []interface{}{core.Person{ID: "1", Username: "awe"}, err, core.Person{ID: "2"}},
			want: []interface{}{"exporting", err},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.prepare("exporting", tt.args))
		})
	}
}

func TestRollbarLogger_print(t *testing.T) {
	l, buf := newTestLogger()

	l.Warn("export failed", fmt.Errorf("boom"), map[string]interface{}{"format": "pdf"}, core.Person{ID: "1"})
	assert.Equal(t, "WARN: export failed\nboom\nmap[format:pdf]\n", buf.String())

	buf.Reset()
	l.Info("export done")
	assert.Equal(t, "INFO: export done\n", buf.String())
}
