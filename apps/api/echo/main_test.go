package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/export"
	"github.com/trezcool/masomo-reports/core/report"
	"github.com/trezcool/masomo-reports/services/email"
	"github.com/trezcool/masomo-reports/services/logger"
	"github.com/trezcool/masomo-reports/storage/database/inmem"
)

var (
	testConf = &core.Config{
		AppName:   "Masomo",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "s3cr3t",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
	}
	testGenerated = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	Server
	repo report.Repository
}

func setup(t *testing.T) testApp {
	t.Helper()

	// set up DB & repos
	repo := inmemdb.NewReportRepository(inmemdb.Open())

	// set up services
	clock := clockwork.NewFakeClockAt(testGenerated)
	reg := prometheus.NewRegistry()
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	exporter := export.NewExporter(export.Options{
		Clock:    clock,
		Location: time.UTC,
		Metrics:  export.NewMetrics(reg),
	})
	mailSvc := emailsvc.NewConsoleServiceMock(testConf)
	emailsvc.ResetSentMessages()

	// set up server
	srv := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           testConf,
		Logger:         logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), testConf),
		Validate:       validate,
		Translator:     translator,
		Metrics:        reg,
		ReportSvc:      report.NewService(repo, exporter, mailSvc, validate, clock),
	})
	return testApp{Server: srv, repo: repo}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, subject string, roles ...string) string {
	claims := NewClaims(testConf, subject, subject, subject+"@test.cd", roles, time.Now(), 0)
	token, err := GenerateToken(claims, testConf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
