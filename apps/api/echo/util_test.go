package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/pathways/apps/api/echo"
	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/learner"
	"github.com/trezcool/pathways/core/progress"
	emailsvc "github.com/trezcool/pathways/services/email"
	"github.com/trezcool/pathways/storage/database/inmem"
	"github.com/trezcool/pathways/tests"
)

var (
	// Wed, 13 Mar 2024
	testNow = time.Date(2024, time.March, 13, 15, 0, 0, 0, time.UTC)

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}

	ada     = learner.Learner{ID: "learner-1", Name: "Ada", Email: "ada@test.dev", Roles: []string{learner.RoleLearner}}
	grace   = learner.Learner{ID: "learner-2", Name: "Grace", Email: "grace@test.dev", Roles: []string{learner.RoleLearner}}
	manager = learner.Learner{ID: "manager-1", Name: "Boss", Email: "boss@test.dev", Roles: []string{learner.RoleManager}}
)

type testApp struct {
	server *Server
	svc    *progress.Service
	conf   *core.Config
	logger *testutil.Logger
}

func newTestConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Pathways",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func setup(t *testing.T) testApp {
	t.Helper()
	conf := newTestConfig()
	logger := &testutil.Logger{}

	svc := progress.NewService(progress.ServiceDeps{
		Repo:            inmemdb.NewProgressRepository(inmemdb.Open()),
		MailSvc:         emailsvc.NewConsoleServiceMock(logger, conf),
		Logger:          logger,
		Clock:           core.FixedClock(testNow),
		ModuleHours:     progress.DefaultModuleHours,
		FrontendBaseURL: "https://pathways.test",
		SecretKey:       conf.SecretKey,
	})
	t.Cleanup(svc.Shutdown)

	translator := core.NewTranslator()
	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		ProgressSvc:    svc,
		Validate:       core.NewValidate(translator),
		Translator:     translator,
		DisableReqLogs: true,
	})
	return testApp{server: server, svc: svc, conf: conf, logger: logger}
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

func (app testApp) getToken(t *testing.T, lnr learner.Learner) string {
	token, err := GenerateToken(NewClaims(lnr, app.conf), app.conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

// do serves the request & decodes the response into out, when given.
func (app testApp) do(t *testing.T, method, path, token string, body interface{}, wantCode int, out interface{}) {
	t.Helper()
	var data []byte
	if body != nil {
		data = marshalObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, wantCode, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
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
