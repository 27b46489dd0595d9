package endpoint_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariebrainware/sehatec/assistant"
	"github.com/ariebrainware/sehatec/config"
	"github.com/ariebrainware/sehatec/endpoint"
	"github.com/ariebrainware/sehatec/middleware"
	"github.com/ariebrainware/sehatec/model"
	"github.com/ariebrainware/sehatec/repository"
	"github.com/ariebrainware/sehatec/session"
	"github.com/ariebrainware/sehatec/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type apiResp struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// requestParams groups HTTP request parameters to reduce function arguments
type requestParams struct {
	method  string
	path    string
	body    interface{}
	token   string
	headers map[string]string
}

type testServer struct {
	router *gin.Engine
	svc    *middleware.Services
}

// newTestServer wires the full router over a private in-memory database.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := config.ConnectDatabase()
	require.NoError(t, err)

	store, err := storage.NewDBStorage(db)
	require.NoError(t, err)

	ctx := context.Background()
	patients, err := repository.NewPatientRepository(ctx, store)
	require.NoError(t, err)
	accounts, err := repository.NewAccountStore(ctx, store)
	require.NoError(t, err)

	svc := &middleware.Services{
		Storage:        store,
		Patients:       patients,
		Accounts:       accounts,
		Sessions:       session.NewStore(time.Hour, nil),
		Conversations:  assistant.NewConversationStore(assistant.Scripted{}),
		MaxUploadBytes: 1 << 20,
	}
	return &testServer{router: endpoint.NewRouter("Sehatec", svc), svc: svc}
}

func (s *testServer) do(t *testing.T, params requestParams) (*httptest.ResponseRecorder, apiResp) {
	t.Helper()
	var body []byte
	switch v := params.body.(type) {
	case nil:
	case string:
		body = []byte(v)
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = b
	}

	req := httptest.NewRequest(params.method, params.path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if params.token != "" {
		req.Header.Set(middleware.SessionTokenHeader, params.token)
	}
	for k, v := range params.headers {
		req.Header.Set(k, v)
	}
	return s.serve(t, req)
}

func (s *testServer) upload(t *testing.T, token, path, filename string, data []byte, fields map[string]string) (*httptest.ResponseRecorder, apiResp) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.SessionTokenHeader, token)
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, apiResp) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResp
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func decodeData(t *testing.T, resp apiResp, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

// signupAndLogin registers a professional and returns a session token.
func (s *testServer) signupAndLogin(t *testing.T, role model.Role, email string) string {
	t.Helper()
	w, resp := s.do(t, requestParams{method: http.MethodPost, path: "/signup", body: model.SignupRequest{
		Role:            role,
		FullName:        "Test " + string(role),
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}})
	require.Equal(t, http.StatusCreated, w.Code, resp.Msg)

	return s.login(t, endpoint.LoginRequest{Role: role, Email: email, Password: "secret1"})
}

func (s *testServer) loginPatient(t *testing.T, nationalID string) string {
	t.Helper()
	return s.login(t, endpoint.LoginRequest{Role: model.RolePatient, NationalID: nationalID})
}

func (s *testServer) login(t *testing.T, req endpoint.LoginRequest) string {
	t.Helper()
	w, resp := s.do(t, requestParams{method: http.MethodPost, path: "/login", body: req})
	require.Equal(t, http.StatusOK, w.Code, resp.Msg)

	var sess endpoint.SessionResponse
	decodeData(t, resp, &sess)
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func (s *testServer) addPatient(t *testing.T, token, nationalID, name string) {
	t.Helper()
	w, resp := s.do(t, requestParams{method: http.MethodPost, path: "/doctor/patients", token: token, body: endpoint.CreatePatientRequest{
		NationalID: nationalID,
		Name:       name,
		Gender:     model.GenderMale,
		Age:        30,
	}})
	require.Equal(t, http.StatusCreated, w.Code, resp.Msg)
}

func (s *testServer) prescribe(t *testing.T, token, nationalID, diagnosis, medication string) model.Prescription {
	t.Helper()
	w, resp := s.do(t, requestParams{method: http.MethodPost, path: "/doctor/patients/" + nationalID + "/prescriptions", token: token, body: endpoint.PrescriptionRequest{
		Diagnosis:  diagnosis,
		Medication: medication,
	}})
	require.Equal(t, http.StatusCreated, w.Code, resp.Msg)

	var p model.Prescription
	decodeData(t, resp, &p)
	return p
}
