package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authkeeper/internal/common"
	"authkeeper/internal/logging"
	"authkeeper/internal/server/federation"
	"authkeeper/internal/server/models"
	"authkeeper/internal/server/services"
)

// --- fakes ---

type fakeUsers struct {
	pair *services.TokenPair
	err  error

	gotEmail    string
	gotPassword string
	gotProfile  *federation.Profile
}

func (f *fakeUsers) Register(ctx context.Context, email, password string) (*services.TokenPair, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.pair, f.err
}

func (f *fakeUsers) Login(ctx context.Context, email, password string) (*services.TokenPair, error) {
	f.gotEmail, f.gotPassword = email, password
	return f.pair, f.err
}

func (f *fakeUsers) FederatedLogin(ctx context.Context, profile *federation.Profile) (*services.TokenPair, error) {
	f.gotProfile = profile
	return f.pair, f.err
}

type fakeTokens struct {
	identity  models.Identity
	verifyErr error

	pair      *services.TokenPair
	rotateErr error

	revokeErr    error
	revokeAllErr error

	session    *models.RefreshToken
	sessionErr error

	revokedToken  string
	revokedAllFor int64
}

func (f *fakeTokens) VerifyAccess(token string) (models.Identity, error) {
	return f.identity, f.verifyErr
}

func (f *fakeTokens) Rotate(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	return f.pair, f.rotateErr
}

func (f *fakeTokens) Revoke(ctx context.Context, refreshToken string) error {
	f.revokedToken = refreshToken
	return f.revokeErr
}

func (f *fakeTokens) RevokeAll(ctx context.Context, userID int64) error {
	f.revokedAllFor = userID
	return f.revokeAllErr
}

func (f *fakeTokens) ActiveSession(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	return f.session, f.sessionErr
}

type fakeExchanger struct {
	profile *federation.Profile
	err     error
}

func (f *fakeExchanger) Exchange(ctx context.Context, code string) (*federation.Profile, error) {
	return f.profile, f.err
}

func newTestServer(users *fakeUsers, tokens *fakeTokens, google CodeExchanger) *Server {
	l := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(":0", l, users, tokens, google, nil)
}

func doRequest(t *testing.T, s *Server, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if header != nil {
		req.Header = header
	}
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	return rec
}

var testPair = &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"}

// --- tests ---

func TestHandleRegister_Created(t *testing.T) {
	users := &fakeUsers{pair: testPair}
	s := newTestServer(users, &fakeTokens{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/register",
		`{"email":"a@x.com","password":"pw"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp tokenPairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acc", resp.AccessToken)
	assert.Equal(t, "ref", resp.RefreshToken)
	assert.Equal(t, "a@x.com", users.gotEmail)
}

func TestHandleRegister_Duplicate(t *testing.T) {
	s := newTestServer(&fakeUsers{err: common.ErrorAlreadyExists}, &fakeTokens{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/register",
		`{"email":"a@x.com","password":"pw"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user already exists")
}

func TestHandleRegister_BadBody(t *testing.T) {
	s := newTestServer(&fakeUsers{}, &fakeTokens{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/register", `{nope`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLogin_Success(t *testing.T) {
	s := newTestServer(&fakeUsers{pair: testPair}, &fakeTokens{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"pw"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenPairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acc", resp.AccessToken)
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(&fakeUsers{err: common.ErrorUnauthorized}, &fakeTokens{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/login",
		`{"email":"a@x.com","password":"wrong"}`, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestHandleRefresh_Success(t *testing.T) {
	s := newTestServer(&fakeUsers{}, &fakeTokens{pair: testPair}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"old"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleRefresh_UsedToken(t *testing.T) {
	s := newTestServer(&fakeUsers{}, &fakeTokens{rotateErr: common.ErrUnknownToken}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/refresh",
		`{"refreshToken":"replayed"}`, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid refresh token")
}

func TestHandleRefresh_MissingToken(t *testing.T) {
	s := newTestServer(&fakeUsers{}, &fakeTokens{rotateErr: common.ErrMalformedInput}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/refresh", `{}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "refresh token is required")
}

func TestHandleLogout_Success(t *testing.T) {
	tokens := &fakeTokens{}
	s := newTestServer(&fakeUsers{}, tokens, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/logout",
		`{"refreshToken":"ref"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ref", tokens.revokedToken)
}

func TestHandleGoogleLogin_NotConfigured(t *testing.T) {
	s := newTestServer(&fakeUsers{}, &fakeTokens{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/google-login",
		`{"code":"abc"}`, nil)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleGoogleLogin_Success(t *testing.T) {
	users := &fakeUsers{pair: testPair}
	google := &fakeExchanger{profile: &federation.Profile{Email: "c@x.com", Name: "Carol"}}
	s := newTestServer(users, &fakeTokens{}, google)

	rec := doRequest(t, s, http.MethodPost, "/api/auth/google-login",
		`{"code":"abc"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, users.gotProfile)
	assert.Equal(t, "c@x.com", users.gotProfile.Email)
}

func TestHandleMe_RequiresToken(t *testing.T) {
	s := newTestServer(&fakeUsers{}, &fakeTokens{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/me", "", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleMe_Success(t *testing.T) {
	tokens := &fakeTokens{identity: models.Identity{ID: 1, Name: "a", Email: "a@x.com"}}
	s := newTestServer(&fakeUsers{}, tokens, nil)

	header := http.Header{}
	header.Set(common.AuthorizationHeaderName, common.BearerSchemePrefix+"acc")
	rec := doRequest(t, s, http.MethodGet, "/api/me", "", header)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp identityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, "a@x.com", resp.Email)
}

func TestHandleMe_ExpiredToken(t *testing.T) {
	tokens := &fakeTokens{verifyErr: common.ErrTokenExpired}
	s := newTestServer(&fakeUsers{}, tokens, nil)

	header := http.Header{}
	header.Set(common.AuthorizationHeaderName, common.BearerSchemePrefix+"stale")
	rec := doRequest(t, s, http.MethodGet, "/api/me", "", header)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestHandleLogoutAll_Success(t *testing.T) {
	tokens := &fakeTokens{identity: models.Identity{ID: 42}}
	s := newTestServer(&fakeUsers{}, tokens, nil)

	header := http.Header{}
	header.Set(common.AuthorizationHeaderName, common.BearerSchemePrefix+"acc")
	rec := doRequest(t, s, http.MethodPost, "/api/auth/logout-all", "", header)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), tokens.revokedAllFor)
}

func TestHandleSession_Success(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	tokens := &fakeTokens{
		identity: models.Identity{ID: 1},
		session:  &models.RefreshToken{UserID: 1, ExpiresAt: expires},
	}
	s := newTestServer(&fakeUsers{}, tokens, nil)

	header := http.Header{}
	header.Set(common.AuthorizationHeaderName, common.BearerSchemePrefix+"acc")
	rec := doRequest(t, s, http.MethodGet, "/api/session", "", header)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.ExpiresAt.Equal(expires))
}

func TestHandleSession_NoSession(t *testing.T) {
	tokens := &fakeTokens{identity: models.Identity{ID: 1}, sessionErr: common.ErrorNotFound}
	s := newTestServer(&fakeUsers{}, tokens, nil)

	header := http.Header{}
	header.Set(common.AuthorizationHeaderName, common.BearerSchemePrefix+"acc")
	rec := doRequest(t, s, http.MethodGet, "/api/session", "", header)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(&fakeUsers{}, &fakeTokens{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/healthz", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
}
