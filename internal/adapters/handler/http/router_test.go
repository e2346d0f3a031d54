package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/votechain/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/votechain/internal/core/domain"
	"github.com/vncsmyrnk/votechain/internal/core/services"
)

var testSecret = []byte("test-secret")

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	opts := services.Options{Logger: log}

	store := memory.NewStore()
	elections := store.Elections()
	clock := services.SystemClock

	lifecycle := services.NewLifecycleService(elections, opts)
	voting := services.NewVotingService(store.Ballots(), store.Votes(), elections, clock, opts)

	handler := NewHandler(
		NewElectionHandler(services.NewElectionService(elections, clock, opts), lifecycle),
		NewTokenHandler(services.NewTokenService(elections, store.Tokens(), clock, opts)),
		NewVoteHandler(voting, services.NewTallyService(elections, store.Votes())),
		VoterAuth(testSecret),
	)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func signAccessToken(t *testing.T, secret []byte, userID uuid.UUID) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

type client struct {
	t      *testing.T
	srv    *httptest.Server
	userID uuid.UUID
	token  string
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	userID := uuid.New()
	return &client{t: t, srv: srv, userID: userID, token: signAccessToken(t, testSecret, userID)}
}

func (c *client) do(method, path string, body any, out any) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestElectionFlow(t *testing.T) {
	srv := newTestServer(t)
	owner := newClient(t, srv)
	alice := newClient(t, srv)
	bob := newClient(t, srv)

	var election domain.Election
	resp := owner.do(http.MethodPost, "/api/elections", map[string]any{
		"title":      "Treasurer",
		"candidates": []map[string]string{{"name": "Ada"}, {"name": "Grace"}},
	}, &election)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, domain.StatusPending, election.Status)
	assert.Equal(t, owner.userID, election.OwnerID)
	require.Len(t, election.Candidates, 2)
	base := "/api/elections/" + election.ID.String()
	ada, grace := election.Candidates[0].ID, election.Candidates[1].ID

	resp = alice.do(http.MethodPost, base+"/votes", map[string]any{"candidate_id": ada}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "election still pending")

	resp = alice.do(http.MethodPost, base+"/start", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var started domain.Election
	resp = owner.do(http.MethodPost, base+"/start", nil, &started)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.StatusActive, started.Status)

	var issued domain.IssueResult
	resp = alice.do(http.MethodPost, base+"/tokens", nil, &issued)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, issued.Secret)

	var again domain.IssueResult
	resp = alice.do(http.MethodPost, base+"/tokens", nil, &again)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, again.AlreadyIssued)
	assert.Empty(t, again.Secret)

	var aliceReceipt domain.VoteReceipt
	resp = alice.do(http.MethodPost, base+"/votes", map[string]any{"candidate_id": ada}, &aliceReceipt)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, aliceReceipt.VoteHash, 64)

	resp = alice.do(http.MethodPost, base+"/votes", map[string]any{"candidate_id": grace}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var bobToken domain.IssueResult
	resp = bob.do(http.MethodPost, base+"/tokens", nil, &bobToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = bob.do(http.MethodPost, base+"/votes", map[string]any{"candidate_id": uuid.New()}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = bob.do(http.MethodPost, base+"/votes", map[string]any{"candidate_id": grace, "token": bobToken.Secret}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result domain.ElectionResult
	resp = alice.do(http.MethodGet, base+"/results", nil, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(2), result.TotalVotes)
	require.Len(t, result.Results, 2)
	assert.Equal(t, int64(1), result.Results[0].Count)

	var report domain.ChainReport
	resp = alice.do(http.MethodGet, base+"/chain", nil, &report)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.Length)

	var receipt domain.ReceiptStatus
	resp = alice.do(http.MethodGet, base+"/receipts/"+aliceReceipt.VoteHash, nil, &receipt)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, receipt.Index)

	resp = alice.do(http.MethodGet, base+"/receipts/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = owner.do(http.MethodPost, base+"/end", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	carol := newClient(t, srv)
	resp = carol.do(http.MethodPost, base+"/tokens", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestElectionLookups(t *testing.T) {
	srv := newTestServer(t)
	c := newClient(t, srv)

	resp := c.do(http.MethodGet, "/api/elections/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.do(http.MethodGet, "/api/elections/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = c.do(http.MethodPost, "/api/elections", map[string]any{"title": "No candidates"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVoterAuth(t *testing.T) {
	srv := newTestServer(t)

	anonymous := &client{t: t, srv: srv}
	resp := anonymous.do(http.MethodPost, "/api/elections", map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	forged := &client{t: t, srv: srv, token: signAccessToken(t, []byte("other-secret"), uuid.New())}
	resp = forged.do(http.MethodPost, "/api/elections", map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString()}).SignedString(testSecret)
	require.NoError(t, err)
	resp = (&client{t: t, srv: srv, token: noExpiry}).do(http.MethodPost, "/api/elections", map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "voter-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	resp = (&client{t: t, srv: srv, token: badSubject}).do(http.MethodPost, "/api/elections", map[string]any{"title": "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVoterAuthWithoutSecretRejectsEverything(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signingString, err := token.SigningString()
	require.NoError(t, err)
	mac := hmac.New(sha256.New, nil)
	mac.Write([]byte(signingString))
	emptyKeySigned := signingString + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	for _, secret := range [][]byte{nil, {}} {
		called := false
		h := VoterAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+emptyKeySigned)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	}
}

func TestVoterAuthReadsCookie(t *testing.T) {
	userID := uuid.New()
	var seen uuid.UUID
	h := VoterAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = userIDFrom(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: signAccessToken(t, testSecret, userID)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, seen)
}
