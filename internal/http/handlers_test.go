package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/rishis123/backend-dev3/internal/http"
	"github.com/rishis123/backend-dev3/internal/ledger"
	"github.com/rishis123/backend-dev3/internal/ledger/ledgertest"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ledger.NewService(ledgertest.New(), logger)
	mux := http.NewServeMux()
	apphttp.NewAPI(svc, logger).Register(mux)
	return mux
}

func do(t *testing.T, mux *http.ServeMux, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	return fields
}

func TestCreateUserEndpoint(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/users", `{"name":"Alice","username":"alice","balance":100}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	fields := decode(t, rec)
	assert.Equal(t, "1", string(fields["id"]))
	assert.Equal(t, "100", string(fields["balance"]))
	assert.Equal(t, "[]", string(fields["transactions"]))
}

func TestCreateUserMissingFields(t *testing.T) {
	mux := newTestMux(t)

	for _, body := range []string{`{"username":"alice"}`, `{"name":"Alice"}`} {
		rec := do(t, mux, http.MethodPost, "/users", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec), "error")
	}
}

func TestCreateUserDefaultBalance(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/users", `{"name":"Alice","username":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "0", string(decode(t, rec)["balance"]))
}

func TestListUsersOmitsBalance(t *testing.T) {
	mux := newTestMux(t)
	do(t, mux, http.MethodPost, "/users", `{"name":"Alice","username":"alice","balance":100}`)

	rec := do(t, mux, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Contains(t, users[0], "username")
	assert.NotContains(t, users[0], "balance")
}

func TestGetUserNotFound(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodGet, "/users/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec), "error")
}

func TestDeleteUserReturnsSnapshot(t *testing.T) {
	mux := newTestMux(t)
	do(t, mux, http.MethodPost, "/users", `{"name":"Alice","username":"alice","balance":5}`)

	rec := do(t, mux, http.MethodDelete, "/users/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", string(decode(t, rec)["balance"]))

	rec = do(t, mux, http.MethodGet, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func seedPair(t *testing.T, mux *http.ServeMux, senderBalance int64) {
	t.Helper()
	rec := do(t, mux, http.MethodPost, "/users",
		`{"name":"Alice","username":"alice","balance":`+strconv.FormatInt(senderBalance, 10)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, mux, http.MethodPost, "/users", `{"name":"Bob","username":"bob","balance":0}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateTransactionPending(t *testing.T) {
	mux := newTestMux(t)
	seedPair(t, mux, 100)

	rec := do(t, mux, http.MethodPost, "/transactions",
		`{"sender_id":1,"receiver_id":2,"amount":30,"message":"lunch"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	fields := decode(t, rec)
	assert.Equal(t, "null", string(fields["accepted"]))

	// Pending requests move no money.
	rec = do(t, mux, http.MethodGet, "/users/1", "")
	assert.Equal(t, "100", string(decode(t, rec)["balance"]))
}

func TestCreateTransactionSettled(t *testing.T) {
	mux := newTestMux(t)
	seedPair(t, mux, 100)

	rec := do(t, mux, http.MethodPost, "/transactions",
		`{"sender_id":1,"receiver_id":2,"amount":30,"message":"lunch","accepted":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", string(decode(t, rec)["accepted"]))

	rec = do(t, mux, http.MethodGet, "/users/1", "")
	assert.Equal(t, "70", string(decode(t, rec)["balance"]))
	rec = do(t, mux, http.MethodGet, "/users/2", "")
	assert.Equal(t, "30", string(decode(t, rec)["balance"]))
}

func TestCreateTransactionInsufficientFunds(t *testing.T) {
	mux := newTestMux(t)
	seedPair(t, mux, 10)

	rec := do(t, mux, http.MethodPost, "/transactions",
		`{"sender_id":1,"receiver_id":2,"amount":30,"message":"lunch","accepted":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateTransactionUnknownSender(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/transactions",
		`{"sender_id":7,"receiver_id":8,"amount":30,"message":"lunch"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTransactionDeniedUpfront(t *testing.T) {
	mux := newTestMux(t)
	seedPair(t, mux, 100)

	rec := do(t, mux, http.MethodPost, "/transactions",
		`{"sender_id":1,"receiver_id":2,"amount":30,"message":"lunch","accepted":false}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideFlow(t *testing.T) {
	mux := newTestMux(t)
	seedPair(t, mux, 100)
	do(t, mux, http.MethodPost, "/transactions",
		`{"sender_id":1,"receiver_id":2,"amount":30,"message":"lunch"}`)

	rec := do(t, mux, http.MethodPost, "/transactions/1", `{"accepted":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", string(decode(t, rec)["accepted"]))

	// Re-deciding a settled transaction is forbidden.
	rec = do(t, mux, http.MethodPost, "/transactions/1", `{"accepted":false}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDecideMissingAcceptedField(t *testing.T) {
	mux := newTestMux(t)
	seedPair(t, mux, 100)
	do(t, mux, http.MethodPost, "/transactions",
		`{"sender_id":1,"receiver_id":2,"amount":30,"message":"lunch"}`)

	rec := do(t, mux, http.MethodPost, "/transactions/1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPost, "/transactions/1", `{"accepted":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecideUnknownTransaction(t *testing.T) {
	mux := newTestMux(t)

	rec := do(t, mux, http.MethodPost, "/transactions/9", `{"accepted":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetEndpoint(t *testing.T) {
	mux := newTestMux(t)
	seedPair(t, mux, 100)

	rec := do(t, mux, http.MethodPost, "/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reset")

	rec = do(t, mux, http.MethodGet, "/users", "")
	assert.Equal(t, "[]\n", rec.Body.String())

	// Id numbering restarts after a reset.
	rec = do(t, mux, http.MethodPost, "/users", `{"name":"Carol","username":"carol"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1", string(decode(t, rec)["id"]))
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	ok := httptest.NewRecorder()
	apphttp.NewHealthHandler(fakePinger{}).ServeHTTP(ok, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, ok.Code)

	down := httptest.NewRecorder()
	apphttp.NewHealthHandler(fakePinger{err: errors.New("no route to host")}).
		ServeHTTP(down, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, down.Code)
}
