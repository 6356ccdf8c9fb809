package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rishis123/backend-dev3/internal/ledger"
	"github.com/rishis123/backend-dev3/internal/middleware"
)

// API exposes the ledger workflow over HTTP. Handlers parse input into
// typed requests, call into the service and serialize the result; all
// domain errors are mapped to the status codes of the error taxonomy.
type API struct {
	svc    *ledger.Service
	logger *slog.Logger
}

func NewAPI(svc *ledger.Service, logger *slog.Logger) *API {
	return &API{svc: svc, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /users", a.listUsers)
	mux.HandleFunc("POST /users", a.createUser)
	mux.HandleFunc("GET /users/{id}", a.getUser)
	mux.HandleFunc("DELETE /users/{id}", a.deleteUser)
	mux.HandleFunc("POST /transactions", a.createTransaction)
	mux.HandleFunc("POST /transactions/{id}", a.decideTransaction)
	mux.HandleFunc("POST /reset", a.reset)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.svc.ListUsers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, users)
}

type createUserPayload struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Balance  *int64 `json:"balance"`
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var payload createUserPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var balance int64
	if payload.Balance != nil {
		balance = *payload.Balance
	}

	user, err := a.svc.CreateUser(r.Context(), payload.Name, payload.Username, balance)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, user)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.svc.GetUser(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, user)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	snapshot, err := a.svc.DeleteUser(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, snapshot)
}

type createTransactionPayload struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Amount     int64  `json:"amount"`
	Message    string `json:"message"`
	Accepted   *bool  `json:"accepted"`
}

func (a *API) createTransaction(w http.ResponseWriter, r *http.Request) {
	var payload createTransactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := a.svc.CreateTransaction(r.Context(), ledger.TransactionRequest{
		SenderID:   payload.SenderID,
		ReceiverID: payload.ReceiverID,
		Amount:     payload.Amount,
		Message:    payload.Message,
		Accepted:   payload.Accepted,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, txn)
}

type decidePayload struct {
	Accepted *bool `json:"accepted"`
}

func (a *API) decideTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.writeErrorMessage(w, http.StatusNotFound, ledger.ErrTransactionNotFound.Error())
		return
	}

	var payload decidePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Accepted == nil {
		a.writeErrorMessage(w, http.StatusBadRequest, "missing 'accepted' field in request body")
		return
	}

	txn, err := a.svc.Decide(r.Context(), id, *payload.Accepted)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, txn)
}

func (a *API) reset(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Reset(r.Context()); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Tables reset successfully"))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, ledger.ErrUserNotFound
	}
	return id, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

func (a *API) writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps the error taxonomy onto status codes: validation 400,
// not-found 404, insufficient funds and already-decided 403, anything
// else 500 with a generic body.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		a.writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrUserNotFound), errors.Is(err, ledger.ErrTransactionNotFound):
		a.writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrAlreadyDecided):
		a.writeErrorMessage(w, http.StatusForbidden, err.Error())
	default:
		a.logger.Error("request failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		a.writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
