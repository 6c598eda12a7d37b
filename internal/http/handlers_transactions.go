package http

import (
	"encoding/json"
	"net/http"
	"time"

	"finanzas/internal/auth"
	"finanzas/internal/core"
	"finanzas/internal/report"
)

const dateLayout = "2006-01-02"

type transactionResponse struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Note     string `json:"note,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       t.ID,
		Date:     t.Date.Format(dateLayout),
		Amount:   t.Amount.Format(),
		Kind:     string(t.Kind),
		Category: t.Category,
		Note:     t.Note,
	}
}

// handleListTransactions returns the owner's transactions, optionally
// restricted to an inclusive [from, to] range.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	txs, err := s.store.LoadTransactions(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	from, to, hasRange, err := parseRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if hasRange {
		txs = report.FilterByRange(txs, from, to)
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	var req struct {
		Date     string      `json:"date"`
		Amount   json.Number `json:"amount"`
		Kind     string      `json:"kind"`
		Category string      `json:"category"`
		Note     string      `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
	if err != nil {
		writeError(w, core.ErrInvalidDate)
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount.String())
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := s.store.AddTransaction(r.Context(), identity.ID, date,
		core.Money{Cents: cents}, core.Kind(req.Kind), req.Category, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFrom(r.Context())

	if err := s.store.DeleteTransaction(r.Context(), identity.ID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
