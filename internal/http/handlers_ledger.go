package http

import (
	"encoding/json"
	"net/http"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	view, err := s.ledger.Transactions(ctx, userEmail(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleAppendTransactions appends the whole batch or nothing.
func (s *Server) handleAppendTransactions(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Transactions == nil {
		writeError(w, r, core.Errorf(core.ErrInput, "append transactions", "transactions must be an array"))
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	res, err := s.ledger.Append(ctx, userEmail(r), body.Transactions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	c, err := s.parseCadence(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	view, err := s.ledger.Budgets(ctx, userEmail(r), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleUpdateBudgets accepts amounts as numbers or currency strings.
func (s *Server) handleUpdateBudgets(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Budgets map[string]json.RawMessage `json:"budgets"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	budgets := make(map[string]float64, len(body.Budgets))
	for name, raw := range body.Budgets {
		budgets[name] = core.CoerceAmount(raw)
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	res, err := s.ledger.UpdateBudgets(ctx, userEmail(r), budgets)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "updated": res.Updated, "added": res.Added})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	c, err := s.parseCadence(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	day, err := s.parseDay(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	top, err := parsePositiveInt(r, "top", defaultTop, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	sum, err := s.ledger.Summary(ctx, userEmail(r), c, day, top)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	c, err := s.parseCadence(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	day, err := s.parseDay(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count, err := parsePositiveInt(r, "count", defaultCount, maxCount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	periods, err := s.ledger.Periods(ctx, userEmail(r), c, day, count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cadence": c, "periods": periods})
}

// handleParseTransactions is not bound by the store timeout.
func (s *Server) handleParseTransactions(w http.ResponseWriter, r *http.Request) {
	files, hints, save, err := s.parseUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	email := userEmail(r)
	out, err := s.ledger.Parse(r.Context(), email, files, hints, save)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Documents parsed",
		log.FieldOperation, log.OpParse,
		"files", len(files),
		log.FieldCount, len(out.Transactions),
		log.FieldWarnings, len(out.Warnings),
		"saved", out.Saved != nil)
	writeJSON(w, http.StatusOK, out)
}
