package http

import (
	"net/http"
	"strings"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"
)

func (s *Server) handleAccessStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	st, err := s.access.Status(ctx, userEmail(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	req, err := s.access.RequestAccess(ctx, userEmail(r), strings.TrimSpace(body.Notes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "request": req})
}

func (s *Server) handlePendingRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	reqs, err := s.access.PendingRequests(ctx, userEmail(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []core.AccessRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

// handleApproveAccess approves by default; "approve": false rejects.
func (s *Server) handleApproveAccess(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email   string `json:"email"`
		Approve *bool  `json:"approve"`
		Access  string `json:"access"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(body.Email) == "" {
		writeError(w, r, core.Errorf(core.ErrInput, "approve access", "email is required"))
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	admin := userEmail(r)
	if body.Approve != nil && !*body.Approve {
		req, err := s.access.Reject(ctx, admin, body.Email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "request": req})
		return
	}

	entry, err := s.access.Approve(ctx, admin, body.Email, body.Access)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Access granted",
		log.FieldOperation, log.OpApprove,
		log.FieldAdmin, admin,
		"subject", entry.Email)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "entry": entry})
}

func (s *Server) handleOnboardingInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.access.Info()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	s.handleAccessStatus(w, r)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SheetID string `json:"sheetId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := s.storeContext(r)
	defer cancel()
	entry, err := s.access.CompleteOnboarding(ctx, userEmail(r), strings.TrimSpace(body.SheetID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sheetId": entry.LedgerID})
}

func (s *Server) handleCreateLedger(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r)
	defer cancel()
	entry, err := s.access.CreateLedger(ctx, userEmail(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sheetId": entry.LedgerID})
}
