package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"
	"github.com/brandonwu32/financedashboard/internal/sheets"
)

// Options configures a Service.
type Options struct {
	RegistryID          string
	TemplateID          string
	ServiceAccountEmail string
	Events              core.EventPublisher
	Now                 func() time.Time
}

// Service is the access state machine. Every method loads the registry
// once, decides, and writes back the rows that changed.
type Service struct {
	store               *Store
	docs                sheets.LedgerStore
	templateID          string
	serviceAccountEmail string
	events              core.EventPublisher
	now                 func() time.Time
}

func NewService(docs sheets.LedgerStore, opts Options) *Service {
	if opts.Events == nil {
		opts.Events = core.NopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:               NewStore(docs, opts.RegistryID),
		docs:                docs,
		templateID:          strings.TrimSpace(opts.TemplateID),
		serviceAccountEmail: strings.TrimSpace(opts.ServiceAccountEmail),
		events:              opts.Events,
		now:                 opts.Now,
	}
}

// AccessStatus is what onboarding screens need to know about a user.
type AccessStatus struct {
	Email       string              `json:"email"`
	Allowed     bool                `json:"allowed"`
	Onboarded   bool                `json:"onboarded"`
	IsAdmin     bool                `json:"isAdmin"`
	Status      core.RegistryStatus `json:"status"`
	AccessLevel core.AccessLevel    `json:"accessLevel,omitempty"`
	LedgerID    string              `json:"ledgerId,omitempty"`
	Request     *core.AccessRequest `json:"request,omitempty"`
	Verify      *core.SchemaResult  `json:"verify,omitempty"`
}

// OnboardingInfo tells a user where the template lives and which account
// their copy must be shared with.
type OnboardingInfo struct {
	TemplateURL         string `json:"templateUrl"`
	ServiceAccountEmail string `json:"serviceAccountEmail,omitempty"`
}

// RequestAccess files a Pending request. It is idempotent: an existing
// request is returned as is, and an already approved user gets an
// Approved request without a row being written.
func (s *Service) RequestAccess(ctx context.Context, email, notes string) (core.AccessRequest, error) {
	const op = "request access"
	email = core.NormalizeEmail(email)
	if email == "" {
		return core.AccessRequest{}, core.Errorf(core.ErrUnauthenticated, op, "no email")
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		return core.AccessRequest{}, err
	}

	if req, ok := snap.Request(email); ok {
		return req, nil
	}
	if entry, ok := snap.Entry(email); ok && entry.Status.Approved() {
		return core.AccessRequest{Email: email, Status: core.RequestApproved, RequestedAt: entry.CreatedAt}, nil
	}

	req := core.AccessRequest{
		Email:       email,
		Status:      core.RequestPending,
		RequestedAt: s.timestamp(),
		Notes:       strings.TrimSpace(notes),
	}
	if err := s.store.PutRequest(ctx, snap, req); err != nil {
		return core.AccessRequest{}, err
	}
	slog.InfoContext(ctx, "Access requested", log.FieldComponent, log.ComponentRegistry, log.FieldUser, email)
	s.publish(ctx, core.Event{Type: core.EventAccessRequested, Actor: email, Subject: email})
	return req, nil
}

// Approve grants access at the given level. A user who is already Active
// keeps their ledger; only the level changes.
func (s *Service) Approve(ctx context.Context, admin, email, level string) (core.RegistryEntry, error) {
	const op = "approve access"
	snap, err := s.store.Load(ctx)
	if err != nil {
		return core.RegistryEntry{}, err
	}
	admin, err = requireAdmin(snap, admin, op)
	if err != nil {
		return core.RegistryEntry{}, err
	}
	email = core.NormalizeEmail(email)
	if email == "" {
		return core.RegistryEntry{}, core.Errorf(core.ErrInput, op, "email is required")
	}
	lvl, err := core.ParseAccessLevel(level)
	if err != nil {
		return core.RegistryEntry{}, core.E(core.ErrInput, op, err)
	}

	stamp := s.timestamp()
	entry, exists := snap.Entry(email)
	if !exists {
		entry = core.RegistryEntry{Email: email, CreatedAt: stamp}
	}
	if entry.Status != core.StatusActive {
		entry.Status = core.StatusInactive
	}
	entry.AccessLevel = lvl
	entry.Notes = "approved by " + admin
	if err := s.store.PutEntry(ctx, snap, entry); err != nil {
		return core.RegistryEntry{}, err
	}

	req, ok := snap.Request(email)
	if !ok {
		req = core.AccessRequest{Email: email, RequestedAt: stamp}
	}
	req.Status = core.RequestApproved
	req.Notes = fmt.Sprintf("Approved by %s on %s", admin, stamp)
	if err := s.store.PutRequest(ctx, snap, req); err != nil {
		return core.RegistryEntry{}, err
	}

	slog.InfoContext(ctx, "Access approved",
		log.FieldComponent, log.ComponentRegistry,
		log.FieldAdmin, admin,
		log.FieldUser, email,
		"access", lvl)
	s.publish(ctx, core.Event{Type: core.EventAccessApproved, Actor: admin, Subject: email, Details: string(lvl)})
	return entry, nil
}

// Reject marks a request Rejected. It never touches the registry entries.
func (s *Service) Reject(ctx context.Context, admin, email string) (core.AccessRequest, error) {
	const op = "reject access"
	snap, err := s.store.Load(ctx)
	if err != nil {
		return core.AccessRequest{}, err
	}
	admin, err = requireAdmin(snap, admin, op)
	if err != nil {
		return core.AccessRequest{}, err
	}
	email = core.NormalizeEmail(email)
	req, ok := snap.Request(email)
	if !ok {
		return core.AccessRequest{}, core.Errorf(core.ErrInput, op, "no access request for %q", email)
	}

	req.Status = core.RequestRejected
	req.Notes = fmt.Sprintf("Rejected by %s on %s", admin, s.timestamp())
	if err := s.store.PutRequest(ctx, snap, req); err != nil {
		return core.AccessRequest{}, err
	}

	slog.InfoContext(ctx, "Access rejected",
		log.FieldComponent, log.ComponentRegistry,
		log.FieldAdmin, admin,
		log.FieldUser, email)
	s.publish(ctx, core.Event{Type: core.EventAccessRejected, Actor: admin, Subject: email})
	return req, nil
}

// CompleteOnboarding binds a verified ledger to an approved user and
// activates them. Registering again replaces the ledger.
func (s *Service) CompleteOnboarding(ctx context.Context, email, ledgerID string) (core.RegistryEntry, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return core.RegistryEntry{}, err
	}
	entry, err := requireApproved(snap, email, "complete onboarding")
	if err != nil {
		return core.RegistryEntry{}, err
	}
	return s.activate(ctx, snap, entry, ledgerID)
}

func (s *Service) activate(ctx context.Context, snap *Snapshot, entry core.RegistryEntry, ledgerID string) (core.RegistryEntry, error) {
	const op = "complete onboarding"
	ledgerID = strings.TrimSpace(ledgerID)
	if ledgerID == "" {
		return core.RegistryEntry{}, core.Errorf(core.ErrInput, op, "ledger id is required")
	}
	if res := VerifySchema(ctx, s.docs, ledgerID); !res.OK {
		return core.RegistryEntry{}, core.E(core.ErrSchemaMismatch, op, errors.New(res.Reason))
	}

	entry.LedgerID = ledgerID
	entry.Status = core.StatusActive
	if err := s.store.PutEntry(ctx, snap, entry); err != nil {
		return core.RegistryEntry{}, err
	}

	slog.InfoContext(ctx, "Ledger onboarded",
		log.FieldComponent, log.ComponentRegistry,
		log.FieldUser, entry.Email,
		log.FieldLedgerID, ledgerID)
	s.publish(ctx, core.Event{Type: core.EventLedgerOnboarded, Actor: entry.Email, Subject: entry.Email, LedgerID: ledgerID})
	return entry, nil
}

// CreateLedger provisions a ledger for an approved user by copying the
// template. A ledger that is already registered and still verifies is
// reused.
func (s *Service) CreateLedger(ctx context.Context, email string) (core.RegistryEntry, error) {
	const op = "create ledger"
	snap, err := s.store.Load(ctx)
	if err != nil {
		return core.RegistryEntry{}, err
	}
	entry, err := requireApproved(snap, email, op)
	if err != nil {
		return core.RegistryEntry{}, err
	}

	if entry.LedgerID != "" && VerifySchema(ctx, s.docs, entry.LedgerID).OK {
		if entry.Status == core.StatusActive {
			return entry, nil
		}
		return s.activate(ctx, snap, entry, entry.LedgerID)
	}

	if s.templateID == "" {
		return core.RegistryEntry{}, core.Errorf(core.ErrUpstreamPermanent, op, "TEMPLATE_SPREADSHEET_ID is not configured")
	}
	id, err := s.docs.CopyDocument(ctx, s.templateID, entry.Email+" - Finance Dashboard")
	if err != nil {
		return core.RegistryEntry{}, fmt.Errorf("copy template: %w", err)
	}
	if err := s.docs.ShareDocument(ctx, id, entry.Email); err != nil {
		return core.RegistryEntry{}, fmt.Errorf("share ledger: %w", err)
	}
	return s.activate(ctx, snap, entry, id)
}

// Status reports access and onboarding state. The ledger schema is only
// checked for approved users that have a ledger.
func (s *Service) Status(ctx context.Context, email string) (AccessStatus, error) {
	email = core.NormalizeEmail(email)
	snap, err := s.store.Load(ctx)
	if err != nil {
		return AccessStatus{}, err
	}

	st := AccessStatus{Email: email, Status: core.StatusNone}
	if req, ok := snap.Request(email); ok {
		st.Request = &req
	}
	entry, ok := snap.Entry(email)
	if !ok {
		if st.Request != nil && st.Request.Status == core.RequestPending {
			st.Status = core.StatusPending
		}
		return st, nil
	}

	st.Status = entry.Status
	st.AccessLevel = entry.AccessLevel
	st.Allowed = entry.Status.Approved()
	st.IsAdmin = st.Allowed && entry.IsAdmin()
	if !st.Allowed {
		return st, nil
	}
	st.LedgerID = entry.LedgerID
	st.Onboarded = entry.Status == core.StatusActive && entry.LedgerID != ""
	if entry.LedgerID != "" {
		res := VerifySchema(ctx, s.docs, entry.LedgerID)
		st.Verify = &res
	}
	return st, nil
}

// PendingRequests lists open requests, oldest first.
func (s *Service) PendingRequests(ctx context.Context, admin string) ([]core.AccessRequest, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := requireAdmin(snap, admin, "list pending requests"); err != nil {
		return nil, err
	}

	var pending []core.AccessRequest
	for _, r := range snap.Requests() {
		if r.Status == core.RequestPending {
			pending = append(pending, r)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return requestedBefore(pending[i].RequestedAt, pending[j].RequestedAt)
	})
	return pending, nil
}

// BootstrapAdmin makes email the first administrator. It refuses once any
// other admin exists.
func (s *Service) BootstrapAdmin(ctx context.Context, email string) (core.RegistryEntry, error) {
	const op = "bootstrap admin"
	email = core.NormalizeEmail(email)
	if email == "" {
		return core.RegistryEntry{}, core.Errorf(core.ErrInput, op, "email is required")
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		return core.RegistryEntry{}, err
	}
	for _, e := range snap.entries {
		if e.Email != email && e.IsAdmin() && e.Status.Approved() {
			return core.RegistryEntry{}, core.Errorf(core.ErrForbidden, op, "an admin already exists")
		}
	}

	entry, ok := snap.Entry(email)
	if !ok {
		entry = core.RegistryEntry{Email: email, CreatedAt: s.timestamp()}
	}
	if !entry.Status.Approved() {
		entry.Status = core.StatusInactive
	}
	entry.AccessLevel = core.LevelAdmin
	entry.Notes = "bootstrap admin"
	if err := s.store.PutEntry(ctx, snap, entry); err != nil {
		return core.RegistryEntry{}, err
	}
	slog.InfoContext(ctx, "Admin bootstrapped", log.FieldComponent, log.ComponentRegistry, log.FieldUser, email)
	s.publish(ctx, core.Event{Type: core.EventAccessApproved, Actor: email, Subject: email, Details: string(core.LevelAdmin)})
	return entry, nil
}

// Resolve is the single registry lookup other components use.
func (s *Service) Resolve(ctx context.Context, email string) (core.RegistryEntry, bool, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return core.RegistryEntry{}, false, err
	}
	entry, ok := snap.Entry(email)
	return entry, ok, nil
}

// LedgerFor returns the ledger of an Active user.
func (s *Service) LedgerFor(ctx context.Context, email string) (string, error) {
	entry, ok, err := s.Resolve(ctx, email)
	if err != nil {
		return "", err
	}
	if !ok || entry.Status != core.StatusActive || entry.LedgerID == "" {
		return "", core.Errorf(core.ErrNotOnboarded, "resolve ledger", "%s has no active ledger", core.NormalizeEmail(email))
	}
	return entry.LedgerID, nil
}

// Info returns the template URL and the service account users share with.
func (s *Service) Info() (OnboardingInfo, error) {
	if s.templateID == "" {
		return OnboardingInfo{}, core.Errorf(core.ErrUpstreamPermanent, "onboarding info", "TEMPLATE_SPREADSHEET_ID is not configured")
	}
	return OnboardingInfo{
		TemplateURL:         "https://docs.google.com/spreadsheets/d/" + s.templateID,
		ServiceAccountEmail: s.serviceAccountEmail,
	}, nil
}

// Ping loads the registry to prove the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.store.Load(ctx)
	return err
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// publish never fails the caller; the registry write already happened.
func (s *Service) publish(ctx context.Context, ev core.Event) {
	ev.ID = uuid.NewString()
	ev.At = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish event",
			log.FieldComponent, log.ComponentRegistry,
			log.FieldEventType, ev.Type,
			log.FieldError, err)
	}
}

func requireAdmin(snap *Snapshot, admin, op string) (string, error) {
	admin = core.NormalizeEmail(admin)
	if admin == "" {
		return "", core.Errorf(core.ErrUnauthenticated, op, "no email")
	}
	entry, ok := snap.Entry(admin)
	if !ok || !entry.IsAdmin() || !entry.Status.Approved() {
		return "", core.Errorf(core.ErrForbidden, op, "admin access required")
	}
	return admin, nil
}

func requireApproved(snap *Snapshot, email, op string) (core.RegistryEntry, error) {
	email = core.NormalizeEmail(email)
	if email == "" {
		return core.RegistryEntry{}, core.Errorf(core.ErrUnauthenticated, op, "no email")
	}
	entry, ok := snap.Entry(email)
	if !ok || !entry.Status.Approved() {
		return core.RegistryEntry{}, core.Errorf(core.ErrForbidden, op, "%s is not approved", email)
	}
	return entry, nil
}

// requestedBefore orders RFC 3339 timestamps chronologically and falls
// back to string order for anything else.
func requestedBefore(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339, a)
	tb, errB := time.Parse(time.RFC3339, b)
	if errA == nil && errB == nil {
		return ta.Before(tb)
	}
	return a < b
}
