package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Cadence is the aggregation window type.
type Cadence string

const (
	Weekly   Cadence = "weekly"
	Biweekly Cadence = "biweekly"
	Monthly  Cadence = "monthly"
	Yearly   Cadence = "yearly"
)

// Cadences lists every supported cadence in ascending window length.
var Cadences = []Cadence{Weekly, Biweekly, Monthly, Yearly}

// ParseCadence accepts the canonical names plus the "bi-weekly" and "annual" aliases.
func ParseCadence(s string) (Cadence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly":
		return Weekly, nil
	case "biweekly", "bi-weekly":
		return Biweekly, nil
	case "monthly":
		return Monthly, nil
	case "yearly", "annual":
		return Yearly, nil
	}
	return "", Errorf(ErrInput, "parse cadence", "unknown cadence %q", s)
}

type (
	// Transaction is one ledger row. Date holds the canonical display form
	// (MM/DD/YYYY) when it could be normalized, otherwise the raw input.
	Transaction struct {
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		CreditCard  string  `json:"creditCard"`
		Status      string  `json:"status,omitempty"`
		Notes       string  `json:"notes,omitempty"`
	}

	// Budget maps a category to its weekly base amount.
	Budget map[string]float64

	// Period is an inclusive [Start, End] window at midnight granularity.
	Period struct {
		Cadence   Cadence   `json:"cadence"`
		Start     time.Time `json:"startDate"`
		End       time.Time `json:"endDate"`
		Label     string    `json:"label"`
		IsCurrent bool      `json:"isCurrent"`
	}
)

// Days returns the number of calendar days covered by the period.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24+0.5) + 1
}

// UnmarshalJSON coerces amount from either a JSON number or a currency string.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	aux := struct {
		*alias
		Amount json.RawMessage `json:"amount"`
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Amount = CoerceAmount(aux.Amount)
	return nil
}

// RegistryStatus is the lifecycle state of an email in the registry.
type RegistryStatus string

const (
	StatusNone     RegistryStatus = "None"
	StatusPending  RegistryStatus = "Pending"
	StatusInactive RegistryStatus = "Inactive"
	StatusActive   RegistryStatus = "Active"
	StatusRejected RegistryStatus = "Rejected"
)

// ParseRegistryStatus maps a stored cell to a status. Unknown values are None.
func ParseRegistryStatus(s string) RegistryStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending
	case "inactive", "approved":
		return StatusInactive
	case "active":
		return StatusActive
	case "rejected":
		return StatusRejected
	}
	return StatusNone
}

// Approved reports whether the status grants access to the application.
func (s RegistryStatus) Approved() bool {
	return s == StatusInactive || s == StatusActive
}

// AccessLevel is the privilege attached to a registry entry.
type AccessLevel string

const (
	LevelUser  AccessLevel = "User"
	LevelAdmin AccessLevel = "Admin"
)

var ErrInvalidAccessLevel = errors.New(`access must be either "User" or "Admin"`)

// ParseAccessLevel is case-insensitive; an empty string defaults to User.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "user":
		return LevelUser, nil
	case "admin":
		return LevelAdmin, nil
	}
	return "", ErrInvalidAccessLevel
}

// RequestStatus is the state of an access request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "Pending"
	RequestApproved RequestStatus = "Approved"
	RequestRejected RequestStatus = "Rejected"
)

// ParseRequestStatus maps a stored cell to a request status, defaulting to Pending.
func ParseRequestStatus(s string) RequestStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approved":
		return RequestApproved
	case "rejected":
		return RequestRejected
	}
	return RequestPending
}

type (
	RegistryEntry struct {
		Email       string         `json:"email"`
		LedgerID    string         `json:"ledgerId"`
		Status      RegistryStatus `json:"status"`
		AccessLevel AccessLevel    `json:"accessLevel"`
		CreatedAt   string         `json:"createdAt"`
		Notes       string         `json:"notes"`
	}

	AccessRequest struct {
		Email       string        `json:"email"`
		Status      RequestStatus `json:"status"`
		RequestedAt string        `json:"requestedAt"`
		Notes       string        `json:"notes"`
	}

	// SchemaResult reports whether a ledger exposes the required sections.
	SchemaResult struct {
		OK      bool   `json:"ok"`
		Section string `json:"section,omitempty"`
		Reason  string `json:"reason,omitempty"`
	}
)

// IsAdmin reports whether the entry carries the Admin level.
func (e RegistryEntry) IsAdmin() bool {
	return e.AccessLevel == LevelAdmin
}

// NormalizeEmail lower-cases and trims an address for use as a registry key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
