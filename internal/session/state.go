// Package session keeps per-browser dashboard state between requests.
// Handlers load a snapshot, derive a new one, and save it back; the
// analysis itself is recomputed from the snapshot on every render.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/ingest"
	"github.com/ranauvalemobi/dashboard-email-marketing/internal/report"
)

var ErrNotFound = errors.New("session not found")

// Slot names one of the two upload paths.
type Slot string

const (
	SlotOpens     Slot = "opens"
	SlotPurchases Slot = "purchases"
)

// ParseSlot validates a slot taken from a URL.
func ParseSlot(s string) (Slot, bool) {
	switch Slot(s) {
	case SlotOpens, SlotPurchases:
		return Slot(s), true
	default:
		return "", false
	}
}

// Upload is the outcome of the latest upload on one path. Exactly one of
// Table and Error is set once a file has been received.
type Upload struct {
	Filename string        `json:"filename,omitempty"`
	Table    *ingest.Table `json:"table,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Received reports whether a file was ever uploaded on this path.
func (u Upload) Received() bool {
	return u.Filename != ""
}

// State is one session's snapshot.
type State struct {
	ID        string          `json:"id"`
	Campaign  report.Campaign `json:"campaign"`
	Opens     Upload          `json:"opens"`
	Purchases Upload          `json:"purchases"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// New starts a session with the default campaign metadata.
func New(campaign report.Campaign, now time.Time) *State {
	return &State{
		ID:        uuid.NewString(),
		Campaign:  campaign,
		UpdatedAt: now,
	}
}

// WithUpload returns a copy with one slot replaced; the other is untouched.
func (s *State) WithUpload(slot Slot, u Upload, now time.Time) *State {
	next := *s
	if slot == SlotPurchases {
		next.Purchases = u
	} else {
		next.Opens = u
	}
	next.UpdatedAt = now
	return &next
}

// WithCampaign returns a copy with new campaign metadata.
func (s *State) WithCampaign(c report.Campaign, now time.Time) *State {
	next := *s
	next.Campaign = c
	next.UpdatedAt = now
	return &next
}

// Store persists session snapshots. Load extends a session's lifetime by
// the store's TTL, so expiry counts from the last request.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, s *State) error
	Delete(ctx context.Context, id string) error
}
