// Package delivery moves drafts through review and sends approved ones.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lazypower/prospector/internal/logging"
	"github.com/lazypower/prospector/internal/store"
)

// ErrInvalidTransition is returned for a status change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions lists the statuses reachable from each status. A reviewed
// draft goes back to queued before it can be reviewed again. Nothing leaves
// sent.
var transitions = map[string][]string{
	store.StatusQueued:   {store.StatusApproved, store.StatusRejected},
	store.StatusApproved: {store.StatusQueued, store.StatusSent},
	store.StatusRejected: {store.StatusQueued},
	store.StatusSent:     {},
}

// ValidStatus reports whether s is a known draft status.
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a draft may move from one status to another.
// Setting the current status again is allowed.
func CanTransition(from, to string) bool {
	if _, ok := transitions[to]; !ok {
		return false
	}
	if from == to {
		return from != store.StatusSent
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SetStatus changes a draft's review status. Unknown drafts return
// store.ErrNotFound.
func SetStatus(db *store.DB, draftID, status string) (*store.Draft, error) {
	d, err := db.GetDraft(draftID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("draft %s: %w", draftID, store.ErrNotFound)
	}
	if !CanTransition(d.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, status)
	}
	if err := db.UpdateDraftStatus(draftID, status); err != nil {
		return nil, err
	}
	d.Status = status
	return d, nil
}

// Message is an email ready to send.
type Message struct {
	DraftID string
	To      string
	Subject string
	Body    string
	Sources []string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// BatchOptions controls SendBatch.
type BatchOptions struct {
	OnlyApproved bool          // false sends queued drafts instead
	Pause        time.Duration // wait between sends
	To           string        // recipient; defaults to test@example.com
	Limit        int
}

// SendBatch sends every approved (or queued) draft and marks each sent as it
// goes. A send failure stops the batch; drafts already sent stay sent.
func SendBatch(ctx context.Context, db *store.DB, sender Sender, opts BatchOptions, log *slog.Logger) (int, error) {
	log = logging.OrDefault(log)

	status := store.StatusApproved
	if !opts.OnlyApproved {
		status = store.StatusQueued
	}
	to := opts.To
	if to == "" {
		to = "test@example.com"
	}

	drafts, err := db.ListDrafts(store.DraftFilter{Status: status, Limit: opts.Limit})
	if err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}

	sent := 0
	for i, d := range drafts {
		if i > 0 && opts.Pause > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(opts.Pause):
			}
		}

		msg := Message{DraftID: d.ID, To: to, Subject: d.Subject, Body: d.Body, Sources: d.Sources}
		if err := sender.Send(ctx, msg); err != nil {
			return sent, fmt.Errorf("send draft %s: %w", d.ID, err)
		}
		if err := db.UpdateDraftStatus(d.ID, store.StatusSent); err != nil {
			return sent, fmt.Errorf("mark draft %s sent: %w", d.ID, err)
		}
		sent++
	}

	log.Info("sent emails", "count", sent, "provider", sender.Name())
	return sent, nil
}
