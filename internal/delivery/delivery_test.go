package delivery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/prospector/internal/config"
	"github.com/lazypower/prospector/internal/store"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func seed(t *testing.T, ids ...string) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	c := &store.Company{Name: "Acme", Domain: "acme.com"}
	require.NoError(t, db.UpsertCompany(c))
	for i, id := range ids {
		require.NoError(t, db.InsertDraft(&store.Draft{
			ID: id, CompanyID: c.ID, CreatedAt: int64(1000 - i), Subject: "Subject " + id, Body: "Body " + id,
		}))
	}
	return db
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{store.StatusQueued, store.StatusApproved, true},
		{store.StatusQueued, store.StatusRejected, true},
		{store.StatusQueued, store.StatusSent, false},
		{store.StatusApproved, store.StatusQueued, true},
		{store.StatusApproved, store.StatusSent, true},
		{store.StatusRejected, store.StatusQueued, true},
		{store.StatusRejected, store.StatusSent, false},
		{store.StatusSent, store.StatusQueued, false},
		{store.StatusSent, store.StatusSent, false},
		{store.StatusApproved, store.StatusApproved, true},
		{store.StatusQueued, "archived", false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{store.StatusQueued, store.StatusApproved, store.StatusRejected, store.StatusSent} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus(""))
}

func TestSetStatus(t *testing.T) {
	db := seed(t, "d1")

	d, err := SetStatus(db, "d1", store.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, store.StatusApproved, d.Status)

	got, _ := db.GetDraft("d1")
	assert.Equal(t, store.StatusApproved, got.Status)

	_, err = SetStatus(db, "d1", store.StatusRejected)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	_, err = SetStatus(db, "missing", store.StatusApproved)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

type recordingSender struct {
	sent []Message
	fail string
}

func (r *recordingSender) Name() string { return "recording" }

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	if msg.DraftID == r.fail {
		return errors.New("mailbox full")
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestSendBatchOnlyApproved(t *testing.T) {
	db := seed(t, "d1", "d2", "d3")
	_, err := SetStatus(db, "d1", store.StatusApproved)
	require.NoError(t, err)
	_, err = SetStatus(db, "d3", store.StatusApproved)
	require.NoError(t, err)

	sender := &recordingSender{}
	n, err := SendBatch(context.Background(), db, sender, BatchOptions{OnlyApproved: true}, quiet)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "test@example.com", sender.sent[0].To)

	for _, id := range []string{"d1", "d3"} {
		d, _ := db.GetDraft(id)
		assert.Equal(t, store.StatusSent, d.Status)
	}
	d2, _ := db.GetDraft("d2")
	assert.Equal(t, store.StatusQueued, d2.Status)

	// nothing left to send
	n, err = SendBatch(context.Background(), db, sender, BatchOptions{OnlyApproved: true}, quiet)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSendBatchQueued(t *testing.T) {
	db := seed(t, "d1", "d2")
	sender := &recordingSender{}

	n, err := SendBatch(context.Background(), db, sender, BatchOptions{OnlyApproved: false}, quiet)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSendBatchStopsOnFailure(t *testing.T) {
	db := seed(t, "d1", "d2", "d3")
	for _, id := range []string{"d1", "d2", "d3"} {
		_, err := SetStatus(db, id, store.StatusApproved)
		require.NoError(t, err)
	}

	// drafts are listed newest first: d1, d2, d3
	sender := &recordingSender{fail: "d2"}
	n, err := SendBatch(context.Background(), db, sender, BatchOptions{OnlyApproved: true}, quiet)
	require.Error(t, err)
	assert.Equal(t, 1, n)

	d1, _ := db.GetDraft("d1")
	assert.Equal(t, store.StatusSent, d1.Status, "earlier sends are kept")
	d3, _ := db.GetDraft("d3")
	assert.Equal(t, store.StatusApproved, d3.Status)
}

func TestDryRun(t *testing.T) {
	var buf bytes.Buffer
	err := DryRun{W: &buf}.Send(context.Background(), Message{To: "a@b.com", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "SUBJECT: Hi")
	assert.Contains(t, buf.String(), "TO: a@b.com")
}

func TestSMTPSend(t *testing.T) {
	_, err := NewSMTP(config.SMTPConfig{})
	assert.Error(t, err)

	s, err := NewSMTP(config.SMTPConfig{Host: "mail.example.com", From: "me@example.com", Username: "u", Password: "p"})
	require.NoError(t, err)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Message{DraftID: "d1", To: "x@y.com", Subject: "Hi", Body: "line1\nline2"}))
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, []string{"x@y.com"}, gotTo)
	assert.True(t, strings.Contains(string(gotMsg), "Subject: Hi\r\n"))
	assert.True(t, strings.Contains(string(gotMsg), "line1\r\nline2"))
}

func TestNewSender(t *testing.T) {
	s, err := NewSender("dryrun", config.SMTPConfig{}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "dryrun", s.Name())

	_, err = NewSender("sendgrid", config.SMTPConfig{}, io.Discard)
	assert.Error(t, err)
}
