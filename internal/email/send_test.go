package email

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/leaguehq/leaguehq/internal/testutil"
)

type fakeEmailSender struct {
	sendCalls   int32
	sendStarted chan struct{}
	recipient   atomic.Value
}

func newFakeEmailSender() *fakeEmailSender {
	return &fakeEmailSender{sendStarted: make(chan struct{}, 1)}
}

func (f *fakeEmailSender) Send(ctx context.Context, recipient, subject, body string) error {
	atomic.AddInt32(&f.sendCalls, 1)
	f.recipient.Store(recipient)
	select {
	case f.sendStarted <- struct{}{}:
	default:
	}
	return nil
}

func TestSendBookingEmail(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Member", "member@test.com")
	sender := newFakeEmailSender()
	logger := zerolog.Nop()

	SendBookingEmail(context.Background(), database.Queries, sender, userID, Message{
		Subject: "Booking Confirmed",
		Body:    "See you there",
	}, &logger)

	select {
	case <-sender.sendStarted:
	case <-time.After(time.Second):
		t.Fatal("send never started")
	}
	if got := sender.recipient.Load(); got != "member@test.com" {
		t.Errorf("recipient = %v, want member@test.com", got)
	}
}

func TestSendBookingEmailSkipsUserWithoutEmail(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "No Email", "")
	sender := newFakeEmailSender()
	logger := zerolog.Nop()

	SendBookingEmail(context.Background(), database.Queries, sender, userID, Message{
		Subject: "Booking Confirmed",
		Body:    "See you there",
	}, &logger)

	select {
	case <-sender.sendStarted:
		t.Fatal("send started for user without email")
	case <-time.After(100 * time.Millisecond):
	}
	if n := atomic.LoadInt32(&sender.sendCalls); n != 0 {
		t.Errorf("send calls = %d, want 0", n)
	}
}

func TestSendBookingEmailSkipsEmptyMessage(t *testing.T) {
	database := testutil.NewTestDB(t)
	userID := testutil.SeedUser(t, database, "Member", "member@test.com")
	sender := newFakeEmailSender()
	logger := zerolog.Nop()

	SendBookingEmail(context.Background(), database.Queries, sender, userID, Message{}, &logger)

	select {
	case <-sender.sendStarted:
		t.Fatal("send started for empty message")
	case <-time.After(100 * time.Millisecond):
	}
}
