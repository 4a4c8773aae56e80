package alert

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bluelight-labs/vigia/internal/history"
	"github.com/bluelight-labs/vigia/internal/models"
	"github.com/bluelight-labs/vigia/internal/notifier"
)

type stubNotifier struct {
	name string
	sent []*models.Alert
	fail bool
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Send(ctx context.Context, alert *models.Alert) error {
	if s.fail {
		return errors.New("webhook unavailable")
	}
	s.sent = append(s.sent, alert)
	return nil
}

func (s *stubNotifier) Close() error { return nil }

func setupSender(t *testing.T, stub *stubNotifier) (*Sender, *history.Store) {
	t.Helper()

	store := history.New(filepath.Join(t.TempDir(), "history.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("failed to open history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate history store: %v", err)
	}

	d := notifier.NewDispatcher()
	d.Register(stub)
	return NewSender(store, d), store
}

func TestSenderDeliversAndRecords(t *testing.T) {
	stub := &stubNotifier{name: "cor"}
	sender, store := setupSender(t, stub)

	alerts := []*models.Alert{
		{ID: "alert-1", Solicitante: "cor", IDReport: "rep-1", Message: "msg 1"},
		{ID: "alert-2", Solicitante: "cor", IDReport: "rep-2", Message: "msg 2"},
	}

	stats, err := sender.Send(context.Background(), alerts)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if stats.Sent != 2 || stats.Suppressed != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 2 sent", stats)
	}
	if len(stub.sent) != 2 {
		t.Errorf("expected 2 deliveries, got %d", len(stub.sent))
	}

	for _, id := range []string{"alert-1", "alert-2"} {
		seen, err := store.Seen(context.Background(), id)
		if err != nil {
			t.Fatalf("Seen: %v", err)
		}
		if !seen {
			t.Errorf("alert %s should be in history", id)
		}
	}
}

func TestSenderSuppressesDuplicates(t *testing.T) {
	stub := &stubNotifier{name: "cor"}
	sender, _ := setupSender(t, stub)

	alerts := []*models.Alert{
		{ID: "alert-1", Solicitante: "cor", IDReport: "rep-1", Message: "msg"},
	}
	if _, err := sender.Send(context.Background(), alerts); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	stats, err := sender.Send(context.Background(), alerts)
	if err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if stats.Sent != 0 || stats.Suppressed != 1 {
		t.Errorf("stats = %+v, want 1 suppressed", stats)
	}
	if len(stub.sent) != 1 {
		t.Errorf("duplicate alert was delivered again: %d deliveries", len(stub.sent))
	}
}

func TestSenderFailedDeliveryStillSuppresses(t *testing.T) {
	stub := &stubNotifier{name: "cor", fail: true}
	sender, store := setupSender(t, stub)

	alerts := []*models.Alert{
		{ID: "alert-1", Solicitante: "cor", IDReport: "rep-1", Message: "msg"},
	}
	stats, err := sender.Send(context.Background(), alerts)
	if err == nil {
		t.Fatal("expected error when delivery fails")
	}
	if stats.Failed != 1 {
		t.Errorf("stats = %+v, want 1 failed", stats)
	}

	// The history row written before delivery still blocks the retry from
	// sending a duplicate.
	seen, err := store.Seen(context.Background(), "alert-1")
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !seen {
		t.Error("failed alert should still be recorded in history")
	}
}

func TestSenderContinuesAfterFailure(t *testing.T) {
	cor := &stubNotifier{name: "cor"}
	sender, _ := setupSender(t, cor)

	alerts := []*models.Alert{
		{ID: "alert-1", Solicitante: "desconhecido", IDReport: "rep-1", Message: "msg"},
		{ID: "alert-2", Solicitante: "cor", IDReport: "rep-2", Message: "msg"},
	}
	stats, err := sender.Send(context.Background(), alerts)
	if err == nil {
		t.Fatal("expected error to report the failed alert")
	}
	if stats.Failed != 1 || stats.Sent != 1 {
		t.Errorf("stats = %+v, want 1 failed and 1 sent", stats)
	}
	if len(cor.sent) != 1 {
		t.Errorf("remaining alert should still be delivered, got %d", len(cor.sent))
	}
}
