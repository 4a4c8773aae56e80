package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bluelight-labs/vigia/internal/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()

	s := New(filepath.Join(t.TempDir(), "history.db"))
	if err := s.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndSeen(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	seen, err := s.Seen(ctx, "alert-123")
	if err != nil {
		t.Fatalf("Seen(): %v", err)
	}
	if seen {
		t.Error("fresh store should not know any alert")
	}

	entry := &models.AlertHistoryEntry{
		AlertID:     "alert-123",
		Solicitante: "discord",
		IDReport:    "RPT-1",
		Message:     "**Alerta** tiroteio próximo ao evento",
	}
	if err := s.Record(ctx, entry); err != nil {
		t.Fatalf("Record(): %v", err)
	}
	if entry.ID == "" {
		t.Error("Record should assign an id")
	}

	seen, err = s.Seen(ctx, "alert-123")
	if err != nil {
		t.Fatalf("Seen(): %v", err)
	}
	if !seen {
		t.Error("recorded alert should be seen")
	}
}

func TestUnsentEntriesStillSuppress(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// Sent stays false, as if the process crashed before delivery.
	err := s.Record(ctx, &models.AlertHistoryEntry{AlertID: "alert-1", Solicitante: "discord", IDReport: "RPT-1"})
	if err != nil {
		t.Fatalf("Record(): %v", err)
	}

	seen, err := s.Seen(ctx, "alert-1")
	if err != nil {
		t.Fatalf("Seen(): %v", err)
	}
	if !seen {
		t.Error("undelivered alert must still suppress the duplicate")
	}
}

func TestMarkSent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	entry := &models.AlertHistoryEntry{AlertID: "alert-1", Solicitante: "discord", IDReport: "RPT-1"}
	if err := s.Record(ctx, entry); err != nil {
		t.Fatalf("Record(): %v", err)
	}

	sentAt := time.Now().UTC().Truncate(time.Second)
	if err := s.MarkSent(ctx, entry.ID, sentAt); err != nil {
		t.Fatalf("MarkSent(): %v", err)
	}

	entries, total, err := s.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List(): %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("total = %d, entries = %d", total, len(entries))
	}
	if !entries[0].Sent {
		t.Error("entry should be marked sent")
	}
	if entries[0].SentAt.IsZero() {
		t.Error("sent_at should be set")
	}

	if err := s.MarkSent(ctx, "missing-id", sentAt); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestDeleteBefore(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	old := &models.AlertHistoryEntry{AlertID: "alert-old", Solicitante: "discord", IDReport: "RPT-1",
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	recent := &models.AlertHistoryEntry{AlertID: "alert-new", Solicitante: "discord", IDReport: "RPT-2"}
	if err := s.Record(ctx, old); err != nil {
		t.Fatalf("Record(): %v", err)
	}
	if err := s.Record(ctx, recent); err != nil {
		t.Fatalf("Record(): %v", err)
	}

	deleted, err := s.DeleteBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore(): %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	seen, _ := s.Seen(ctx, "alert-old")
	if seen {
		t.Error("old alert should be gone")
	}
	seen, _ = s.Seen(ctx, "alert-new")
	if !seen {
		t.Error("recent alert should remain")
	}
}
