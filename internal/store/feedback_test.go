package store

import (
	"database/sql"
	"testing"
)

func seedProcessedMessage(t *testing.T, s *Store) int64 {
	t.Helper()
	sessionID := seedSession(t, s)
	id, err := s.UpsertProcessedMessage(UpsertProcessedMessageInput{
		MessageID: "<seed@mail>", SessionID: sessionID, Folder: "INBOX",
		Sender: "a@b.com", SenderDomain: "b.com", Action: ActionDeleted,
		Category: "spam", ProcessingStatus: StatusProcessed,
	})
	if err != nil {
		t.Fatalf("seedProcessedMessage: %v", err)
	}
	return id
}

func TestSubmitAndListPendingFeedback(t *testing.T) {
	s := testStore(t)
	msgID := seedProcessedMessage(t, s)

	if _, err := s.SubmitFeedback(Feedback{
		ProcessedMessageID: msgID, OriginalCategory: "spam",
		CorrectedCategory: "legitimate", ConfidenceRating: 0.8,
	}); err != nil {
		t.Fatalf("SubmitFeedback() error: %v", err)
	}

	pending, err := s.PendingFeedback()
	if err != nil {
		t.Fatalf("PendingFeedback() error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("PendingFeedback() returned %d rows, want 1", len(pending))
	}
	if pending[0].Incorporated {
		t.Error("new feedback should not be Incorporated")
	}
}

func TestMarkFeedbackIncorporated(t *testing.T) {
	s := testStore(t)
	msgID := seedProcessedMessage(t, s)

	id, err := s.SubmitFeedback(Feedback{
		ProcessedMessageID: msgID, OriginalCategory: "spam", CorrectedCategory: "legitimate",
	})
	if err != nil {
		t.Fatalf("SubmitFeedback() error: %v", err)
	}

	if err := s.WithWriteTx(func(tx *sql.Tx) error {
		return MarkFeedbackIncorporated(tx, []int64{id})
	}); err != nil {
		t.Fatalf("MarkFeedbackIncorporated() error: %v", err)
	}

	pending, err := s.PendingFeedback()
	if err != nil {
		t.Fatalf("PendingFeedback() error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("PendingFeedback() returned %d rows after incorporation, want 0", len(pending))
	}
}
