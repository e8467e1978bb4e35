package store

import "testing"

func seedAccount(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.UpsertAccount("user@example.com", "personal", "gmail")
	if err != nil {
		t.Fatalf("seedAccount: %v", err)
	}
	return id
}

func TestOpenAndGetSession(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)

	id, err := s.OpenSession(accountID, ModePreview)
	if err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}

	sess, err := s.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if sess.AccountID != accountID || sess.Mode != ModePreview {
		t.Errorf("GetSession() = %+v, want account=%d mode=preview", sess, accountID)
	}
	if sess.Examined != 0 {
		t.Errorf("new session Examined = %d, want 0", sess.Examined)
	}
}

func TestCloseSessionSetsEndedAt(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)
	id, err := s.OpenSession(accountID, ModeProcess)
	if err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}

	if err := s.CloseSession(id); err != nil {
		t.Fatalf("CloseSession() error: %v", err)
	}

	sess, err := s.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if sess.EndedAt == nil {
		t.Error("CloseSession() did not set EndedAt")
	}
}

func TestListSessionsOrdersNewestFirst(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)

	first, err := s.OpenSession(accountID, ModePreview)
	if err != nil {
		t.Fatalf("OpenSession(1) error: %v", err)
	}
	second, err := s.OpenSession(accountID, ModeProcess)
	if err != nil {
		t.Fatalf("OpenSession(2) error: %v", err)
	}

	sessions, err := s.ListSessions(accountID, 0)
	if err != nil {
		t.Fatalf("ListSessions() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("ListSessions() returned %d rows, want 2", len(sessions))
	}
	if sessions[0].ID != second || sessions[1].ID != first {
		t.Errorf("ListSessions() not newest-first: got ids %d, %d", sessions[0].ID, sessions[1].ID)
	}
}

func TestSessionCountedInvariant(t *testing.T) {
	s := testStore(t)
	accountID := seedAccount(t, s)
	sessionID, err := s.OpenSession(accountID, ModeProcess)
	if err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}

	if _, err := s.UpsertProcessedMessage(UpsertProcessedMessageInput{
		MessageID: "msg-1", SessionID: sessionID, Folder: "INBOX", Sender: "a@b.com",
		SenderDomain: "b.com", Action: ActionDeleted, Category: "spam",
		ProcessingStatus: StatusProcessed,
	}); err != nil {
		t.Fatalf("UpsertProcessedMessage() error: %v", err)
	}
	if _, err := s.UpsertProcessedMessage(UpsertProcessedMessageInput{
		MessageID: "msg-2", SessionID: sessionID, Folder: "INBOX", Sender: "c@d.com",
		SenderDomain: "d.com", Action: ActionPreserved, Category: "legitimate",
		ProcessingStatus: StatusProcessed,
	}); err != nil {
		t.Fatalf("UpsertProcessedMessage() error: %v", err)
	}

	sess, err := s.GetSession(sessionID)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if !sess.Counted() {
		t.Errorf("session counters don't add up: %+v", sess)
	}
	if sess.Examined != 2 || sess.Deleted != 1 || sess.Preserved != 1 {
		t.Errorf("session = %+v, want examined=2 deleted=1 preserved=1", sess)
	}
	if sess.Categories["spam"] != 1 || sess.Categories["legitimate"] != 1 {
		t.Errorf("session categories = %v, want spam=1 legitimate=1", sess.Categories)
	}
}
