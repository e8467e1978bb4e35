package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sentryd/sentryd/internal/classifier"
	"github.com/sentryd/sentryd/internal/config"
	"github.com/sentryd/sentryd/internal/controller"
	"github.com/sentryd/sentryd/internal/imapadapter"
	"github.com/sentryd/sentryd/internal/overrides"
	"github.com/sentryd/sentryd/internal/store"
)

func testScheduler(t *testing.T, accounts []config.AccountConfig, cfg config.SchedulerConfig, dial Dialer) (*Scheduler, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "scheduler_test.db")
	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Open(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })

	pipeline := classifier.NewPipeline(nil, 0, nil)
	ov := overrides.New(s)
	ctrl := controller.New(s, pipeline, ov, nil)
	return New(s, ctrl, accounts, config.ClassifierConfig{Tier1ConfidenceThreshold: 0.01}, cfg, nil, dial), s
}

type fakeIMAPClient struct {
	byFolder map[string][]imapadapter.Message
	deleted  map[string][]uint32
}

func newFakeIMAPClient() *fakeIMAPClient {
	return &fakeIMAPClient{byFolder: map[string][]imapadapter.Message{}, deleted: map[string][]uint32{}}
}

func (f *fakeIMAPClient) FetchBatch(ctx context.Context, folder string, sinceUID uint32, limit int) ([]imapadapter.Message, error) {
	var out []imapadapter.Message
	for _, m := range f.byFolder[folder] {
		if m.UID > sinceUID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeIMAPClient) Delete(ctx context.Context, folder string, uids []uint32, strategy config.DeletionStrategy) error {
	f.deleted[folder] = append(f.deleted[folder], uids...)
	return nil
}

func spamMessage(uid uint32, messageID string) imapadapter.Message {
	return imapadapter.Message{
		Envelope: imapadapter.Envelope{
			UID:     uid,
			Date:    time.Now(),
			From:    "promo@clearance-deals-now.top",
			Subject: "WINNER!!! CLAIM YOUR FREE PRIZE NOW, ACT NOW limited time",
		},
		MessageID: messageID,
	}
}

func testAccount(name string) config.AccountConfig {
	return config.AccountConfig{
		Name: name, Email: name + "@example.com", Provider: "generic",
		TargetFolders: []string{"INBOX"}, BatchSizeOverride: 100,
	}
}

func TestRunOnceProcessesEveryConfiguredAccount(t *testing.T) {
	clientA, clientB := newFakeIMAPClient(), newFakeIMAPClient()
	clientA.byFolder["INBOX"] = []imapadapter.Message{spamMessage(1, "<a@mail>")}
	clientB.byFolder["INBOX"] = []imapadapter.Message{spamMessage(1, "<b@mail>")}

	dial := func(account config.AccountConfig) controller.IMAPClient {
		if account.Name == "alice" {
			return clientA
		}
		return clientB
	}

	accounts := []config.AccountConfig{testAccount("alice"), testAccount("bob")}
	sch, _ := testScheduler(t, accounts, config.SchedulerConfig{MaxConcurrentAccounts: 2}, dial)

	sch.RunOnce(context.Background())

	if len(clientA.deleted["INBOX"]) != 1 {
		t.Errorf("alice deleted = %v, want one UID", clientA.deleted["INBOX"])
	}
	if len(clientB.deleted["INBOX"]) != 1 {
		t.Errorf("bob deleted = %v, want one UID", clientB.deleted["INBOX"])
	}
}

func TestRunOnceSkipsAccountWithHeldLock(t *testing.T) {
	client := newFakeIMAPClient()
	client.byFolder["INBOX"] = []imapadapter.Message{spamMessage(1, "<locked@mail>")}
	account := testAccount("alice")

	sch, s := testScheduler(t, []config.AccountConfig{account}, config.SchedulerConfig{MaxConcurrentAccounts: 1},
		func(config.AccountConfig) controller.IMAPClient { return client })

	acquired, err := s.AcquireSchedulerLock("account:alice", "someone-else")
	if err != nil || !acquired {
		t.Fatalf("AcquireSchedulerLock() = %v, %v, want true, nil", acquired, err)
	}

	sch.RunOnce(context.Background())

	if len(client.deleted["INBOX"]) != 0 {
		t.Errorf("deleted = %v, want no delete while lock is held", client.deleted["INBOX"])
	}
}

func TestRunOnceReleasesLockAfterRun(t *testing.T) {
	client := newFakeIMAPClient()
	client.byFolder["INBOX"] = []imapadapter.Message{spamMessage(1, "<once@mail>")}
	account := testAccount("alice")

	sch, s := testScheduler(t, []config.AccountConfig{account}, config.SchedulerConfig{MaxConcurrentAccounts: 1},
		func(config.AccountConfig) controller.IMAPClient { return client })

	sch.RunOnce(context.Background())

	acquired, err := s.AcquireSchedulerLock("account:alice", "next-owner")
	if err != nil {
		t.Fatalf("AcquireSchedulerLock() error: %v", err)
	}
	if !acquired {
		t.Error("lock still held after RunOnce returned, want it released")
	}
}
