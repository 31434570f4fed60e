package mongo

import (
	"context"
	"errors"
	"testing"
)

type stubIndexer struct {
	calls int
	err   error
}

func (s *stubIndexer) EnsureIndexes(context.Context) error {
	s.calls++
	return s.err
}

func TestConnect_RequiresDatabase(t *testing.T) {
	_, _, err := Connect(context.Background(), Config{URI: "mongodb://localhost:27017"})
	if !errors.Is(err, errNoDatabase) {
		t.Fatalf("got %v, want errNoDatabase", err)
	}
}

func TestEnsureIndexes(t *testing.T) {
	alerts, ledger := &stubIndexer{}, &stubIndexer{}
	if err := EnsureIndexes(context.Background(), map[string]Indexer{"alerts": alerts, "ledger": ledger}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alerts.calls != 1 || ledger.calls != 1 {
		t.Errorf("each repository indexes once: alerts=%d ledger=%d", alerts.calls, ledger.calls)
	}
}

func TestEnsureIndexes_NamesFailingRepository(t *testing.T) {
	boom := errors.New("boom")
	err := EnsureIndexes(context.Background(), map[string]Indexer{"alerts": &stubIndexer{err: boom}})
	if !errors.Is(err, boom) || err.Error() != "ensure alerts indexes: boom" {
		t.Fatalf("unexpected error: %v", err)
	}
}
