package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/JusticeK18/ArbitrageGuard/internal/domain"
)

func sampleSnapshot(seq uint64) *Snapshot {
	return &Snapshot{
		Seq:    seq,
		TsUnix: 1700000000 + int64(seq),
		Pool:   domain.FundPool{TotalFunds: 1000, TotalProfit: 100, TotalLoss: 20},
		State: domain.OperationalState{
			BotActive:           true,
			LastTradeBlock:      42,
			CurrentModelVersion: 2,
			TradeCount:          3,
		},
		Accounts: map[domain.Identity]domain.Account{
			"alice": {Owner: "alice", Amount: 1000},
		},
		Operators: map[domain.Identity]bool{"op-1": true},
		Trades: map[uint64]domain.TradeRecord{
			0: {ID: 0, Amount: 100, ActualProfit: 50, Confidence: 90, ModelVersion: 1, LogicalBlock: 10, Success: true},
		},
		Metrics: map[uint64]domain.ModelMetrics{
			1: {Version: 1, TotalPredictions: 1, SuccessfulPredictions: 1, AverageConfidence: 90, TotalProfit: 50},
		},
	}
}

func TestSnapshot_SaveAndLoadLatest(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	want := sampleSnapshot(10)
	if err := sm.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected a snapshot, got nil")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("snapshot roundtrip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestSnapshot_LoadLatestPicksHighestSeq(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	for _, seq := range []uint64{5, 20, 12} {
		if err := sm.Save(sampleSnapshot(seq)); err != nil {
			t.Fatalf("save seq %d: %v", seq, err)
		}
	}

	got, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Seq != 20 {
		t.Errorf("expected latest seq 20, got %d", got.Seq)
	}
}

func TestSnapshot_LoadLatestEmpty(t *testing.T) {
	sm := NewSnapshotManager(filepath.Join(t.TempDir(), "missing"))

	got, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("load from missing dir: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil snapshot, got %+v", got)
	}
}

func TestSnapshot_CleanupKeepsLatest(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	for seq := uint64(1); seq <= 5; seq++ {
		if err := sm.Save(sampleSnapshot(seq)); err != nil {
			t.Fatalf("save seq %d: %v", seq, err)
		}
	}

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 files kept, got %d", len(entries))
	}

	got, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Seq != 5 {
		t.Errorf("cleanup must keep the newest snapshot, latest is seq %d", got.Seq)
	}
}
