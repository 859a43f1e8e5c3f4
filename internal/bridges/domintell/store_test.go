package domintell

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/domintell-bridge/internal/infrastructure/database"
	_ "github.com/nerrad567/domintell-bridge/migrations"
)

func openTestStore(t *testing.T) *SQLiteNodeStore {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "domintell1.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewSQLiteNodeStore(db.DB)
}

func TestSQLiteNodeStore_Empty(t *testing.T) {
	store := openTestStore(t)

	nodes, err := store.LoadNodes(context.Background())
	if err != nil {
		t.Fatalf("LoadNodes() error = %v", err)
	}
	if len(nodes) != 0 {
		t.Errorf("LoadNodes() = %d nodes, want 0", len(nodes))
	}
}

func TestSQLiteNodeStore_SaveAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	saves := []Node{
		{ID: "REL01-1", Type: NodeTypeOutput, Description: "Porch", Value: 1, UpdatedAt: ts},
		{ID: "BIR01-1", Type: NodeTypeInput, Description: "Hall", Value: "on", UpdatedAt: ts},
		// Upsert replaces the earlier row.
		{ID: "REL01-1", Type: NodeTypeOutput, Description: "Porch light", Value: 0, UpdatedAt: ts.Add(time.Minute)},
	}
	for _, n := range saves {
		if err := store.SaveNode(ctx, n); err != nil {
			t.Fatalf("SaveNode(%s) error = %v", n.ID, err)
		}
	}

	nodes, err := store.LoadNodes(ctx)
	if err != nil {
		t.Fatalf("LoadNodes() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("LoadNodes() = %d nodes, want 2", len(nodes))
	}

	hall, porch := nodes[0], nodes[1]
	if hall.ID != "BIR01-1" || hall.Value != "on" || hall.Type != NodeTypeInput {
		t.Errorf("hall = %+v", hall)
	}
	if porch.ID != "REL01-1" || porch.Value != 0 || porch.Description != "Porch light" {
		t.Errorf("porch = %+v", porch)
	}
	if !porch.UpdatedAt.Equal(ts.Add(time.Minute)) {
		t.Errorf("porch.UpdatedAt = %v, want %v", porch.UpdatedAt, ts.Add(time.Minute))
	}
}

func TestSQLiteNodeStore_KeepsNumericLookingStrings(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// A value stored as a string stays a string even if it looks numeric.
	if err := store.SaveNode(ctx, Node{ID: "X", Type: NodeTypeInput, Value: "7"}); err != nil {
		t.Fatalf("SaveNode() error = %v", err)
	}

	nodes, err := store.LoadNodes(ctx)
	if err != nil {
		t.Fatalf("LoadNodes() error = %v", err)
	}
	if nodes[0].Value != "7" {
		t.Errorf("Value = %#v, want string 7", nodes[0].Value)
	}
	if nodes[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt not defaulted")
	}
}

func TestSQLiteNodeStore_SaveErrors(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveNode(ctx, Node{Type: NodeTypeInput, Value: "on"}); err == nil {
		t.Error("SaveNode(no id) error = nil")
	}
	if err := store.SaveNode(ctx, Node{ID: "X", Type: NodeTypeInput, Value: 2.5}); err == nil {
		t.Error("SaveNode(float) error = nil")
	}
}

func TestDeth01_LoadsFromSQLiteStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveNode(ctx, Node{ID: "REL01-4", Type: NodeTypeOutput, Value: 1, Description: "Garden"}); err != nil {
		t.Fatalf("SaveNode() error = %v", err)
	}

	gw, err := NewDeth01Gateway(ctx, Deth01Config{Device: "127.0.0.1", Persistence: true, Store: store})
	if err != nil {
		t.Fatalf("NewDeth01Gateway() error = %v", err)
	}

	n, ok := gw.Node("REL01-4")
	if !ok || n.Value != 1 || n.Description != "Garden" {
		t.Errorf("Node(REL01-4) = %+v, %v", n, ok)
	}
}
