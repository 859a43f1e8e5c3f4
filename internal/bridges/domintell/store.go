package domintell

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// NodeStore persists a gateway's node table.
type NodeStore interface {
	// LoadNodes returns every stored node.
	LoadNodes(ctx context.Context) ([]Node, error)

	// SaveNode inserts or replaces one node.
	SaveNode(ctx context.Context, node Node) error
}

const (
	valueKindString = "string"
	valueKindInt    = "int"
)

// SQLiteNodeStore implements NodeStore on the nodes table.
type SQLiteNodeStore struct {
	db *sql.DB
}

// NewSQLiteNodeStore creates a store on an open, migrated database.
func NewSQLiteNodeStore(db *sql.DB) *SQLiteNodeStore {
	return &SQLiteNodeStore{db: db}
}

// LoadNodes returns every stored node ordered by node ID.
func (s *SQLiteNodeStore) LoadNodes(ctx context.Context) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, type, description, value, value_kind, updated_at
		 FROM nodes
		 ORDER BY node_id`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		var (
			node      Node
			nodeType  string
			value     string
			kind      string
			updatedAt string
		)
		if err := rows.Scan(&node.ID, &nodeType, &node.Description, &value, &kind, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}

		node.Type = NodeType(nodeType)
		node.Value = value
		if kind == valueKindInt {
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("node %s: invalid int value %q: %w", node.ID, value, err)
			}
			node.Value = n
		}

		if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			node.UpdatedAt = t
		}

		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}

	return nodes, nil
}

// SaveNode upserts a node.
func (s *SQLiteNodeStore) SaveNode(ctx context.Context, node Node) error {
	if node.ID == "" {
		return fmt.Errorf("node id is required")
	}

	value, err := FormatValue(node.Value)
	if err != nil {
		return fmt.Errorf("node %s: %w", node.ID, err)
	}

	kind := valueKindString
	switch node.Value.(type) {
	case int, int64:
		kind = valueKindInt
	}

	updatedAt := node.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nodes (node_id, type, description, value, value_kind, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(node_id) DO UPDATE SET
			type = excluded.type,
			description = excluded.description,
			value = excluded.value,
			value_kind = excluded.value_kind,
			updated_at = excluded.updated_at`,
		node.ID,
		string(node.Type),
		node.Description,
		value,
		kind,
		updatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving node %s: %w", node.ID, err)
	}

	return nil
}
