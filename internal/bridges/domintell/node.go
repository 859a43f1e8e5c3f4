package domintell

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NodeType selects which platform handles a node.
type NodeType string

// Node types.
const (
	// NodeTypeInput nodes are exposed as binary sensors.
	NodeTypeInput NodeType = "input"

	// NodeTypeOutput nodes are exposed as switches.
	NodeTypeOutput NodeType = "output"
)

// Node is one entry of a gateway's node table.
type Node struct {
	ID          string
	Type        NodeType
	Description string

	// Value is a string ("on", "off", ...) or an int.
	Value any

	UpdatedAt time.Time
}

// ParseValue converts a raw value to an int when it parses as one and to
// a lower-cased string otherwise.
func ParseValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return strings.ToLower(raw)
}

// FormatValue renders a node value for the wire and the node store.
func FormatValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidValue, v)
	}
}
