package domintell

import (
	"fmt"
	"strconv"
	"strings"
)

// FrameKind identifies a decoded inbound frame.
type FrameKind int

// Inbound frame kinds.
const (
	// FrameEmpty is a blank line. It is skipped.
	FrameEmpty FrameKind = iota

	// FrameState carries the state of one node.
	FrameState

	// FramePong answers a keep-alive ping.
	FramePong
)

// Frame is a decoded inbound line.
type Frame struct {
	Kind FrameKind

	// Node is set for FrameState. UpdatedAt is left zero.
	Node Node
}

// Codec translates between gateway lines and frames. Lines carry no
// trailing newline; the driver owns framing.
type Codec interface {
	Decode(line string) (Frame, error)
	EncodeList() string
	EncodePing() string
	EncodeSet(nodeID string, childID, valueType int, value any) (string, error)
}

// Line codec keywords.
const (
	cmdState = "STATE"
	cmdPong  = "PONG"
	cmdList  = "LIST"
	cmdPing  = "PING"
	cmdSet   = "SET"

	fieldSep = ";"
)

// LineCodec speaks the semicolon separated line protocol:
//
//	STATE;<node_id>;<type>;<value>;<description>   (inbound)
//	PONG                                          (inbound)
//	LIST                                          (outbound)
//	PING                                          (outbound)
//	SET;<node_id>;<child_id>;<value_type>;<value> (outbound)
type LineCodec struct{}

var _ Codec = LineCodec{}

// Decode parses one inbound line.
func (LineCodec) Decode(line string) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Frame{Kind: FrameEmpty}, nil
	}

	// The description is last so it may itself contain separators.
	fields := strings.SplitN(line, fieldSep, 5)

	switch strings.ToUpper(strings.TrimSpace(fields[0])) {
	case cmdPong:
		return Frame{Kind: FramePong}, nil
	case cmdState:
		return decodeState(line, fields)
	default:
		return Frame{}, fmt.Errorf("%w: unknown command in %q", ErrMalformedFrame, line)
	}
}

func decodeState(line string, fields []string) (Frame, error) {
	if len(fields) < 4 {
		return Frame{}, fmt.Errorf("%w: %q has %d fields, want at least 4", ErrMalformedFrame, line, len(fields))
	}

	id := strings.TrimSpace(fields[1])
	if id == "" {
		return Frame{}, fmt.Errorf("%w: empty node id in %q", ErrMalformedFrame, line)
	}

	nodeType := NodeType(strings.ToLower(strings.TrimSpace(fields[2])))
	if nodeType == "" {
		return Frame{}, fmt.Errorf("%w: empty node type in %q", ErrMalformedFrame, line)
	}

	node := Node{
		ID:    id,
		Type:  nodeType,
		Value: ParseValue(fields[3]),
	}
	if len(fields) == 5 {
		node.Description = strings.TrimSpace(fields[4])
	}

	return Frame{Kind: FrameState, Node: node}, nil
}

// EncodeList returns the full state dump request.
func (LineCodec) EncodeList() string {
	return cmdList
}

// EncodePing returns the keep-alive request.
func (LineCodec) EncodePing() string {
	return cmdPing
}

// EncodeSet returns the command setting a node value.
func (LineCodec) EncodeSet(nodeID string, childID, valueType int, value any) (string, error) {
	if nodeID == "" || strings.ContainsAny(nodeID, fieldSep+"\r\n") {
		return "", fmt.Errorf("%w: node id %q", ErrInvalidValue, nodeID)
	}

	v, err := FormatValue(value)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(v, fieldSep+"\r\n") {
		return "", fmt.Errorf("%w: value %q", ErrInvalidValue, v)
	}

	return strings.Join([]string{
		cmdSet,
		nodeID,
		strconv.Itoa(childID),
		strconv.Itoa(valueType),
		v,
	}, fieldSep), nil
}
