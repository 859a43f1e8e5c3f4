package domintell

import (
	"errors"
	"testing"
)

func TestLineCodec_Decode(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantKind FrameKind
		wantNode Node
		wantErr  bool
	}{
		{
			name:     "input state",
			line:     "STATE;BIR01-1;input;ON;Kitchen PIR\n",
			wantKind: FrameState,
			wantNode: Node{ID: "BIR01-1", Type: NodeTypeInput, Value: "on", Description: "Kitchen PIR"},
		},
		{
			name:     "integer value",
			line:     "STATE;DIM01-2;output;75;Living dimmer\r\n",
			wantKind: FrameState,
			wantNode: Node{ID: "DIM01-2", Type: NodeTypeOutput, Value: 75, Description: "Living dimmer"},
		},
		{
			name:     "description with separators",
			line:     "STATE;BIR01-3;Input;off;Hall; stairs;top",
			wantKind: FrameState,
			wantNode: Node{ID: "BIR01-3", Type: NodeTypeInput, Value: "off", Description: "Hall; stairs;top"},
		},
		{
			name:     "no description",
			line:     "STATE;BIR01-4;input;on",
			wantKind: FrameState,
			wantNode: Node{ID: "BIR01-4", Type: NodeTypeInput, Value: "on"},
		},
		{
			name:     "lower case keyword",
			line:     "state;X;output;0;",
			wantKind: FrameState,
			wantNode: Node{ID: "X", Type: NodeTypeOutput, Value: 0},
		},
		{name: "pong", line: "PONG\n", wantKind: FramePong},
		{name: "blank", line: "  \r\n", wantKind: FrameEmpty},
		{name: "unknown command", line: "HELLO;1", wantErr: true},
		{name: "too few fields", line: "STATE;X;input", wantErr: true},
		{name: "empty id", line: "STATE; ;input;on;x", wantErr: true},
		{name: "empty type", line: "STATE;X;;on;x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := LineCodec{}.Decode(tt.line)

			if tt.wantErr {
				if !errors.Is(err, ErrMalformedFrame) {
					t.Errorf("Decode() error = %v, want ErrMalformedFrame", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}

			if frame.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", frame.Kind, tt.wantKind)
			}
			if frame.Node != tt.wantNode {
				t.Errorf("Node = %+v, want %+v", frame.Node, tt.wantNode)
			}
		})
	}
}

func TestLineCodec_Encode(t *testing.T) {
	c := LineCodec{}

	if got := c.EncodeList(); got != "LIST" {
		t.Errorf("EncodeList() = %q, want LIST", got)
	}
	if got := c.EncodePing(); got != "PING" {
		t.Errorf("EncodePing() = %q, want PING", got)
	}

	tests := []struct {
		name    string
		nodeID  string
		value   any
		want    string
		wantErr bool
	}{
		{name: "int", nodeID: "DIM01-2", value: 1, want: "SET;DIM01-2;0;0;1"},
		{name: "string", nodeID: "REL01-1", value: "on", want: "SET;REL01-1;0;0;on"},
		{name: "bool", nodeID: "REL01-1", value: false, want: "SET;REL01-1;0;0;0"},
		{name: "empty id", nodeID: "", value: 1, wantErr: true},
		{name: "separator in id", nodeID: "A;B", value: 1, wantErr: true},
		{name: "newline in value", nodeID: "A", value: "on\nLIST", wantErr: true},
		{name: "unsupported type", nodeID: "A", value: 1.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.EncodeSet(tt.nodeID, 0, 0, tt.value)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Errorf("EncodeSet() error = %v, want ErrInvalidValue", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeSet() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeSet() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"ON", "on"},
		{" off ", "off"},
		{"42", 42},
		{"-3", -3},
		{"", ""},
		{"4.5", "4.5"},
	}

	for _, tt := range tests {
		if got := ParseValue(tt.raw); got != tt.want {
			t.Errorf("ParseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}
}
