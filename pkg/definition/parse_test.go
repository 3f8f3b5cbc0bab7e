package definition

import (
	"errors"
	"strings"
	"testing"
)

const minimalDoc = `
graph_id: demo
version: "1"
entry_point: start
state_contract: conversation/v1
nodes:
  - id: start
    kind: question
    handler: demo.hello
transitions:
  static:
    - {from: start, to: __end__}
`

func TestParse_Minimal(t *testing.T) {
	def, err := Parse([]byte(minimalDoc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if def.GraphID != "demo" {
		t.Errorf("GraphID = %q, want demo", def.GraphID)
	}
	if def.NodeByID("start") == nil {
		t.Error("NodeByID(start) = nil")
	}
	if def.NodeByID("ghost") != nil {
		t.Error("NodeByID(ghost) should be nil")
	}
}

func TestParse_Failures(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string // expected substring in the error
	}{
		{
			name: "not yaml",
			doc:  "{{{",
			want: "invalid document",
		},
		{
			name: "missing graph id",
			doc: `
version: "1"
entry_point: start
state_contract: conversation/v1
nodes:
  - {id: start, kind: question, handler: demo.hello}
`,
			want: "graph_id",
		},
		{
			name: "empty node list",
			doc: `
graph_id: demo
version: "1"
entry_point: start
state_contract: conversation/v1
nodes: []
`,
			want: "nodes",
		},
		{
			name: "unknown kind",
			doc: `
graph_id: demo
version: "1"
entry_point: start
state_contract: conversation/v1
nodes:
  - {id: start, kind: teleport, handler: demo.hello}
`,
			want: "unknown kind",
		},
		{
			name: "duplicate id",
			doc: `
graph_id: demo
version: "1"
entry_point: start
state_contract: conversation/v1
nodes:
  - {id: start, kind: question, handler: demo.hello}
  - {id: start, kind: compute, handler: demo.other}
`,
			want: "duplicate",
		},
		{
			name: "reserved id",
			doc: `
graph_id: demo
version: "1"
entry_point: start
state_contract: conversation/v1
nodes:
  - {id: __end__, kind: question, handler: demo.hello}
`,
			want: "reserved",
		},
		{
			name: "conditional without destinations",
			doc: `
graph_id: demo
version: "1"
entry_point: start
state_contract: conversation/v1
nodes:
  - {id: start, kind: router, handler: demo.noop}
transitions:
  conditional:
    - {from: start, router: demo.route}
`,
			want: "destinations",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Fatalf("error should be *StructuralError, got %T", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}
