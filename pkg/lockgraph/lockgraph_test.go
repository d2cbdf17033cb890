package lockgraph

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/npmgen/pkg/shrinkwrap"
)

func parse(t *testing.T, raw string) *Graph {
	t.Helper()
	m, err := shrinkwrap.Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	g, err := FromManifest(m)
	if err != nil {
		t.Fatalf("FromManifest error: %v", err)
	}
	return g
}

func TestFromManifestV1(t *testing.T) {
	g := parse(t, `{
  "name": "npm-gen-react-redux",
  "version": "5.0.6",
  "lockfileVersion": 1,
  "dependencies": {
    "react-redux": {
      "version": "5.0.6",
      "dependencies": {
        "hoist-non-react-statics": {"version": "2.5.0"},
        "@babel/runtime": {"version": "7.0.0", "dev": true}
      }
    },
    "lodash": {"version": "4.17.4"}
  }
}`)

	wantEdges := []Edge{
		{RootID, "node_modules/lodash"},
		{RootID, "node_modules/react-redux"},
		{"node_modules/react-redux", "node_modules/react-redux/node_modules/@babel/runtime"},
		{"node_modules/react-redux", "node_modules/react-redux/node_modules/hoist-non-react-statics"},
	}
	if !reflect.DeepEqual(g.Edges, wantEdges) {
		t.Errorf("edges =\n%v\nwant\n%v", g.Edges, wantEdges)
	}

	root, ok := g.Node(RootID)
	if !ok || root.Label() != "npm-gen-react-redux@5.0.6" {
		t.Errorf("root = %+v", root)
	}
	babel, ok := g.Node("node_modules/react-redux/node_modules/@babel/runtime")
	if !ok || babel.Name != "@babel/runtime" || !babel.Dev {
		t.Errorf("scoped node = %+v", babel)
	}
	if got := len(g.Children(RootID)); got != 2 {
		t.Errorf("root has %d children, want 2", got)
	}
}

func TestFromManifestPackages(t *testing.T) {
	g := parse(t, `{
  "name": "npm-gen-lodash",
  "version": "4.17.4",
  "lockfileVersion": 3,
  "packages": {
    "": {"name": "npm-gen-lodash", "version": "4.17.4", "dependencies": {"lodash": "4.17.4"}},
    "node_modules/lodash": {"version": "4.17.4"},
    "node_modules/lodash/node_modules/@types/x/node_modules/y": {"version": "1.0.0", "optional": true}
  },
  "dependencies": {"ignored": {"version": "0.0.1"}}
}`)

	if len(g.Nodes) != 3 {
		t.Fatalf("nodes = %+v", g.Nodes)
	}
	// Missing intermediate locations attach to the closest known ancestor.
	wantEdges := []Edge{
		{RootID, "node_modules/lodash"},
		{"node_modules/lodash", "node_modules/lodash/node_modules/@types/x/node_modules/y"},
	}
	if !reflect.DeepEqual(g.Edges, wantEdges) {
		t.Errorf("edges = %v, want %v", g.Edges, wantEdges)
	}
	y, _ := g.Node("node_modules/lodash/node_modules/@types/x/node_modules/y")
	if y.Name != "y" || !y.Optional {
		t.Errorf("node = %+v", y)
	}
}

func TestFromManifestEmpty(t *testing.T) {
	g := parse(t, `{"name":"npm-gen-lodash","version":"4.17.4"}`)
	if len(g.Nodes) != 1 || len(g.Edges) != 0 {
		t.Errorf("graph = %s", g)
	}
}

func TestParentOf(t *testing.T) {
	tests := []struct{ in, want string }{
		{"node_modules/a", RootID},
		{"node_modules/a/node_modules/b", "node_modules/a"},
		{"node_modules/@s/a/node_modules/@t/b", "node_modules/@s/a"},
		{"packages/workspace", RootID},
	}
	for _, tt := range tests {
		if got := parentOf(tt.in); got != tt.want {
			t.Errorf("parentOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToDOT(t *testing.T) {
	g := parse(t, `{"name":"npm-gen-lodash","version":"4.17.4","dependencies":{"lodash":{"version":"4.17.4","dev":true}}}`)

	dot := ToDOT(g, Options{})
	for _, want := range []string{
		"digraph G {",
		`"." [label="npm-gen-lodash@4.17.4", fillcolor=lightblue];`,
		`"node_modules/lodash" [label="lodash@4.17.4", style="rounded,filled,dashed", fillcolor=lightgrey];`,
		`"." -> "node_modules/lodash";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}

	detailed := ToDOT(g, Options{Detailed: true})
	if !strings.Contains(detailed, `label="lodash@4.17.4\nnode_modules/lodash"`) {
		t.Errorf("detailed DOT missing location:\n%s", detailed)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if string(normalizeViewBox([]byte("<svg></svg>"))) != "<svg></svg>" {
		t.Error("SVG without viewBox was modified")
	}
}

func TestFromExampleShrinkwrap(t *testing.T) {
	m, err := shrinkwrap.Read(filepath.Join("..", "..", "examples", "lodash", shrinkwrap.FileName))
	if err != nil {
		t.Fatal(err)
	}
	g, err := FromManifest(m)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := g.Node("node_modules/lodash")
	if !ok || n.Label() != "lodash@4.17.4" {
		t.Errorf("lodash node = %+v", n)
	}
}
