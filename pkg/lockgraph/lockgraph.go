// Package lockgraph turns a shrinkwrap into the tree npm installs from it.
//
// Nodes are install locations ("node_modules/a/node_modules/b"), so a
// package that npm duplicates at several depths appears once per copy.
// Both lockfile layouts are understood: the nested "dependencies" map of
// lockfile version 1 and the flat "packages" map of versions 2 and 3.
package lockgraph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/shrinkwrap"
)

// RootID identifies the root package.
const RootID = ""

const modulesDir = "node_modules/"

// Node is one installed package.
type Node struct {
	ID       string // install location, RootID for the root
	Name     string
	Version  string
	Dev      bool
	Optional bool
}

// Label is "name@version", or the name alone when the version is unknown.
func (n Node) Label() string {
	if n.Version == "" {
		return n.Name
	}
	return n.Name + "@" + n.Version
}

// Edge links a package to one nested beneath it.
type Edge struct {
	From, To string
}

// Graph is an install tree. Nodes and Edges are sorted by ID.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

type lockEntry struct {
	Name         string                     `json:"name"`
	Version      string                     `json:"version"`
	Dev          bool                       `json:"dev"`
	Optional     bool                       `json:"optional"`
	Dependencies map[string]json.RawMessage `json:"dependencies"`
}

// FromManifest builds the install tree of m. The "packages" map is used
// when present, "dependencies" otherwise.
func FromManifest(m *shrinkwrap.Manifest) (*Graph, error) {
	var doc struct {
		Packages     map[string]json.RawMessage `json:"packages"`
		Dependencies map[string]json.RawMessage `json:"dependencies"`
	}
	if err := json.Unmarshal(m.Raw, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestUnreadable, err, "decode dependency tree")
	}

	nodes := map[string]Node{RootID: {ID: RootID, Name: m.Name, Version: m.Version}}
	var err error
	if len(doc.Packages) > 0 {
		err = fromPackages(nodes, doc.Packages)
	} else {
		err = fromDependencies(nodes, RootID, doc.Dependencies)
	}
	if err != nil {
		return nil, err
	}
	return build(nodes), nil
}

func fromPackages(nodes map[string]Node, pkgs map[string]json.RawMessage) error {
	for loc, raw := range pkgs {
		var e lockEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return errors.Wrap(errors.ErrCodeManifestUnreadable, err, "decode package %q", loc)
		}
		if loc == RootID {
			root := nodes[RootID]
			if root.Version == "" {
				root.Version = e.Version
			}
			nodes[RootID] = root
			continue
		}
		name := e.Name
		if name == "" {
			name = nameAt(loc)
		}
		nodes[loc] = Node{ID: loc, Name: name, Version: e.Version, Dev: e.Dev, Optional: e.Optional}
	}
	return nil
}

func fromDependencies(nodes map[string]Node, parent string, deps map[string]json.RawMessage) error {
	for name, raw := range deps {
		var e lockEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return errors.Wrap(errors.ErrCodeManifestUnreadable, err, "decode dependency %q", name)
		}
		loc := modulesDir + name
		if parent != RootID {
			loc = parent + "/" + loc
		}
		nodes[loc] = Node{ID: loc, Name: name, Version: e.Version, Dev: e.Dev, Optional: e.Optional}

		if err := fromDependencies(nodes, loc, e.Dependencies); err != nil {
			return err
		}
	}
	return nil
}

// build links every location to the closest enclosing location that is
// itself a node.
func build(nodes map[string]Node) *Graph {
	g := &Graph{Nodes: make([]Node, 0, len(nodes))}
	for id, n := range nodes {
		g.Nodes = append(g.Nodes, n)
		if id == RootID {
			continue
		}
		parent := parentOf(id)
		for parent != RootID {
			if _, ok := nodes[parent]; ok {
				break
			}
			parent = parentOf(parent)
		}
		g.Edges = append(g.Edges, Edge{From: parent, To: id})
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})
	return g
}

// parentOf strips the last "node_modules/<name>" from loc.
func parentOf(loc string) string {
	i := strings.LastIndex(loc, "/"+modulesDir)
	if i < 0 {
		return RootID
	}
	return loc[:i]
}

// nameAt returns the package name installed at loc, scope included.
func nameAt(loc string) string {
	i := strings.LastIndex(loc, modulesDir)
	if i < 0 {
		return loc
	}
	return loc[i+len(modulesDir):]
}

// Node returns the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	i := sort.Search(len(g.Nodes), func(i int) bool { return g.Nodes[i].ID >= id })
	if i < len(g.Nodes) && g.Nodes[i].ID == id {
		return g.Nodes[i], true
	}
	return Node{}, false
}

// Children returns the IDs nested directly beneath id.
func (g *Graph) Children(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e.To)
		}
	}
	return out
}

// String summarizes the graph size.
func (g *Graph) String() string {
	return fmt.Sprintf("%d packages, %d edges", len(g.Nodes), len(g.Edges))
}
