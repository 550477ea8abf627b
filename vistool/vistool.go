// Package vistool renders control-flow graphs of analyzed functions,
// optionally annotated with the fixpoint states, as dot graphs or images.
package vistool

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/goccy/go-graphviz"

	"github.com/kestrel-analysis/kestrel/analysis/absstate"
	"github.com/kestrel-analysis/kestrel/ir"
)

const tmplEdge = `{{define "edge" -}}
	{{printf "%q -> %q [ %s ]" .From .To .Attrs}}
{{- end}}`

const tmplNode = `{{define "node" -}}
	{{printf "%q [ %s ]" .ID .Attrs}}
{{- end}}`

const tmplGraph = `digraph ControlFlow {
	label="{{.Title}}";
	labeljust="l";
	fontname="Arial";
	fontsize="14";
	rankdir="TB";

	node [shape="box" style="filled" fillcolor="honeydew" fontname="Courier" margin="0.1,0.05"];

	{{range .Nodes}}
	{{template "node" .}}
	{{- end}}

	{{- range .Edges}}
	{{template "edge" .}}
	{{- end}}
}
`

type DotAttrs map[string]string

func (p DotAttrs) List() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	l := []string{}
	for _, k := range keys {
		l = append(l, fmt.Sprintf("%s=%q;", k, p[k]))
	}
	return l
}

func (p DotAttrs) String() string {
	return strings.Join(p.List(), " ")
}

type DotNode struct {
	ID    string
	Attrs DotAttrs
}

func (n *DotNode) String() string {
	return n.ID
}

type DotEdge struct {
	From  *DotNode
	To    *DotNode
	Attrs DotAttrs
}

type DotGraph struct {
	Title string
	Nodes []*DotNode
	Edges []*DotEdge
}

func (g *DotGraph) WriteDot(w io.Writer) error {
	t := template.New("dot")
	for _, s := range []string{tmplNode, tmplEdge, tmplGraph} {
		if _, err := t.Parse(s); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, g); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// CFGToDot builds the block graph of one function. When states is non-nil
// each block label carries its fixpoint entry state.
func CFGToDot(fn *ir.Function, states map[int]absstate.State) *DotGraph {
	g := &DotGraph{Title: fn.Name}

	nodes := map[int]*DotNode{}
	for _, b := range fn.Blocks {
		var label strings.Builder
		fmt.Fprintf(&label, "b%d:\n", b.Index)
		for _, stmt := range b.Stmts {
			fmt.Fprintf(&label, "  %s\n", stmt)
		}
		fmt.Fprintf(&label, "  %s", b.Term)
		if states != nil {
			if s, found := states[b.Index]; found {
				fmt.Fprintf(&label, "\n\nentry: %s", s)
			} else {
				label.WriteString("\n\nentry: unreachable")
			}
		}

		attrs := DotAttrs{"label": label.String()}
		if b.Index == fn.Entry {
			attrs["fillcolor"] = "lightblue"
		}
		node := &DotNode{ID: fmt.Sprintf("b%d", b.Index), Attrs: attrs}
		nodes[b.Index] = node
		g.Nodes = append(g.Nodes, node)
	}

	for _, b := range fn.Blocks {
		succs := b.Term.Successors()
		_, isBranch := b.Term.(ir.Branch)
		for pos, succ := range succs {
			to, found := nodes[succ]
			if !found {
				continue
			}
			attrs := DotAttrs{}
			if isBranch {
				if pos == 0 {
					attrs["label"] = "T"
				} else {
					attrs["label"] = "F"
				}
			}
			g.Edges = append(g.Edges, &DotEdge{From: nodes[b.Index], To: to, Attrs: attrs})
		}
	}
	return g
}

// RenderFile writes the graph to a file. A .dot extension (or none) gets
// the plain dot text; anything else goes through graphviz layouting into
// the image format named by the extension.
func (g *DotGraph) RenderFile(outPath string) error {
	var buf bytes.Buffer
	if err := g.WriteDot(&buf); err != nil {
		return err
	}

	ext := strings.TrimPrefix(filepath.Ext(outPath), ".")
	if ext == "" || ext == "dot" {
		return os.WriteFile(outPath, buf.Bytes(), 0644)
	}

	gv := graphviz.New()
	graph, err := graphviz.ParseBytes(buf.Bytes())
	if err != nil {
		return err
	}
	defer func() {
		graph.Close()
		gv.Close()
	}()
	return gv.RenderFilename(graph, graphviz.Format(ext), outPath)
}
