// Package graph generates DOT and Mermaid dependency graphs from a rendered
// plan document.
package graph

import (
	"io"
	"strings"

	"github.com/emicklei/dot"

	"github.com/oraplan/oraplan"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from a rendered plan.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service.
	ClusterByType bool
}

// Generate writes the dependency graph for a plan to w. Edges follow the
// DependsOn relationships of the rendered resources.
func (g *Generator) Generate(plan *oraplan.Plan, w io.Writer) error {
	graph := g.buildGraph(plan)

	format := g.Format
	if format == "" {
		format = FormatDOT
	}

	var output string
	if format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := w.Write([]byte(output))
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(plan *oraplan.Plan) (string, error) {
	var sb strings.Builder
	if err := g.Generate(plan, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(plan *oraplan.Plan) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	if g.ClusterByType {
		g.addClusteredNodes(graph, plan)
	} else {
		g.addNodes(graph, plan)
	}

	// DependsOn edges between rendered resources.
	for name, def := range plan.Resources {
		for _, dep := range def.DependsOn {
			if _, ok := plan.Resources[dep]; !ok {
				continue
			}
			graph.Edge(graph.Node(name), graph.Node(dep))
		}
	}

	return graph
}

func (g *Generator) addNodes(graph *dot.Graph, plan *oraplan.Plan) {
	for name, def := range plan.Resources {
		n := graph.Node(name)
		n.Label(name + "\\n[" + def.Type + "]")
	}
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, plan *oraplan.Plan) {
	serviceResources := make(map[string][]string)
	for name, def := range plan.Resources {
		service := extractService(def.Type)
		serviceResources[service] = append(serviceResources[service], name)
	}

	for service, resNames := range serviceResources {
		if len(resNames) > 1 {
			cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
			cluster.Attr("label", service)
			cluster.Attr("style", "rounded")
			cluster.Attr("bgcolor", "lightyellow")

			for _, name := range resNames {
				n := cluster.Node(name)
				n.Label(name + "\\n[" + plan.Resources[name].Type + "]")
			}
		} else {
			for _, name := range resNames {
				n := graph.Node(name)
				n.Label(name + "\\n[" + plan.Resources[name].Type + "]")
			}
		}
	}
}

// extractService extracts the AWS service name from a resource type.
// e.g., "AWS::RDS::DBInstance" -> "RDS"
func extractService(resourceType string) string {
	parts := strings.Split(resourceType, "::")
	if len(parts) >= 2 {
		return parts[1]
	}
	return "Other"
}
