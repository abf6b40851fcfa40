package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

// MetadataSource resolves node types to their metadata. Unknown types are drawn as plain boxes.
type MetadataSource interface {
	Metadata(nodeType string) (registry.NodeMetadata, bool)
}

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	FailedNodes  []string
}

// GenerateMermaid produces a Mermaid flowchart from a graph.
// It applies semantic styling:
// - Trigger: ((Circle))
// - Data-only node (no exec input): ([Stadium])
// - Default: [Rectangle]
// Execution edges are solid, data edges dotted. Folded and muted nodes get their own classes,
// and overlay styles (visited/failed) are applied if provided.
func GenerateMermaid(g *domain.Graph, catalog MetadataSource, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var folded, muted []string
	for _, node := range g.Nodes() {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		if meta, ok := catalog.Metadata(node.Type); ok {
			switch {
			case meta.Trigger:
				opener, closer = "((", "))"
			case !meta.HasExecInput():
				opener, closer = "([", "])"
			}
		}

		fmt.Fprintf(&sb, "    %s%s\"%s<br/><small>%s</small>\"%s\n", safeID, opener, node.ID, node.Type, closer)

		if node.IsFolded() {
			folded = append(folded, safeID)
		}
		if node.Muted {
			muted = append(muted, safeID)
		}
	}

	for _, e := range g.Edges() {
		from, to := sanitizeMermaidID(e.Source), sanitizeMermaidID(e.Target)
		if e.Kind == domain.EdgeExecution {
			if e.SourceHandle == "out" {
				fmt.Fprintf(&sb, "    %s --> %s\n", from, to)
			} else {
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, escapeLabel(e.SourceHandle), to)
			}
			continue
		}
		label := escapeLabel(e.SourceHandle + " → " + e.TargetHandle)
		fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", from, label, to)
	}

	if len(folded) > 0 || len(muted) > 0 {
		sb.WriteString("\n    classDef folded fill:#ede7f6,stroke:#5e35b1,stroke-dasharray: 4 2,color:#000;\n")
		sb.WriteString("    classDef muted fill:#eeeeee,stroke:#9e9e9e,color:#757575;\n")
		for _, id := range folded {
			fmt.Fprintf(&sb, "    class %s folded;\n", id)
		}
		for _, id := range muted {
			fmt.Fprintf(&sb, "    class %s muted;\n", id)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		failedSet := make(map[string]bool)
		for _, id := range overlay.FailedNodes {
			safeID := sanitizeMermaidID(id)
			if !failedSet[safeID] && safeID != "" {
				failedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s failed;\n", safeID)
			}
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
