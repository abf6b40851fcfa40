package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/registry"
)

// Catalog is the part of the registry the catalogue page reads.
type Catalog interface {
	Types() []string
	Metadata(nodeType string) (registry.NodeMetadata, bool)
}

// CatalogMarkdown documents every registered node type, grouped by category.
func CatalogMarkdown(catalog Catalog) string {
	var sb strings.Builder
	sb.WriteString("# Node catalogue\n")

	category := ""
	for _, t := range sortedByCategory(catalog) {
		meta, _ := catalog.Metadata(t)
		if meta.Category != category {
			category = meta.Category
			fmt.Fprintf(&sb, "\n## %s\n", category)
		}

		fmt.Fprintf(&sb, "\n### `%s`", meta.Type)
		if meta.DisplayName != "" {
			fmt.Fprintf(&sb, " %s", meta.DisplayName)
		}
		sb.WriteString("\n\n")
		if meta.Description != "" {
			sb.WriteString(meta.Description + "\n\n")
		}
		if flags := flagList(meta); flags != "" {
			fmt.Fprintf(&sb, "Flags: %s\n\n", flags)
		}

		sb.WriteString("| Direction | Port | Type | Default |\n|---|---|---|---|\n")
		for _, p := range meta.Inputs {
			writePort(&sb, "in", p)
		}
		for _, p := range meta.Outputs {
			writePort(&sb, "out", p)
		}
	}
	return sb.String()
}

func sortedByCategory(catalog Catalog) []string {
	byCategory := map[string][]string{}
	var order []string
	for _, t := range catalog.Types() {
		meta, ok := catalog.Metadata(t)
		if !ok {
			continue
		}
		if _, seen := byCategory[meta.Category]; !seen {
			order = append(order, meta.Category)
		}
		byCategory[meta.Category] = append(byCategory[meta.Category], t)
	}
	var types []string
	for _, c := range order {
		types = append(types, byCategory[c]...)
	}
	return types
}

func writePort(sb *strings.Builder, direction string, p registry.PortDefinition) {
	name := p.ID
	if p.Required {
		name += " *"
	}
	if p.MultiInput {
		name += " (multi)"
	}
	def := ""
	if p.Default != nil {
		def = fmt.Sprintf("`%v`", p.Default)
	}
	fmt.Fprintf(sb, "| %s | %s | `%s` | %s |\n", direction, name, p.Desc().String(), def)
}

func flagList(meta registry.NodeMetadata) string {
	var flags []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{meta.Trigger, "trigger"},
		{meta.Mutating, "mutating"},
		{meta.Preview, "preview"},
		{meta.Expensive, "expensive"},
		{meta.Blocking, "blocking"},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	return strings.Join(flags, ", ")
}
