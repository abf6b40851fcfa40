package loam

// ScriptMetadata is the typed view of a script document stored in a Loam repository.
// It uses "mapstructure" tags so Loam can decode YAML, JSON and Markdown frontmatter alike.
type ScriptMetadata struct {
	SchemaVersion int            `json:"schema_version" mapstructure:"schema_version"`
	ID            string         `json:"id" mapstructure:"id"`
	Name          string         `json:"name,omitempty" mapstructure:"name"`
	Nodes         []NodeEntry    `json:"nodes" mapstructure:"nodes"`
	Edges         []EdgeEntry    `json:"edges,omitempty" mapstructure:"edges"`
	Quotas        map[string]any `json:"quotas,omitempty" mapstructure:"quotas"`
}

type NodeEntry struct {
	ID       string         `json:"id" mapstructure:"id"`
	Type     string         `json:"type" mapstructure:"type"`
	Defaults map[string]any `json:"defaults,omitempty" mapstructure:"defaults"`
	Muted    bool           `json:"muted,omitempty" mapstructure:"muted"`
}

type EdgeEntry struct {
	Source       string `json:"source" mapstructure:"source"`
	SourceHandle string `json:"source_handle" mapstructure:"source_handle"`
	Target       string `json:"target" mapstructure:"target"`
	TargetHandle string `json:"target_handle" mapstructure:"target_handle"`
	Kind         string `json:"kind,omitempty" mapstructure:"kind"`
}
