package manifest

// Kind identifies a document schema.
type Kind string

// Document kinds with an embedded schema.
const (
	KindAgent    Kind = "agent"
	KindProject  Kind = "project"
	KindFileList Kind = "filelist"
)

// FileList is an ordered list of relative paths to compile into a report.
type FileList struct {
	Files []string `yaml:"files" json:"files"`
}

// AgentManifest is the agent.yaml written into every scaffolded project.
type AgentManifest struct {
	Name        string       `yaml:"name" json:"name"`
	ID          string       `yaml:"id" json:"id"`
	Description string       `yaml:"description" json:"description"`
	Version     string       `yaml:"version" json:"version"`
	Model       ModelConfig  `yaml:"model" json:"model"`
	Roles       []string     `yaml:"roles,omitempty" json:"roles,omitempty"`
	Tools       []ToolConfig `yaml:"tools,omitempty" json:"tools,omitempty"`
	Server      ServerConfig `yaml:"server" json:"server"`
}

// ModelConfig selects the LLM backing the agent.
type ModelConfig struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Name        string  `yaml:"name" json:"name"`
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// ToolConfig declares an MCP tool the agent may call.
type ToolConfig struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Server      string `yaml:"server,omitempty" json:"server,omitempty"`
}

// ServerConfig is the A2A server binding.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}
