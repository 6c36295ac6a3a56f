package model

// AgentProvider selects which invoker backend performs the model call.
type AgentProvider string

const (
	ProviderOllama AgentProvider = "ollama"
	ProviderGemini AgentProvider = "gemini"
)

// Agent is a named model configuration from the registry.
type Agent struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Role         string        `json:"role"`
	Description  string        `json:"description"`
	Capabilities []string      `json:"capabilities"`
	Model        string        `json:"model"`
	Provider     AgentProvider `json:"provider"`
}
