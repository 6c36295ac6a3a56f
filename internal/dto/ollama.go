package dto

type OllamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type OllamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type OllamaModelInfo struct {
	Name       string `json:"name"`
	Size       uint64 `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

type OllamaTagsResponse struct {
	Models []OllamaModelInfo `json:"models"`
}
