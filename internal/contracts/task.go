package contracts

// TaskKind identifies which task a request targets: one of the five task
// endpoints, or an upload feeding the playbook generator.
type TaskKind string

const (
	TaskGeneratePlaybook TaskKind = "generate-playbook"
	TaskExplainPlaybook  TaskKind = "explain-playbook"
	TaskGenerateCode     TaskKind = "generate-code"
	TaskExplainCode      TaskKind = "explain-code"
	TaskChat             TaskKind = "chat"
	TaskUploadGenerate   TaskKind = "upload-generate"
)

// Task is a single inbound request awaiting dispatch. Payload carries
// the task-specific text field (commands, playbook, description, code,
// or message) as decoded from the request body.
type Task struct {
	Kind    TaskKind
	Model   string
	Payload string
}

// BackendResult is the opaque body returned by a backend, plus the HTTP
// status it was served with. Fields the Splitter recognizes for merging
// are read out of Body on demand; everything else passes through
// verbatim.
type BackendResult struct {
	Body   map[string]interface{}
	Status int
}

// Playbook returns the result's "playbook" field, or "" if absent or
// not a string.
func (r BackendResult) Playbook() string {
	if v, ok := r.Body["playbook"].(string); ok {
		return v
	}
	return ""
}

// Elapsed returns the result's "elapsed" field, or 0 if absent or not a
// number.
func (r BackendResult) Elapsed() float64 {
	switch v := r.Body["elapsed"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// TotalTokens returns the result's "total_tokens" field, or 0 if absent
// or not a number.
func (r BackendResult) TotalTokens() int {
	switch v := r.Body["total_tokens"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
