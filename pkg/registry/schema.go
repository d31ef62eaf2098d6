// pkg/registry/schema.go
package registry

// ActivityRegistry lists the job types a deployment serves, for modelers wiring service tasks.
type ActivityRegistry struct {
	Version    string     `json:"version"`
	Activities []Activity `json:"activities"`
}

type Activity struct {
	ID           string                 `json:"id"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description"`
	TaskType     string                 `json:"taskType"`
	Version      string                 `json:"version"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputFields []string               `json:"outputFields"`
	ErrorCodes   []string               `json:"errorCodes"`
	Timeout      string                 `json:"timeout"`
	Retries      int                    `json:"retries"`
}
