package spawn

import (
	"fmt"
	"time"
)

// Manifest is the JSON file written to disk for a spawned agent (spec.md
// §4.11, §6). Required top-level fields are ManifestVersion, exactly one of
// Role/Mode, exactly one of Task/Tasks, and Session.
type Manifest struct {
	ManifestVersion int        `json:"manifestVersion"`
	Role            string     `json:"role,omitempty"`
	Mode            string     `json:"mode,omitempty"`
	Task            *TaskRef   `json:"task,omitempty"`
	Tasks           []TaskRef  `json:"tasks,omitempty"`
	Session         SessionRef `json:"session"`
	ProjectID       string     `json:"projectId"`
	WorkingDir      string     `json:"workingDir"`
	SkillIDs        []string   `json:"skillIds,omitempty"`
	TemplateText    string     `json:"templateText,omitempty"`
	ParentSessionID string     `json:"parentSessionId,omitempty"`
	GeneratedAt     time.Time  `json:"generatedAt"`
}

// TaskRef is the manifest's minimal view of a task.
type TaskRef struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	InitialPrompt string `json:"initialPrompt,omitempty"`
}

// SessionRef is the manifest's required `session` object, carrying exactly
// the fields spec.md §4.11 calls out: `model` and `permissionMode`.
type SessionRef struct {
	ID             string `json:"id"`
	Model          string `json:"model"`
	PermissionMode string `json:"permissionMode"`
}

// Validate checks the required-top-level-fields invariant from spec.md
// §4.11/§6 without reaching into disk: manifestVersion set, exactly one of
// role/mode, exactly one of task/tasks, and a non-empty session.model /
// session.permissionMode.
func (m *Manifest) Validate() error {
	if m.ManifestVersion <= 0 {
		return fmt.Errorf("manifest missing required field: manifestVersion")
	}
	if (m.Role == "") == (m.Mode == "") {
		return fmt.Errorf("manifest must set exactly one of role|mode")
	}
	if (m.Task == nil) == (len(m.Tasks) == 0) {
		return fmt.Errorf("manifest must set exactly one of task|tasks")
	}
	if m.Session.Model == "" || m.Session.PermissionMode == "" {
		return fmt.Errorf("manifest missing required fields: session.model, session.permissionMode")
	}
	return nil
}
