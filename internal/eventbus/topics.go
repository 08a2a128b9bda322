package eventbus

// Topics published on the bus, per spec.md §6's WebSocket topic table. The
// WebSocket bridge (internal/gateway/websocket) subscribes to this exact set.
const (
	TopicProjectCreated = "project:created"
	TopicProjectUpdated = "project:updated"
	TopicProjectDeleted = "project:deleted"

	TopicTaskCreated        = "task:created"
	TopicTaskUpdated        = "task:updated"
	TopicTaskDeleted        = "task:deleted"
	TopicTaskSessionAdded   = "task:session_added"
	TopicTaskSessionRemoved = "task:session_removed"

	TopicSessionCreated     = "session:created"
	TopicSessionUpdated     = "session:updated"
	TopicSessionDeleted     = "session:deleted"
	TopicSessionTaskAdded   = "session:task_added"
	TopicSessionTaskRemoved = "session:task_removed"
	TopicSessionPromptSend  = "session:prompt_send"

	TopicMailReceived = "mail:received"
	TopicMailDeleted  = "mail:deleted"

	// notify:* topics are lightweight notifications distinct from the
	// corresponding CRUD topic above (e.g. task:updated vs notify:task_completed).
	TopicNotifyTaskCompleted        = "notify:task_completed"
	TopicNotifyTaskFailed           = "notify:task_failed"
	TopicNotifyTaskBlocked          = "notify:task_blocked"
	TopicNotifyTaskSessionCompleted = "notify:task_session_completed"
	TopicNotifyTaskSessionFailed    = "notify:task_session_failed"
	TopicNotifySessionCompleted     = "notify:session_completed"
	TopicNotifyNeedsInput           = "notify:needs_input"
	TopicNotifyProgress             = "notify:progress"
)
