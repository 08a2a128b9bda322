package api

import (
	"github.com/gin-gonic/gin"

	"github.com/maestro-run/maestro/internal/digest"
	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/gateway/websocket"
	"github.com/maestro-run/maestro/internal/mail"
	"github.com/maestro-run/maestro/internal/ordering"
	"github.com/maestro-run/maestro/internal/platform/httpmw"
	"github.com/maestro-run/maestro/internal/platform/logger"
	"github.com/maestro-run/maestro/internal/project"
	"github.com/maestro-run/maestro/internal/queue"
	"github.com/maestro-run/maestro/internal/session"
	"github.com/maestro-run/maestro/internal/spawn"
	"github.com/maestro-run/maestro/internal/storage"
	"github.com/maestro-run/maestro/internal/task"
	"github.com/maestro-run/maestro/internal/tasklist"
	"github.com/maestro-run/maestro/internal/team"
	"github.com/maestro-run/maestro/internal/template"
)

// Services bundles every service the REST Surface depends on.
type Services struct {
	Project  *project.Service
	Task     *task.Service
	Session  *session.Service
	Mail     *mail.Service
	Queue    *queue.Service
	Digest   *digest.Service
	Spawn    *spawn.Service
	Team     *team.Service
	TaskList *tasklist.Service
	Template *template.Service
	Ordering *ordering.Service
	Store    storage.Store
	Bus      eventbus.Bus
}

// NewRouter builds the gin engine for spec.md §6's REST Surface plus the
// WebSocket upgrade endpoint, wiring the logging and tracing middleware the
// teacher's backend uses on every route.
func NewRouter(svc Services, wsHandler *websocket.Handler, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmw.RequestLogger(log, "maestro"))
	r.Use(httpmw.OtelTracing("maestro"))

	health := NewHealthHandler(svc.Store, svc.Bus)
	r.GET("/healthz", health.Live)
	r.GET("/readyz", health.Ready)
	r.GET("/ws", wsHandler.HandleConnection)

	projects := NewProjectHandler(svc.Project)
	r.POST("/api/projects", projects.Create)
	r.GET("/api/projects", projects.List)
	r.GET("/api/projects/:id", projects.Get)
	r.PUT("/api/projects/:id", projects.Update)
	r.PUT("/api/projects/:id/master", projects.SetMasterStatus)
	r.DELETE("/api/projects/:id", projects.Delete)

	tasks := NewTaskHandler(svc.Task)
	r.POST("/api/tasks", tasks.Create)
	r.GET("/api/tasks", tasks.List)
	r.GET("/api/tasks/:id", tasks.Get)
	r.GET("/api/tasks/:id/children", tasks.Children)
	r.PATCH("/api/tasks/:id", tasks.Update)
	r.DELETE("/api/tasks/:id", tasks.Delete)
	r.POST("/api/tasks/:id/sessions", tasks.AddSession)
	r.DELETE("/api/tasks/:id/sessions/:sessionId", tasks.RemoveSession)

	sessions := NewSessionHandler(svc.Session)
	r.POST("/api/sessions", sessions.Create)
	r.GET("/api/sessions", sessions.List)
	r.GET("/api/sessions/:id", sessions.Get)
	r.PATCH("/api/sessions/:id", sessions.Update)
	r.DELETE("/api/sessions/:id", sessions.Delete)
	r.POST("/api/sessions/:id/tasks", sessions.AddTask)
	r.DELETE("/api/sessions/:id/tasks/:taskId", sessions.RemoveTask)
	r.POST("/api/sessions/:id/timeline", sessions.AddTimelineEvent)
	r.GET("/api/sessions/:id/timeline", sessions.Timeline)
	r.POST("/api/sessions/:id/docs", sessions.AddDoc)
	r.POST("/api/sessions/:id/prompt", sessions.Prompt)

	spawner := NewSpawnHandler(svc.Spawn)
	r.POST("/api/sessions/spawn", spawner.Spawn)

	digests := NewDigestHandler(svc.Digest)
	r.GET("/api/sessions/log-digests", digests.Batch)
	r.GET("/api/sessions/:id/log-digest", digests.Get)

	queues := NewQueueHandler(svc.Queue)
	r.POST("/api/sessions/:id/queue", queues.Create)
	r.GET("/api/sessions/:id/queue", queues.Get)
	r.POST("/api/sessions/:id/queue/items", queues.Push)
	r.POST("/api/sessions/:id/queue/start", queues.Start)
	r.POST("/api/sessions/:id/queue/complete", queues.Complete)
	r.POST("/api/sessions/:id/queue/fail", queues.Fail)
	r.POST("/api/sessions/:id/queue/skip", queues.Skip)
	r.GET("/api/sessions/:id/queue/stats", queues.Stats)

	mails := NewMailHandler(svc.Mail)
	r.POST("/api/mail", mails.Send)
	r.GET("/api/mail/inbox", mails.Inbox)
	r.GET("/api/mail/wait", mails.Wait)
	r.GET("/api/mail/thread/:threadId", mails.Thread)

	teams := NewTeamHandler(svc.Team)
	r.GET("/api/team-members", teams.ListMembers)
	r.POST("/api/team-members", teams.CreateMember)
	r.GET("/api/team-members/:id", teams.GetMember)
	r.PATCH("/api/team-members/:id", teams.UpdateMember)
	r.POST("/api/team-members/:id/reset", teams.ResetDefaultMember)
	r.DELETE("/api/team-members/:id", teams.DeleteMember)
	r.GET("/api/teams", teams.ListTeams)
	r.POST("/api/teams", teams.CreateTeam)
	r.GET("/api/teams/:id", teams.GetTeam)
	r.PATCH("/api/teams/:id", teams.UpdateTeam)
	r.DELETE("/api/teams/:id", teams.DeleteTeam)
	r.POST("/api/teams/:id/sub-teams", teams.AddSubTeam)
	r.DELETE("/api/teams/:id/sub-teams/:childId", teams.RemoveSubTeam)

	taskLists := NewTaskListHandler(svc.TaskList)
	r.POST("/api/task-lists", taskLists.Create)
	r.GET("/api/task-lists", taskLists.List)
	r.GET("/api/task-lists/:id", taskLists.Get)
	r.PATCH("/api/task-lists/:id", taskLists.Rename)
	r.DELETE("/api/task-lists/:id", taskLists.Delete)
	r.POST("/api/task-lists/:id/tasks", taskLists.AddTask)
	r.DELETE("/api/task-lists/:id/tasks/:taskId", taskLists.RemoveTask)

	templates := NewTemplateHandler(svc.Template)
	r.GET("/api/templates", templates.List)
	r.GET("/api/templates/:role", templates.Get)
	r.PUT("/api/templates/:role", templates.Set)
	r.POST("/api/templates/:role/reset", templates.Reset)

	orderings := NewOrderingHandler(svc.Ordering)
	r.GET("/api/orderings/:entityType", orderings.Get)
	r.PUT("/api/orderings/:entityType", orderings.Set)
	r.POST("/api/orderings/:entityType/move-to-front", orderings.MoveToFront)

	return r
}
