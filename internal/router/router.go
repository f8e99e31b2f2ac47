// Package router 组装API服务的路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/veerhq/veer/config"
	"github.com/veerhq/veer/internal/database"
	"github.com/veerhq/veer/internal/handler"
	"github.com/veerhq/veer/internal/middleware"
	"github.com/veerhq/veer/internal/response"
	"github.com/veerhq/veer/internal/service/backup"
	"github.com/veerhq/veer/internal/service/chat"
	"github.com/veerhq/veer/internal/service/daily"
	"github.com/veerhq/veer/internal/service/feed"
	"github.com/veerhq/veer/internal/service/note"
	"github.com/veerhq/veer/internal/service/project"
	"github.com/veerhq/veer/internal/service/session"
	"github.com/veerhq/veer/internal/service/task"
	"github.com/veerhq/veer/internal/service/widget"
	"gorm.io/gorm"
)

// Services API服务用到的全部业务服务
type Services struct {
	Notes    note.NoteService
	Daily    daily.DailyService
	Tasks    task.TaskService
	Projects project.ProjectService
	Sessions session.SessionService
	Snippets widget.SnippetService
	Colors   widget.ColorService
	Commands widget.QuickCommandService
	Breaks   widget.BreakService
	Settings widget.SettingService
	Chat     chat.ChatService
	Weather  feed.WeatherService
	News     feed.NewsService
	Targets  backup.TargetService
	Backups  backup.BackupService
}

// NewServices 按配置创建全部服务
func NewServices(db *gorm.DB, cfg *config.Config) *Services {
	sessions := session.NewSessionService(db)
	targets := backup.NewTargetService(db, backup.NewStorage)
	return &Services{
		Notes:    note.NewNoteService(db),
		Daily:    daily.NewDailyService(db),
		Tasks:    task.NewTaskService(db),
		Projects: project.NewProjectService(db),
		Sessions: sessions,
		Snippets: widget.NewSnippetService(db),
		Colors:   widget.NewColorService(db),
		Commands: widget.NewQuickCommandService(db),
		Breaks:   widget.NewBreakService(db),
		Settings: widget.NewSettingService(db),
		Chat:     chat.NewChatService(cfg.Chat, sessions),
		Weather:  feed.NewWeatherService(cfg.Weather),
		News:     feed.NewNewsService(cfg.News),
		Targets:  targets,
		Backups:  backup.NewBackupService(db, cfg.Backup, targets, backup.NewStorage),
	}
}

// Router 路由配置
type Router struct {
	engine *gin.Engine
	db     *gorm.DB
	guard  *middleware.TokenGuard
}

// NewRouter 创建路由实例
func NewRouter(db *gorm.DB, cfg *config.Config, svc *Services, version string) *Router {
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog("api"))
	engine.Use(middleware.RequestLogger(nil))
	engine.Use(middleware.CORS(cfg.Server.CORSOrigins))

	guard := middleware.NewTokenGuard(cfg.Server.Token)

	noteHandler := handler.NewNoteHandler(svc.Notes)
	dailyHandler := handler.NewDailyHandler(svc.Daily)
	taskHandler := handler.NewTaskHandler(svc.Tasks)
	projectHandler := handler.NewProjectHandler(svc.Projects)
	sessionHandler := handler.NewSessionHandler(svc.Sessions)
	widgetHandler := handler.NewWidgetHandler(svc.Snippets, svc.Colors, svc.Commands, svc.Breaks, svc.Settings)
	toolHandler := handler.NewToolHandler()
	chatHandler := handler.NewChatHandler(svc.Chat)
	feedHandler := handler.NewFeedHandler(svc.Weather, svc.News)
	backupHandler := handler.NewBackupHandler(svc.Targets, svc.Backups)

	// 健康检查
	engine.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")
	api.Use(guard.Handler())
	{
		// 基础信息接口，附带数据库状态
		api.GET("/info", func(c *gin.Context) {
			dbStatus := "ok"
			if err := database.Ping(db); err != nil {
				dbStatus = err.Error()
			}
			response.Success(c, gin.H{
				"service":  "veer",
				"version":  version,
				"database": dbStatus,
			})
		})

		notes := api.Group("/notes")
		{
			notes.POST("", noteHandler.CreateNote)
			notes.GET("", noteHandler.ListNotes)
			notes.GET("/categories", noteHandler.Categories)
			notes.GET("/:id", noteHandler.GetNote)
			notes.PATCH("/:id", noteHandler.UpdateNote)
			notes.DELETE("/:id", noteHandler.DeleteNote)
		}

		dailyData := api.Group("/daily")
		{
			dailyData.GET("", dailyHandler.Range)
			dailyData.GET("/:day", dailyHandler.Get)
			dailyData.PUT("/:day", dailyHandler.Upsert)
			dailyData.DELETE("/:day", dailyHandler.Delete)
		}

		tasks := api.Group("/tasks")
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.DELETE("/completed", taskHandler.ClearCompleted)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.POST("/:id/toggle", taskHandler.ToggleTask)
		}

		projects := api.Group("/projects")
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.POST("/:id/archive", projectHandler.Archive)
			projects.POST("/:id/unarchive", projectHandler.Unarchive)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("", sessionHandler.ListSessions)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.PATCH("/:id", sessionHandler.RenameSession)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)
			sessions.GET("/:id/messages", sessionHandler.ListMessages)
			sessions.POST("/:id/messages", sessionHandler.AppendMessage)
			sessions.DELETE("/:id/messages/:messageId", sessionHandler.DeleteMessage)
		}

		snippets := api.Group("/snippets")
		{
			snippets.POST("", widgetHandler.CreateSnippet)
			snippets.GET("", widgetHandler.ListSnippets)
			snippets.GET("/languages", widgetHandler.SnippetLanguages)
			snippets.GET("/export", widgetHandler.ExportSnippets)
			snippets.POST("/import", widgetHandler.ImportSnippets)
			snippets.GET("/:id", widgetHandler.GetSnippet)
			snippets.PUT("/:id", widgetHandler.UpdateSnippet)
			snippets.DELETE("/:id", widgetHandler.DeleteSnippet)
		}

		colors := api.Group("/colors")
		{
			colors.POST("", widgetHandler.CreateColor)
			colors.GET("", widgetHandler.ListColors)
			colors.PUT("/:id", widgetHandler.UpdateColor)
			colors.DELETE("/:id", widgetHandler.DeleteColor)
		}

		commands := api.Group("/commands")
		{
			commands.POST("", widgetHandler.CreateCommand)
			commands.GET("", widgetHandler.ListCommands)
			commands.PUT("/:id", widgetHandler.UpdateCommand)
			commands.DELETE("/:id", widgetHandler.DeleteCommand)
		}

		breaks := api.Group("/breaks")
		{
			breaks.POST("", widgetHandler.RecordBreak)
			breaks.GET("/summary", widgetHandler.BreakSummary)
			breaks.GET("/:day", widgetHandler.GetBreak)
		}

		settings := api.Group("/settings")
		{
			settings.GET("", widgetHandler.AllSettings)
			settings.PUT("", widgetHandler.PutSettings)
			settings.GET("/:key", widgetHandler.GetSetting)
			settings.PUT("/:key", widgetHandler.PutSetting)
			settings.DELETE("/:key", widgetHandler.DeleteSetting)
		}

		tools := api.Group("/tools")
		{
			tools.GET("/units", toolHandler.Categories)
			tools.GET("/units/:category", toolHandler.Units)
			tools.POST("/convert", toolHandler.Convert)
			tools.GET("/color", toolHandler.Color)
			tools.POST("/color", toolHandler.Color)
		}

		api.POST("/chat", chatHandler.Chat)
		api.GET("/chat/providers", chatHandler.Providers)
		api.GET("/weather", feedHandler.Weather)
		api.GET("/news", feedHandler.News)

		backups := api.Group("/backup")
		{
			backups.POST("/targets", backupHandler.CreateTarget)
			backups.GET("/targets", backupHandler.ListTargets)
			backups.GET("/targets/:id", backupHandler.GetTarget)
			backups.PUT("/targets/:id", backupHandler.UpdateTarget)
			backups.DELETE("/targets/:id", backupHandler.DeleteTarget)
			backups.POST("/targets/:id/activate", backupHandler.ActivateTarget)
			backups.POST("/targets/:id/test", backupHandler.TestTarget)
			backups.POST("/run", backupHandler.RunBackup)
			backups.GET("/snapshots", backupHandler.ListSnapshots)
			backups.POST("/restore", backupHandler.Restore)
			backups.GET("/logs", backupHandler.Logs)
		}
	}

	return &Router{
		engine: engine,
		db:     db,
		guard:  guard,
	}
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// GetDB 获取数据库连接
func (r *Router) GetDB() *gorm.DB {
	return r.db
}

// Guard API令牌校验器，配置热更新时替换令牌
func (r *Router) Guard() *middleware.TokenGuard {
	return r.guard
}
