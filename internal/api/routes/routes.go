package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/vidbrief/vidbrief/internal/api/handlers"
	"github.com/vidbrief/vidbrief/internal/api/middleware"
)

type Deps struct {
	Summarize *handlers.SummarizeHandler
	Chat      *handlers.ChatHandler
	Video     *handlers.VideoHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api")

	// Protected routes (JWT)
	auth := api.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/summarize", d.Summarize.Submit)
	auth.GET("/summarize/status/:task_id", d.Summarize.Status)
	auth.GET("/summarize/history", d.Summarize.History)
	auth.GET("/summarize/:summary_id", d.Summarize.Get)

	auth.POST("/videos/upload", d.Video.Upload)
	auth.GET("/videos", d.Video.List)

	auth.POST("/chat/session/start", d.Chat.StartSession)
	auth.POST("/chat/session/:session_id/ask", d.Chat.Ask)
	auth.GET("/chat/session/:session_id/messages", d.Chat.Messages)

	// WebSocket authenticates with a token query parameter inside the
	// handler, before the upgrade.
	api.GET("/chat/ws/:session_id", d.WS.SessionWS)
}
