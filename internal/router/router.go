package router

import (
	"vocata/config"
	"vocata/internal/controller"
	"vocata/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers 路由依赖的全部控制器
type Controllers struct {
	Character    *controller.CharacterController
	Conversation *controller.ConversationController
	Realtime     *controller.RealtimeController
	File         *controller.FileController
	Voice        *controller.VoiceController
	AI           *controller.AIController
}

func SetUpRouters(r *gin.Engine, cfg *config.AppConfig, c *Controllers) {
	// 本地存储的文件直接由 gin 提供访问
	if cfg.Storage.Type == "local" && cfg.Storage.Local.URLPrefix != "" {
		r.Static(cfg.Storage.Local.URLPrefix, cfg.Storage.Local.BaseDir)
	}

	api := r.Group("/api")
	api.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		character := api.Group("characters")
		{
			character.POST("/create", c.Character.CreateCharacter)
			character.PUT("/update", c.Character.UpdateCharacter)
			character.DELETE("/delete", c.Character.DeleteCharacter)
			character.GET("/get", c.Character.GetCharacter)
			character.GET("/page", c.Character.PagePublic)
			character.GET("/mine", c.Character.PageMine)
			character.GET("/search", c.Character.Search)
			character.GET("/featured", c.Character.Featured)
			// 收藏
			character.POST("/favorite", c.Character.AddFavorite)
			character.DELETE("/favorite", c.Character.RemoveFavorite)
			character.GET("/favorites", c.Character.PageFavorites)
		}

		conv := api.Group("conversations")
		{
			conv.POST("/create", c.Conversation.CreateConversation)
			conv.POST("/stream", c.Conversation.StreamMessage)
			conv.GET("/list", c.Conversation.ListConversations)
			conv.GET("/get", c.Conversation.GetConversation)
			conv.GET("/messages", c.Conversation.ListMessages)
			conv.PUT("/rename", c.Conversation.RenameConversation)
			conv.POST("/archive", c.Conversation.ArchiveConversation)
			conv.POST("/unarchive", c.Conversation.UnArchiveConversation)
			conv.POST("/pin", c.Conversation.PinConversation)
			conv.POST("/unpin", c.Conversation.UnPinConversation)
			conv.DELETE("/delete", c.Conversation.DeleteConversation)
		}

		api.GET("/ws/chat", c.Realtime.Chat)

		files := api.Group("files")
		{
			files.POST("/upload", c.File.Upload)
			files.GET("/page", c.File.List)
			files.GET("/get", c.File.Get)
			files.DELETE("/delete", c.File.Delete)
		}

		voice := api.Group("voices")
		{
			voice.POST("/create", c.Voice.CreateVoice)
			voice.DELETE("/delete", c.Voice.DeleteVoice)
			voice.GET("/list", c.Voice.ListVoices)
		}

		ai := api.Group("ai")
		{
			ai.GET("/providers", c.AI.Providers)
			ai.POST("/tts/synthesize", c.AI.Synthesize)
			ai.POST("/stt/recognize", c.AI.Recognize)
		}
	}
}
