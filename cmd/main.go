package main

import (
	"context"

	"vocata/config"
	"vocata/internal/ai"
	"vocata/internal/ai/pipeline"
	"vocata/internal/controller"
	"vocata/internal/dao"
	hisdao "vocata/internal/dao/history"
	"vocata/internal/database"
	"vocata/internal/logger"
	"vocata/internal/middleware"
	"vocata/internal/router"
	"vocata/internal/service"
	"vocata/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.InitConfig()
	cfg := config.GetConfig()

	log := logger.NewLogger(cfg.Log.Debug)
	defer func() { _ = log.Sync() }()

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatal("init database failed", zap.Error(err))
	}

	// AI provider 选择，没有可用的 LLM 时直接退出
	holder, err := ai.Setup(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("setup ai providers failed", zap.Error(err))
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		log.Fatal("init storage failed", zap.Error(err))
	}
	aggregator := pipeline.NewAggregator(holder, store, cfg.AI.TTS.SegmentMaxRunes, log)

	characterService := service.NewCharacterService(dao.NewCharacterDao(db))
	historyService := service.NewHistoryService(hisdao.NewConvDao(db), hisdao.NewMsgDao(db))
	favoriteService := service.NewFavoriteService(dao.NewFavoriteDao(db), characterService)
	promptService := service.NewPromptService(log)
	chatService := service.NewChatService(aggregator, historyService, characterService, promptService, cfg.AI, log)
	fileService := service.NewFileService(dao.NewFileDao(db), store, log)
	voiceService := service.NewVoiceService(dao.NewVoiceDao(db), holder)
	aiService := service.NewAIService(holder, store, cfg.AI.TTS.Voice, log)

	controllers := &router.Controllers{
		Character:    controller.NewCharacterController(characterService, favoriteService, log),
		Conversation: controller.NewConversationController(historyService, characterService, chatService, log),
		Realtime:     controller.NewRealtimeController(historyService, chatService, cfg.CORS.AllowOrigins, log),
		File:         controller.NewFileController(fileService, log),
		Voice:        controller.NewVoiceController(voiceService, log),
		AI:           controller.NewAIController(aiService, log),
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.Default()
	// 配置跨域
	r.Use(middleware.SetupCORS(cfg.CORS))
	// 配置路由
	router.SetUpRouters(r, cfg, controllers)

	log.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
