package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"collab-service/internal/ai"
	"collab-service/internal/config"
	"collab-service/internal/db"
	"collab-service/internal/encryption"
	"collab-service/internal/handlers"
	"collab-service/internal/keys"
	"collab-service/internal/messaging"
	"collab-service/internal/middleware"
	"collab-service/internal/observability"
	"collab-service/internal/rabbitmq"
	"collab-service/internal/repositories"
	"collab-service/internal/storage"
	"collab-service/internal/telemetry"
	"collab-service/internal/ws"
)

const serviceName = "collab-service"

// aiResponseDelay mirrors the short typing pause before an assistant reply.
const aiResponseDelay = 1500 * time.Millisecond

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Printf("tracing setup failed, continuing without traces: %v", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AuditExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode: %s", rabbitmq.PublisherMode(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.events", serviceName, cfg.Environment)

	if cfg.AMQPURL != "" {
		if eventsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AuditExchange); err != nil {
			log.Printf("ws event publisher unavailable: %v", err)
		} else {
			observability.SetPublisher(eventsPublisher)
			defer eventsPublisher.Close()
		}
	}

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	roomKeyRepo := repositories.NewRoomKeyRepo(database)

	ring := encryption.NewKeyring()
	keySvc := keys.NewService(ring, roomKeyRepo)

	hub := ws.NewHub()
	sender := messaging.NewSender(ring, messageRepo, hub)

	var generator ai.Generator
	if cfg.GroqAPIKey != "" {
		generator = ai.NewGroqGenerator(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
	} else {
		log.Printf("GROQ_API_KEY not set, assistant replies with fallback text")
	}
	aiSvc := ai.NewService(generator, sender, messageRepo, ring, aiResponseDelay)

	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		log.Fatalf("failed to init file storage: %v", err)
	}

	roomHandler := handlers.NewRoomHandler(roomRepo, keySvc, audit)
	messageHandler := handlers.NewMessageHandler(roomRepo, messageRepo, sender, aiSvc, audit)
	fileHandler := handlers.NewFileHandler(roomRepo, store, sender, audit)

	roomWS := ws.NewRoomWebSocketHandler(hub, roomRepo, messageRepo, keySvc, cfg.JWTSecret)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.POST("/rooms", authMiddleware, roomHandler.CreateRoom)
	router.GET("/rooms", authMiddleware, roomHandler.ListRooms)
	router.POST("/rooms/join", authMiddleware, roomHandler.JoinRoom)
	router.POST("/rooms/:room_id/leave", authMiddleware, roomHandler.LeaveRoom)
	router.DELETE("/rooms/:room_id", authMiddleware, roomHandler.DeleteRoom)
	router.GET("/rooms/:room_id/key", authMiddleware, roomHandler.GetRoomKey)
	router.POST("/rooms/:room_id/key/rotate", authMiddleware, roomHandler.RotateRoomKey)
	router.GET("/rooms/:room_id/messages", authMiddleware, messageHandler.ListMessages)
	router.POST("/rooms/:room_id/messages", authMiddleware, messageHandler.PostMessage)
	router.POST("/rooms/:room_id/files", authMiddleware, fileHandler.UploadFile)

	router.GET("/ws/rooms/:room_id", roomWS.Handle)

	router.Static(cfg.UploadBaseURL, store.Dir())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
