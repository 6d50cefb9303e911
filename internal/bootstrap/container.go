package bootstrap

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"finscope-be/internal/config"
	"finscope-be/internal/controller"
	"finscope-be/internal/handler"
	"finscope-be/internal/pkg/logger"
	"finscope-be/internal/repository/implementation"
	"finscope-be/internal/service"
	"finscope-be/internal/websocket"
	"finscope-be/pkg/events"
	"finscope-be/pkg/gateway"
	pktNats "finscope-be/pkg/nats"
	"finscope-be/pkg/store"
	"finscope-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	WorkflowController controller.IWorkflowController
	HistoryController  controller.IHistoryController // nil when no database is configured
	HealthController   controller.IHealthController

	// WebSockets
	SessionFeedHandler *handler.SessionFeedHandler
	WebSocketHub       *websocket.Hub

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// Session store
	var sessionStore store.Store
	if cfg.App.SessionStore == "memory" {
		sessionStore = store.NewMemoryStore()
		log.Println("[INFO] Using in-memory session store")
	} else {
		sessionStore = store.NewRedisStoreFromClient(rdb)
		log.Println("[INFO] Using Redis session store")
	}

	// Analysis backend client
	gatewayClient := gateway.NewClient(
		cfg.Analysis.BaseURL,
		time.Duration(cfg.Analysis.TimeoutSeconds)*time.Second,
		cfg.Analysis.RetryCount,
	)

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run()

	// 3. History archive (needs the database; the session workflow works without it)
	var historyService service.IHistoryService
	var archiver workflow.Archiver
	if db != nil {
		historyRepo := implementation.NewHistoryRepository(db)
		historyService = service.NewHistoryService(historyRepo, sysLogger)
		archiver = historyService
	} else {
		log.Println("[WARN] No database configured; history archive disabled")
	}

	// 4. Orchestrator
	orchestrator := workflow.NewOrchestrator(sessionStore, gatewayClient, pubSub, archiver, sysLogger)
	if err := orchestrator.Restore(context.Background()); err != nil {
		log.Printf("[WARN] Failed to restore persisted session: %v", err)
	}

	// Bridge orchestrator state changes to the websocket feed and NATS.
	go bridgeStateChanges(pubSub, wsHub, natsPub, sysLogger)

	workflowService := service.NewWorkflowService(orchestrator, sessionStore)

	// 5. Controllers
	c := &Container{
		WorkflowController: controller.NewWorkflowController(workflowService),
		HealthController:   controller.NewHealthController(gatewayClient),
		SessionFeedHandler: handler.NewSessionFeedHandler(wsHub, sysLogger),
		WebSocketHub:       wsHub,
		Logger:             sysLogger,
	}
	if historyService != nil {
		c.HistoryController = controller.NewHistoryController(historyService)
	}
	return c
}

// bridgeStateChanges fans every committed orchestrator transition out
// to feed clients and mirrors lifecycle transitions onto NATS.
func bridgeStateChanges(pubSub *gochannel.GoChannel, hub *websocket.Hub, natsPub *pktNats.Publisher, sysLogger logger.ILogger) {
	messages, err := pubSub.Subscribe(context.Background(), workflow.TopicSessionState)
	if err != nil {
		sysLogger.Error("Bootstrap", "Failed to subscribe to state changes", map[string]interface{}{"error": err.Error()})
		return
	}

	for msg := range messages {
		hub.Broadcast(msg.Payload)

		if natsPub != nil {
			var change workflow.StateChange
			if err := json.Unmarshal(msg.Payload, &change); err == nil {
				if eventType, ok := lifecycleEventType(change.Event); ok {
					sessionId, workflowType := "", ""
					if change.Session != nil {
						sessionId = change.Session.SessionId
						workflowType = change.Session.WorkflowType
					}
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					if err := natsPub.Publish(ctx, events.NewSessionEvent(eventType, sessionId, workflowType)); err != nil {
						sysLogger.Warn("Bootstrap", "Failed to publish lifecycle event", map[string]interface{}{"error": err.Error()})
					}
					cancel()
				}
			}
		}

		msg.Ack()
	}
}

func lifecycleEventType(event string) (string, bool) {
	switch event {
	case "session created":
		return events.SessionCreated, true
	case "session resumed":
		return events.SessionResumed, true
	case "session replaced":
		return events.SessionReplaced, true
	case "session ended":
		return events.SessionEnded, true
	default:
		// Chat transcript updates stay on the local feed only.
		return "", false
	}
}
