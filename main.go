package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/joho/godotenv"

	"github.com/example/ridechat/modules/auth"
	"github.com/example/ridechat/modules/broadcast"
	"github.com/example/ridechat/modules/chat"
	"github.com/example/ridechat/modules/gateway"
	"github.com/example/ridechat/modules/rides"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment defaults")
	}

	log.Println("=== RideChat - ride-scoped realtime chat relay ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	authModule := auth.NewModule()
	ridesModule := rides.NewModule()
	chatModule := chat.NewModule()
	broadcastModule := broadcast.NewModule()
	gatewayModule := gateway.NewModule()

	// Inject the broadcast hub into the gateway module.
	// (Done manually because the hub is not exposed via ServiceContainer)
	gatewayModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - auth: token issuance and validation
	// - rides: ride lookup backed by SQLite
	// - chat: core domain (services + event emitter, depends on rides)
	// - broadcast: event consumer driving the WebSocket hub
	// - gateway: driving adapter (Fiber HTTP/WebSocket, depends on auth, chat, rides)
	app.Register(authModule)
	app.Register(ridesModule)
	app.Register(chatModule)
	app.Register(broadcastModule)
	app.Register(gatewayModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Event-Driven Relay:")
	log.Println("  - MessageSent events -> broadcast module -> WebSocket clients")
	log.Println("  - MemberJoined/MemberLeft events -> broadcast module -> WebSocket clients")
	log.Println("  - TypingStarted/TypingStopped events -> broadcast module -> WebSocket clients")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health                      - Health check")
	log.Println("  POST   /api/v1/auth/token           - Issue a chat token")
	log.Println("  GET    /api/v1/rides/:id            - Ride details")
	log.Println("  GET    /api/v1/rides/:id/messages   - Channel backlog")
	log.Println("  GET    /api/v1/rides/:id/members    - Channel members")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws?token=...):", port)
	log.Println("  Client events: joinRoom, leaveRoom, sendMessage, typing, stopTyping")
	log.Println("  Server events: previousMessages, newMessage, userJoined, userLeft,")
	log.Println("                 userTyping, userStoppedTyping, error")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
