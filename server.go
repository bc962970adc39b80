package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/crm_backend/config"
	"bitbucket.org/mmdatafocus/crm_backend/docstore"
	"bitbucket.org/mmdatafocus/crm_backend/events"
	"bitbucket.org/mmdatafocus/crm_backend/handler"
	"bitbucket.org/mmdatafocus/crm_backend/middlewares"
	"bitbucket.org/mmdatafocus/crm_backend/mirror"
	"bitbucket.org/mmdatafocus/crm_backend/realtime"
	"bitbucket.org/mmdatafocus/crm_backend/workflow"
)

const defaultPort = "8080"

func main() {
	logger := config.GetLogger()
	ctx := context.Background()

	fsClient, err := config.GetFirestore(ctx)
	if err != nil {
		log.Fatalf("firestore init failed: %v", err)
	}
	backend := docstore.NewFirestoreBackend(fsClient, logger)

	authClient, err := config.GetFirebaseAuth(ctx)
	if err != nil {
		log.Printf("firebase auth init failed: %v; authenticated routes will reject", err)
	}

	var publisher *events.Publisher
	if os.Getenv("CRM_EVENTS_ENABLED") == "true" {
		publisher, err = events.NewPublisher(ctx, logger)
		if err != nil {
			log.Printf("pubsub init failed: %v; continuing without domain events", err)
		}
	}

	manager := mirror.NewManager(backend, logger)
	orchestrator := workflow.NewOrchestrator(backend, logger, publisher)
	hub := realtime.NewHub(logger)

	crm := handler.NewCRMHandler(manager, orchestrator, logger)
	ws := handler.NewWSHandler(manager, hub, logger)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api", middlewares.RequireAuth(authClient))
	{
		api.GET("/status", crm.Status)
		api.GET("/dashboard", crm.Dashboard)
		api.GET("/reports/customers.xlsx", crm.CustomerReport)

		api.POST("/quotes/:id/convert", crm.Convert)
		api.POST("/shipments/:id/deliver", crm.Deliver)

		api.POST("/data/:collection", crm.Save)
		api.PUT("/data/:collection/:id", crm.Save)
		api.DELETE("/data/:collection/:id", crm.Delete)
	}
	r.GET("/ws", middlewares.RequireAuth(authClient), ws.Stream)

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	log.Printf("crm backend listening on :%s", port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	// Tell connected clients to reconnect elsewhere, then tear down
	// every live subscription before the process exits.
	hub.BroadcastAll("shutdown", gin.H{"reason": "server restarting"})
	manager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
