package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"perks/config"
	"perks/internal/database"
	"perks/internal/router"
	"perks/pkg/cloudinary"
	"perks/pkg/lockstore"
	"perks/pkg/orders"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	var store lockstore.Store
	if cfg.Redis.Addr != "" {
		store = lockstore.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
		log.Printf("claim locks on redis at %s", cfg.Redis.Addr)
	} else {
		store = lockstore.NewMemoryStore()
		log.Printf("claim locks in process memory; set REDIS_ADDR when running more than one instance")
	}

	var verifier orders.Verifier = orders.AllowAll{}
	if cfg.Orders.ServiceURL != "" {
		verifier = orders.NewHTTPVerifier(cfg.Orders.ServiceURL, cfg.Orders.ServiceToken)
		log.Printf("order verification against %s", cfg.Orders.ServiceURL)
	} else {
		log.Printf("order verification disabled; set ORDER_SERVICE_URL to enable")
	}

	var cloud cloudinary.Client
	if cfg.Cloudinary.CloudName != "" {
		cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			log.Fatalf("cloudinary: %v", err)
		}
	} else {
		log.Printf("reward image uploads disabled; set CLOUDINARY_CLOUD_NAME to enable")
	}

	engine, sweeper := router.Setup(cfg, db, store, verifier, cloud)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("sweeper: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	sweeper.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Println("server stopped")
}
