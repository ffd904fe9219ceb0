package main

import (
	"log"

	"whiteboard-backend/internal/cache"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/database"
	"whiteboard-backend/internal/server"
	"whiteboard-backend/internal/store"
)

func main() {
	// 설정 로드
	cfg := config.Load()

	// 스토어 어댑터 선택
	var st store.Store
	switch cfg.Store.Mode {
	case "memory":
		st = store.NewMemoryStore()
		log.Println("ℹ️ Using in-memory store (data is not persisted)")
	case "durable":
		db, err := database.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("❌ Database connection failed: %v", err)
		}
		defer database.Close(db)
		log.Println("✅ Database connected successfully")

		rdb, err := cache.Connect(cfg.Redis)
		if err != nil {
			log.Fatalf("❌ Redis connection failed: %v", err)
		}
		defer rdb.Close()

		durable, err := store.OpenDurable(db, rdb)
		if err != nil {
			log.Fatalf("❌ Store initialization failed: %v", err)
		}
		defer durable.Close()
		st = durable
	default:
		log.Fatalf("❌ Unknown STORE_MODE %q (want memory or durable)", cfg.Store.Mode)
	}

	// 서버 생성 및 설정
	srv := server.New(cfg, st)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// 서버 시작
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
