package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/board"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/handler"
	"whiteboard-backend/internal/permission"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/store"
)

// Server Fiber 서버 래퍼
type Server struct {
	app               *fiber.App
	cfg               *config.Config
	store             store.Store
	authHandler       *handler.AuthHandler
	whiteboardHandler *handler.WhiteboardHandler
	entityHandler     *handler.EntityHandler
	permissionHandler *handler.PermissionHandler
	boardWSHandler    *handler.BoardWSHandler
	jwtManager        *auth.JWTManager
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, st store.Store) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Whiteboard Sync Backend",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             10 * 1024 * 1024, // 10MB (대형 패스 데이터)
		DisableStartupMessage: false,
	})

	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	googleAuth := auth.NewGoogleAuthenticator(cfg.Auth.GoogleClientID)

	boards := board.NewWhiteboards(st)
	syncer := board.NewSynchronizer(st)
	perms := permission.NewService(st)
	tracker := presence.NewTracker(st)

	return &Server{
		app:               app,
		cfg:               cfg,
		store:             st,
		authHandler:       handler.NewAuthHandler(st, jwtManager, googleAuth, cfg.Auth.SecureCookie),
		whiteboardHandler: handler.NewWhiteboardHandler(boards, perms),
		entityHandler:     handler.NewEntityHandler(syncer, perms),
		permissionHandler: handler.NewPermissionHandler(perms),
		boardWSHandler:    handler.NewBoardWSHandler(st, boards, syncer, tracker, perms, cfg.WebSocket.WriteTimeout),
		jwtManager:        jwtManager,
	}
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Seoul",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", handler.Health)

	// Rate Limiter 설정 (인증 엔드포인트용 - Brute Force 방지)
	authLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	// Auth 라우트 그룹
	authGroup := s.app.Group("/auth")
	authGroup.Post("/google", authLimiter, s.authHandler.GoogleLogin)
	authGroup.Post("/refresh", authLimiter, s.authHandler.RefreshToken)
	authGroup.Post("/logout", auth.Middleware(s.jwtManager), s.authHandler.Logout)
	authGroup.Get("/me", auth.Middleware(s.jwtManager), s.authHandler.GetMe)

	// Whiteboard 라우트 그룹 (익명 허용, 스코프는 핸들러에서 판정)
	wbGroup := s.app.Group("/api/whiteboards", auth.OptionalMiddleware(s.jwtManager))
	wbGroup.Get("/", s.whiteboardHandler.List)
	wbGroup.Post("/", s.whiteboardHandler.Create)
	wbGroup.Get("/:id", s.whiteboardHandler.Get)
	wbGroup.Put("/:id", s.whiteboardHandler.Update)
	wbGroup.Put("/:id/snapshot", s.whiteboardHandler.SetSnapshot)
	wbGroup.Delete("/:id", s.whiteboardHandler.Delete)

	// Entity 라우트 (마킹/텍스트/도형 공통, :collection으로 구분)
	wbGroup.Get("/:id/:collection", s.entityHandler.List)
	wbGroup.Post("/:id/:collection", s.entityHandler.Create)
	wbGroup.Get("/:id/:collection/:key", s.entityHandler.Get)
	wbGroup.Post("/:id/:collection/:key/edits", s.entityHandler.Edit)
	wbGroup.Post("/:id/:collection/:key/erase", s.entityHandler.Erase)

	// Permission 라우트 그룹
	permGroup := s.app.Group("/api/permissions", auth.OptionalMiddleware(s.jwtManager))
	permGroup.Put("/:kind/:key", s.permissionHandler.Put)
	permGroup.Get("/:kind/:key", s.permissionHandler.Get)
	permGroup.Get("/:kind/:key/effective", s.permissionHandler.Effective)
	permGroup.Post("/:kind/:key/scopes", s.permissionHandler.AddScopes)
	permGroup.Delete("/:kind/:key/scopes", s.permissionHandler.RemoveScopes)

	// WebSocket 화이트보드 스트림 (token 쿼리 파라미터로 인증)
	s.app.Get("/ws/whiteboards/:id",
		auth.OptionalMiddleware(s.jwtManager),
		s.boardWSHandler.Upgrade,
		s.boardWSHandler.Handle(websocket.Config{
			ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
		}),
	)
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 Whiteboard Sync Backend starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/whiteboards/:id", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
