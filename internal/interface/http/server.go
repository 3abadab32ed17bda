package httpapi

import (
	"database/sql"
	"net/http"

	alertApp "price-alert/internal/application/alert"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errCodeBadRequest   = "BAD_REQUEST"
	errCodeUnauthorized = "AUTH_UNAUTHORIZED"
	errCodeNotFound     = "NOT_FOUND"
	errCodeUnavailable  = "SERVICE_UNAVAILABLE"
	errCodeInternal     = "INTERNAL_ERROR"

	headerUserID = "X-User-ID"
)

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	engine         *gin.Engine
	db             *sql.DB
	alerts         *alertApp.Service
	vapidPublicKey string
	logger         *zap.Logger
}

// NewServer 建立 API 伺服器。db 為 nil 代表使用記憶體儲存；vapidPublicKey 為空代表未啟用推播。
func NewServer(db *sql.DB, alerts *alertApp.Service, vapidPublicKey string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:         gin.New(),
		db:             db,
		alerts:         alerts,
		vapidPublicKey: vapidPublicKey,
		logger:         logger,
	}
	s.registerRoutes()
	return s
}

// Handler 回傳路由處理器，供 HTTP server 掛載。
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	r := s.engine
	r.Use(gin.Recovery(), s.ginLogger(), corsMiddleware())
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found", "error_code": errCodeNotFound})
	})

	api := r.Group("/api")
	api.GET("/ping", s.handlePing)
	api.GET("/health", s.handleHealth)
	api.GET("/push/vapid-public-key", s.handleVAPIDPublicKey)

	owned := api.Group("", s.requireOwner())
	owned.POST("/alerts", s.handleCreateAlert)
	owned.GET("/alerts", s.handleListAlerts)
	owned.DELETE("/alerts/:id", s.handleDeleteAlert)
	owned.POST("/push/subscribe", s.handleSubscribe)
	owned.POST("/push/unsubscribe", s.handleUnsubscribe)
	owned.POST("/push/test", s.handlePushTest)
}
