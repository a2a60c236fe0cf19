package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sprouthq/sprout/internal/config"
	"github.com/sprouthq/sprout/internal/handler"
	"github.com/sprouthq/sprout/internal/ledger"
	"github.com/sprouthq/sprout/internal/middleware"
	"github.com/sprouthq/sprout/internal/notify"
	"github.com/sprouthq/sprout/internal/reminder"
	"github.com/sprouthq/sprout/internal/remote"
	"github.com/sprouthq/sprout/internal/store"
	"github.com/sprouthq/sprout/internal/syncer"
	"github.com/sprouthq/sprout/internal/task"
	ws "github.com/sprouthq/sprout/internal/websocket"
)

// Server wires the stores, the ledger, the reminder scheduler, and the
// handlers into one HTTP surface.
type Server struct {
	db  *sql.DB
	hub *ws.Hub

	taskH     *handler.TaskHandler
	rewardH   *handler.RewardHandler
	pushH     *handler.PushHandler
	settingsH *handler.SettingsHandler
	authH     *handler.AuthHandler

	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter

	taskService *task.Service
	ledger      *ledger.Ledger
	scheduler   *reminder.Scheduler
	syncer      *syncer.Syncer

	logger *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	taskStore := store.NewTaskStore(db)
	rewardStore := store.NewRewardStore(db)
	statsStore := store.NewStatsStore(db)
	queueStore := store.NewSyncQueueStore(db)
	pushStore := store.NewPushStore(db)
	settingsStore := store.NewSettingsStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)

	var pushSvc *notify.PushService
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc = notify.NewPushService(notify.Config{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.PushSubscriber,
		})
	}

	dispatcher := notify.NewDispatcher(pushSvc, pushStore, settingsStore, hub, logger.With("component", "notify"))
	led := ledger.New(rewardStore, statsStore, queueStore, hub, logger.With("component", "ledger"))

	lead := reminderLead(settingsStore, cfg.ReminderLead)
	scheduler := reminder.NewScheduler(dispatcher, lead, cfg.ReminderInterval, logger.With("component", "reminder"))
	taskService := task.NewService(taskStore, led, scheduler, hub, logger.With("component", "task"))

	remoteClient := remote.NewClient(cfg.SyncBaseURL, cfg.SyncToken)
	sync := syncer.New(queueStore, remoteClient, cfg.SyncInterval, logger.With("component", "syncer"))

	return &Server{
		db:           db,
		hub:          hub,
		taskH:        handler.NewTaskHandler(taskService, logger.With("component", "task_handler")),
		rewardH:      handler.NewRewardHandler(led, logger.With("component", "reward_handler")),
		pushH:        handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		settingsH:    handler.NewSettingsHandler(settingsStore, logger.With("component", "settings_handler")),
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		taskService:  taskService,
		ledger:       led,
		scheduler:    scheduler,
		syncer:       sync,
		logger:       logger,
	}
}

// reminderLead prefers the persisted reminder_lead_minutes setting over the
// configured default.
func reminderLead(settings *store.SettingsStore, fallback time.Duration) time.Duration {
	value, err := settings.Get("reminder_lead_minutes")
	if err != nil {
		return fallback
	}
	minutes, err := strconv.Atoi(value)
	if err != nil || minutes < 1 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}

// TaskService returns the task service for startup reminder resync.
func (s *Server) TaskService() *task.Service {
	return s.taskService
}

// Ledger returns the gamification ledger for maintenance tasks.
func (s *Server) Ledger() *ledger.Ledger {
	return s.ledger
}

// Scheduler returns the reminder scheduler for lifecycle management.
func (s *Server) Scheduler() *reminder.Scheduler {
	return s.scheduler
}

// Syncer returns the sync worker for lifecycle management.
func (s *Server) Syncer() *syncer.Syncer {
	return s.syncer
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Task API routes
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("DELETE /api/tasks/completed", s.taskH.ClearCompleted)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("PATCH /api/tasks/{id}/complete", s.taskH.Complete)

	// Reward API routes
	mux.HandleFunc("GET /api/rewards", s.rewardH.List)
	mux.HandleFunc("POST /api/rewards/claim-all", s.rewardH.ClaimAll)
	mux.HandleFunc("POST /api/rewards/daily-bonus", s.rewardH.DailyBonus)
	mux.HandleFunc("POST /api/rewards/{id}/claim", s.rewardH.Claim)
	mux.HandleFunc("GET /api/balance", s.rewardH.Balance)
	mux.HandleFunc("GET /api/stats", s.rewardH.Stats)
	mux.HandleFunc("GET /api/celebration", s.rewardH.Celebration)

	// Push notification API routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// Settings API routes
	mux.HandleFunc("GET /api/settings/notifications", s.settingsH.GetNotifications)
	mux.HandleFunc("PUT /api/settings/notifications", s.settingsH.UpdateNotifications)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
