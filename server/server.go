// Package server exposes the call-flow engine over the provider webhook
// surface: flow execution, queue wait loops, whisper announcements, and a
// health probe.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xordon/callflow/engine"
	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
	"github.com/xordon/callflow/queue"
)

const defaultWhisperText = "You have an incoming call."

// failsafeMarkup is the response of last resort when dialect rendering
// itself fails. The provider must always receive parseable markup.
const failsafeMarkup = `<?xml version="1.0" encoding="UTF-8"?><Response><Say voice="alice" language="en-US">Application error. Goodbye.</Say><Hangup></Hangup></Response>`

// Server wires HTTP routes to the engine.
type Server struct {
	engine          *engine.Engine
	repo            flow.Repository
	tenants         engine.Tenants
	queues          queue.Store
	listenAddr      string
	defaultProvider string
	holdMusicURL    string
	logger          *slog.Logger
	router          *gin.Engine
}

func New(cfg Config, eng *engine.Engine, repo flow.Repository, tenants engine.Tenants, queues queue.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine:          eng,
		repo:            repo,
		tenants:         tenants,
		queues:          queues,
		listenAddr:      cfg.ListenAddr,
		defaultProvider: cfg.DefaultProvider,
		holdMusicURL:    cfg.HoldMusicURL,
		logger:          logger,
		router:          gin.New(),
	}
	s.router.Use(gin.Recovery())

	webhooks := s.router.Group("/")
	if cfg.AuthToken != "" {
		webhooks.Use(verifySignature(cfg.AuthToken, cfg.PublicBaseURL, logger))
	}
	webhooks.POST("/flow/:flowID", s.handleFlow)
	webhooks.POST("/flow/:flowID/queue-wait", s.handleQueueWait)
	webhooks.POST("/flow/:flowID/queue-leave", s.handleQueueLeave)
	webhooks.GET("/whisper", s.handleWhisper)
	webhooks.POST("/whisper", s.handleWhisper)

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return s
}

// Router exposes the gin engine, for tests and custom mounting.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run blocks serving HTTP on the configured address.
func (s *Server) Run() error {
	return s.router.Run(s.listenAddr)
}

// requestParams flattens query and form parameters into the engine's view of
// the request. Form values win: the provider posts call state in the body,
// while the query carries our own continuation fields.
func requestParams(c *gin.Context) engine.Params {
	params := engine.Params{}
	for k, vs := range c.Request.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	if err := c.Request.ParseForm(); err == nil {
		for k, vs := range c.Request.PostForm {
			if len(vs) > 0 {
				params[k] = vs[0]
			}
		}
	}
	return params
}

func (s *Server) handleFlow(c *gin.Context) {
	flowID := c.Param("flowID")
	reply := s.engine.Execute(c.Request.Context(), flowID, c.Query("nodeId"), c.Query("action"), requestParams(c))
	s.respond(c, reply.Tenant, reply.Body)
}

// handleQueueWait is the hold experience. Each wait-loop request re-marks the
// caller as waiting, which doubles as the enter signal for occupancy.
func (s *Server) handleQueueWait(c *gin.Context) {
	flowID := c.Param("flowID")
	queueName := c.DefaultQuery("queue", "default")
	tenant := s.tenantFor(c, flowID)

	if callSID := c.PostForm("CallSid"); callSID != "" && s.queues != nil {
		if err := s.queues.Enter(c.Request.Context(), tenant, queueName, callSID); err != nil {
			s.logger.Error("queue enter failed", "queue", queueName, "error", err)
		}
	}

	music := c.DefaultQuery("music", s.holdMusicURL)
	s.respond(c, tenant, markup.New(markup.Play{Loop: markup.Loop(0), URL: music}))
}

func (s *Server) handleQueueLeave(c *gin.Context) {
	flowID := c.Param("flowID")
	queueName := c.DefaultQuery("queue", "default")
	tenant := s.tenantFor(c, flowID)

	if callSID := c.PostForm("CallSid"); callSID != "" && s.queues != nil {
		if err := s.queues.Leave(c.Request.Context(), tenant, queueName, callSID); err != nil {
			s.logger.Error("queue leave failed", "queue", queueName, "error", err)
		}
	}

	s.respond(c, tenant, markup.New())
}

func (s *Server) handleWhisper(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		text = defaultWhisperText
	}
	s.respond(c, "", markup.SpeakText(text))
}

// tenantFor resolves the owning tenant of a flow. Queue entries made here
// must land under the same tenant key the engine reads occupancy from.
func (s *Server) tenantFor(c *gin.Context, flowID string) string {
	if s.repo == nil {
		return ""
	}
	f, err := s.repo.GetFlow(c.Request.Context(), flowID)
	if err != nil {
		s.logger.Warn("flow lookup for tenant scope failed", "flow", flowID, "error", err)
		return ""
	}
	return f.OwnerID
}

func (s *Server) respond(c *gin.Context, tenant string, body *markup.Response) {
	provider := s.defaultProvider
	if tenant != "" && s.tenants != nil {
		if p, err := s.tenants.Provider(c.Request.Context(), tenant); err != nil {
			s.logger.Error("tenant provider lookup failed", "tenant", tenant, "error", err)
		} else if p != "" {
			provider = p
		}
	}

	dialect := markup.ForProvider(provider)
	rendered, err := dialect.Render(body)
	if err != nil {
		s.logger.Error("markup render failed", "provider", provider, "error", err)
		rendered = failsafeMarkup
	}
	c.Data(http.StatusOK, dialect.ContentType(), []byte(rendered))
}
