// Package gateway wires the channels, the message bus, the scheduler, and
// the query engine into the long-running service.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"unicode/utf8"

	"github.com/stellarlinkco/finclaw/internal/agent"
	"github.com/stellarlinkco/finclaw/internal/bus"
	"github.com/stellarlinkco/finclaw/internal/channel"
	"github.com/stellarlinkco/finclaw/internal/config"
	"github.com/stellarlinkco/finclaw/internal/cron"
	"github.com/stellarlinkco/finclaw/internal/knowledge"
	"github.com/stellarlinkco/finclaw/internal/provider"
	"github.com/stellarlinkco/finclaw/internal/session"
)

const refreshWatchlistMsg = "__internal:market:refresh-watchlist"

// Options for creating a Gateway.
type Options struct {
	SignalChan chan os.Signal // for testing signal handling
}

type Gateway struct {
	cfg      *config.Config
	bus      *bus.MessageBus
	agent    *agent.Agent
	store    *session.Store
	kb       *knowledge.Store
	channels *channel.ChannelManager
	cron     *cron.Service

	mu       sync.Mutex
	sessions map[string]string // chat key -> session id

	signalChan chan os.Signal
}

// New creates a Gateway with default options.
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing.
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{
		cfg:        cfg,
		sessions:   make(map[string]string),
		signalChan: opts.SignalChan,
	}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	persist, err := session.NewFileStore(cfg.SessionDir())
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	g.store = session.NewStore(persist, cfg.Session.MaxHistory)

	// Providers are all optional; the engine degrades per capability.
	var llm provider.LLMClient
	if c, err := provider.NewLLMClient(cfg); err != nil {
		log.Printf("[gateway] llm provider unavailable: %v", err)
	} else {
		llm = c
	}
	var market provider.MarketClient
	if c, err := provider.NewMarketClient(cfg); err != nil {
		log.Printf("[gateway] market provider unavailable: %v", err)
	} else {
		market = c
	}
	var search provider.SearchClient
	if c, err := provider.NewSearchClient(cfg); err != nil {
		log.Printf("[gateway] search provider unavailable: %v", err)
	} else {
		search = c
	}

	var embedder knowledge.Embedder
	if cfg.Knowledge.Embedding.Enabled {
		e, err := knowledge.NewEmbedder(cfg)
		if err != nil {
			log.Printf("[gateway] embedder unavailable: %v", err)
		} else {
			embedder = e
		}
	}
	kb, err := knowledge.NewStore(cfg.KnowledgeDBPath(), embedder)
	if err != nil {
		log.Printf("[gateway] knowledge store unavailable: %v", err)
	} else {
		g.kb = kb
	}

	g.agent = agent.New(g.store, agent.Options{
		LLM:       llm,
		Market:    market,
		Search:    search,
		Knowledge: g.kb,
		TopK:      cfg.Knowledge.TopK,
	})

	cronStorePath := filepath.Join(config.ConfigDir(), "data", "cron", "jobs.json")
	g.cron = cron.NewService(cronStorePath)
	g.cron.OnJob = g.executeCronJob

	chMgr, err := channel.NewChannelManager(cfg.Channels, cfg.Gateway, g.bus)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	if ch, ok := chMgr.Channel("webui"); ok {
		if web, ok := ch.(*channel.WebUIChannel); ok {
			web.SetSessionAPI(g.agent)
		}
	}

	return g, nil
}

// executeCronJob runs one scheduled job. Internal jobs are dispatched by
// message tag; everything else is a stored user query, answered in the
// job's own session and optionally delivered to a channel.
func (g *Gateway) executeCronJob(job cron.CronJob) (string, error) {
	ctx := context.Background()

	if job.Payload.Message == refreshWatchlistMsg {
		warmed := g.agent.WarmQuotes(ctx)
		return fmt.Sprintf("refreshed %d watchlist quotes", warmed), nil
	}

	sessionID := g.sessionFor("cron:" + job.ID)
	result := g.agent.ProcessQuery(ctx, job.Payload.Message, sessionID)

	if job.Payload.Deliver && job.Payload.Channel != "" {
		g.bus.Outbound <- bus.OutboundMessage{
			Channel: job.Payload.Channel,
			ChatID:  job.Payload.To,
			Content: result,
		}
	}
	return result, nil
}

// ensureInternalJobs registers the hourly watchlist quote refresh if it
// is not already stored.
func (g *Gateway) ensureInternalJobs() error {
	const (
		refreshName = "__internal_market_refresh_watchlist"
		refreshExpr = "0 0 * * * *"
	)

	for _, job := range g.cron.ListJobs() {
		if job.Payload.Message == refreshWatchlistMsg || job.Name == refreshName {
			return nil
		}
	}
	_, err := g.cron.AddJob(refreshName, cron.Schedule{Kind: "cron", Expr: refreshExpr}, cron.Payload{Message: refreshWatchlistMsg})
	return err
}

// sessionFor maps a chat key to its session, creating one on first use.
func (g *Gateway) sessionFor(chatKey string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.sessions[chatKey]; ok {
		return id
	}
	id := g.agent.CreateSession()
	g.sessions[chatKey] = id
	log.Printf("[gateway] new session %s for chat %s", id, chatKey)
	return id
}

// Jobs exposes the scheduler for CLI management commands.
func (g *Gateway) Jobs() *cron.Service {
	return g.cron
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.cron.Start(ctx); err != nil {
		log.Printf("[gateway] cron start warning: %v", err)
	}
	if err := g.ensureInternalJobs(); err != nil {
		log.Printf("[gateway] ensure internal jobs warning: %v", err)
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] running on %s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			sessionID := g.sessionFor(msg.ChatKey())
			result := g.agent.ProcessQuery(ctx, msg.Content, sessionID)

			if result != "" {
				g.bus.Outbound <- bus.OutboundMessage{
					Channel: msg.Channel,
					ChatID:  msg.ChatID,
					Content: result,
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	_ = g.channels.StopAll()
	if g.kb != nil {
		if err := g.kb.Close(); err != nil {
			log.Printf("[gateway] close knowledge store warning: %v", err)
		}
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
