package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/servermgr/internal/command"
	"github.com/loykin/servermgr/internal/config"
	"github.com/loykin/servermgr/internal/console"
	"github.com/loykin/servermgr/internal/cooldown"
	"github.com/loykin/servermgr/internal/discord"
	"github.com/loykin/servermgr/internal/event"
	"github.com/loykin/servermgr/internal/history"
	"github.com/loykin/servermgr/internal/history/factory"
	"github.com/loykin/servermgr/internal/logger"
	"github.com/loykin/servermgr/internal/metrics"
	"github.com/loykin/servermgr/internal/process"
	"github.com/loykin/servermgr/internal/relay"
	"github.com/loykin/servermgr/internal/resolver"
	"github.com/loykin/servermgr/internal/server"
	"github.com/loykin/servermgr/internal/supervisor"
)

const (
	// shutdownTimeout bounds each step of the shutdown sequence.
	shutdownTimeout = 10 * time.Second
	consoleGrace    = 2 * time.Second
)

// Chat is the remote chat connection.
type Chat interface {
	resolver.Client
	Open() error
	Close() error
}

// ChatFactory builds the chat connection. actions receive slash commands and
// onReady fires once the gateway is ready.
type ChatFactory func(token string, actions discord.Actions, onReady func()) (Chat, error)

func discordChat(log *slog.Logger) ChatFactory {
	return func(token string, actions discord.Actions, onReady func()) (Chat, error) {
		return discord.New(token, actions, discord.WithReadyHandler(onReady), discord.WithLogger(log))
	}
}

// App wires the supervisor to the console, the relay, the chat bot and the
// management listener.
type App struct {
	settings config.Settings
	bot      *config.Bot
	log      *slog.Logger

	bus        *event.Bus
	sup        *supervisor.Supervisor
	queue      *command.Queue
	resolver   *resolver.Resolver
	relay      *relay.Relay
	matcher    *cooldown.Matcher
	console    *console.Console
	chat       Chat
	history    history.Multi
	transcript io.WriteCloser
	httpSrv    *http.Server

	// ctx is cancelled when Run returns.
	ctx      context.Context
	cancel   context.CancelFunc
	// resolveCtx ends channel resolution at the start of shutdown.
	resolveCtx    context.Context
	resolveCancel context.CancelFunc
	quit     chan struct{}
	quitOnce sync.Once
}

type options struct {
	log            *slog.Logger
	chat           ChatFactory
	consoleOpts    []console.Option
	relayInterval  time.Duration
	retryAttempts  int
	retryDelay     time.Duration
	handleFactory  func(process.Spec) process.Handle
	registerer     prometheus.Registerer
	logConfig      logger.Config
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithChat replaces the discord connection.
func WithChat(f ChatFactory) Option {
	return func(o *options) { o.chat = f }
}

func WithConsole(opts ...console.Option) Option {
	return func(o *options) { o.consoleOpts = append(o.consoleOpts, opts...) }
}

func WithRelayInterval(d time.Duration) Option {
	return func(o *options) { o.relayInterval = d }
}

// WithResolveRetry overrides the channel resolution retry budget.
func WithResolveRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		o.retryAttempts = attempts
		o.retryDelay = delay
	}
}

func WithHandleFactory(f func(process.Spec) process.Handle) Option {
	return func(o *options) { o.handleFactory = f }
}

// WithRegisterer registers the metrics on r instead of the default registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithLogConfig supplies the rotation limits used for the output transcript.
func WithLogConfig(c logger.Config) Option {
	return func(o *options) { o.logConfig = c }
}

// New builds the application for spec. Nothing runs until Run.
func New(spec process.Spec, settings config.Settings, bot *config.Bot, opts ...Option) (*App, error) {
	o := options{
		log:           slog.Default(),
		relayInterval: relay.DefaultInterval,
		retryAttempts: resolver.DefaultAttempts,
		retryDelay:    resolver.DefaultDelay,
		registerer:    prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.chat == nil {
		o.chat = discordChat(o.log)
	}

	a := &App{
		settings: settings,
		bot:      bot,
		log:      o.log,
		bus:      event.NewBus(),
		quit:     make(chan struct{}),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.resolveCtx, a.resolveCancel = context.WithCancel(a.ctx)

	a.console = console.New(a, append([]console.Option{console.WithLogger(o.log)}, o.consoleOpts...)...)
	a.bus.Subscribe(a.console)

	chat, err := o.chat(bot.Token, a, a.onChatReady)
	if err != nil {
		a.cancel()
		return nil, fmt.Errorf("create chat client: %w", err)
	}
	a.chat = chat

	a.resolver = resolver.New(chat, bot.ChannelIDs(), bot,
		resolver.WithRetry(o.retryAttempts, o.retryDelay),
		resolver.WithFailureHandler(func(f resolver.Failure) { a.console.Handle(resolver.Message(f)) }),
		resolver.WithLogger(o.log),
	)
	a.relay = relay.New(a.resolver,
		relay.WithInterval(o.relayInterval),
		relay.WithFilter(relay.NewFilter(bot.LogStarter, bot.IgnoredLogs)),
		relay.WithFailureHandler(func(f relay.Failure) { a.console.Handle(f.Message()) }),
		relay.WithLogger(o.log),
	)
	a.bus.Subscribe(a.relay)

	if settings.OutputLogDir != "" {
		lc := o.logConfig
		lc.File.OutputDir = settings.OutputLogDir
		a.transcript = lc.OutputWriter(filepath.Base(spec.Path))
		a.bus.Subscribe(event.SinkFunc(a.writeTranscript))
	}

	sinks, err := factory.NewSinks(settings.HistoryDSN)
	if err != nil {
		o.log.Error("history disabled", "error", err)
	}
	a.history = sinks

	supOpts := []supervisor.Option{
		supervisor.WithExitHook(a.onExit),
		supervisor.WithLogger(o.log),
	}
	if len(a.history) > 0 {
		supOpts = append(supOpts, supervisor.WithHistory(a.history))
	}
	if o.handleFactory != nil {
		supOpts = append(supOpts, supervisor.WithHandleFactory(o.handleFactory))
	}
	a.sup = supervisor.New(spec, a.bus, supOpts...)

	a.queue = command.NewQueue(a.sup,
		command.WithResultHandler(a.onCommandResult),
		command.WithLogger(o.log),
	)

	a.matcher = a.loadMatcher()
	a.bus.Subscribe(event.SinkFunc(a.trigger))

	if err := metrics.Register(o.registerer); err != nil {
		o.log.Warn("metrics registration failed", "error", err)
	}
	if err := o.registerer.Register(metrics.NewProcessCollector(a.sup.PID)); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			o.log.Warn("process collector registration failed", "error", err)
		}
	}
	return a, nil
}

// loadMatcher reads the custom commands file. Any failure leaves the
// matcher inert.
func (a *App) loadMatcher() *cooldown.Matcher {
	cmds, err := config.LoadCommands(a.settings.CommandsConfPath)
	if err == nil {
		var m *cooldown.Matcher
		m, err = cooldown.New(cooldown.Config{
			Cooldown: cmds.CooldownDuration(),
			Pattern:  cmds.CommandStartRegex,
			Commands: cmds.Commands,
		})
		if err == nil {
			a.log.Info("custom commands loaded", "count", len(cmds.Commands), "cooldown", cmds.CooldownDuration())
			return m
		}
	}
	a.log.Warn("custom commands disabled", "path", a.settings.CommandsConfPath, "error", err)
	a.bus.Publish(event.Warn("Custom commands failed to load, the custom commands will not be available"))
	return cooldown.Inert()
}

// Bus is the event stream shown locally and relayed.
func (a *App) Bus() *event.Bus { return a.bus }

func (a *App) Supervisor() *supervisor.Supervisor { return a.sup }

// Run starts everything, blocks until the application quits and shuts down.
func (a *App) Run(ctx context.Context) error {
	defer context.AfterFunc(ctx, a.cancel)()
	defer a.cancel()

	uiDone := make(chan error, 1)
	go func() { uiDone <- a.console.Run(a.ctx) }()
	go a.queue.Run(a.ctx)

	if err := a.chat.Open(); err != nil {
		a.log.Error("chat connection failed", "error", err)
		a.console.Handle(event.Error(fmt.Sprintf("Couldn't connect to discord: %v", err)))
		a.resolver.Skip()
	}
	a.startManagement()
	a.Start()

	var err error
	uiStopped := false
	select {
	case err = <-uiDone:
		uiStopped = true
	case <-a.quit:
	case <-a.ctx.Done():
	}

	a.shutdown()
	a.cancel()
	if !uiStopped {
		select {
		case err = <-uiDone:
		case <-time.After(consoleGrace):
		}
	}
	return err
}

func (a *App) startManagement() {
	if a.settings.ManagementPort == 0 {
		a.bus.Publish(event.Warn("Couldn't parse the HTTP port for the management listener, the management interface will not be available"))
		return
	}
	router := server.NewRouter(a.queue, a.sup, metrics.Handler(), "")
	srv, err := server.NewServer(a.settings.ManagementPort, router)
	if err != nil {
		a.log.Error("management listener failed", "port", a.settings.ManagementPort, "error", err)
		a.bus.Publish(event.Error(fmt.Sprintf("Couldn't start the management listener: %v", err)))
		return
	}
	a.httpSrv = srv
	a.log.Info("management listener started", "addr", srv.Addr)
}

// shutdown stops the listener, announces the shutdown, flushes the relay,
// closes the chat and stops the server process, in that order. Pending
// channel resolution is abandoned so the flush goes to the channels resolved
// so far instead of waiting out the retries.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.resolveCancel()

	if err := server.Shutdown(ctx, a.httpSrv); err != nil {
		a.log.Warn("management listener shutdown", "error", err)
	}
	a.bus.Publish(event.Log("Shutting down"))
	if err := a.relay.Close(ctx); err != nil {
		a.log.Warn("final relay flush incomplete", "error", err, "pending", a.relay.Pending())
	}
	if err := a.chat.Close(); err != nil {
		a.log.Warn("chat close", "error", err)
	}
	if err := a.sup.Stop(); err != nil && !errors.Is(err, supervisor.ErrNotStarted) {
		a.log.Warn("server stop on shutdown", "error", err)
	}
	a.matcher.Stop()
	if err := a.history.Close(); err != nil {
		a.log.Warn("history close", "error", err)
	}
	if a.transcript != nil {
		_ = a.transcript.Close()
	}
}

// Quit asks Run to shut down. It is safe to call more than once.
func (a *App) Quit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// Start starts the server process and reports the result.
func (a *App) Start() { a.bus.Publish(supervisor.StartMessage(a.sup.Start())) }

// Stop stops the server process and reports the result.
func (a *App) Stop() { a.bus.Publish(supervisor.StopMessage(a.sup.Stop())) }

// Send queues a command received from the chat.
func (a *App) Send(text string) { a.submit(command.SourceChat, text) }

// Command queues a line typed at the console.
func (a *App) Command(text string) { a.submit(command.SourceConsole, text) }

// Special handles @-commands of the console.
func (a *App) Special(token string) {
	switch token {
	case "start":
		a.Start()
	case "stop":
		a.Stop()
	case "quit":
		a.Quit()
	default:
		a.bus.Publish(event.Warn(fmt.Sprintf("Unknown command '%s'", token)))
	}
}

func (a *App) submit(src command.Source, text string) {
	if err := a.queue.Submit(a.ctx, src, text); err != nil {
		a.log.Warn("command rejected", "source", src.String(), "error", err)
		a.bus.Publish(supervisor.SendInputMessage(err))
	}
}

func (a *App) onCommandResult(_ command.Command, err error) {
	if err != nil {
		a.bus.Publish(supervisor.SendInputMessage(err))
	}
}

func (a *App) onChatReady() {
	go a.resolver.Run(a.resolveCtx)
}

// trigger feeds stdout lines to the custom command matcher.
func (a *App) trigger(e event.Event) {
	if e.Source != event.SourceStdout {
		return
	}
	if resp, ok := a.matcher.Process(e.Text); ok {
		if err := a.queue.TrySubmit(command.SourceTrigger, resp); err != nil {
			a.log.Warn("custom command dropped", "error", err)
		}
	}
}

func (a *App) writeTranscript(e event.Event) {
	if _, err := io.WriteString(a.transcript, e.Line()+"\n"); err != nil {
		a.log.Debug("transcript write failed", "error", err)
	}
}

func (a *App) onExit(_ process.Exit, stopped bool) {
	if a.settings.QuitOnExit && !stopped {
		a.Quit()
	}
}
