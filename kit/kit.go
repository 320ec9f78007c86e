// Package kit assembles the toolkit's components into a ready-to-use
// service, either from functional options or from a config.Config.
package kit

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"xpkit/adapters/jsonfile"
	mem "xpkit/adapters/memory"
	redisAdapter "xpkit/adapters/redis"
	sqlxAdapter "xpkit/adapters/sqlx"
	"xpkit/boost"
	"xpkit/config"
	"xpkit/core"
	"xpkit/engine"
	"xpkit/leaderboard"
	"xpkit/realtime"
	"xpkit/rules"
	"xpkit/streak"
)

// Option configures the service builder.
type Option func(*builder)

type builder struct {
	storage engine.Storage
	curve   *core.LevelingCurve
	limiter *rules.Limiter
	boosts  *boost.Manager
	mode    engine.DispatchMode
	hub     *realtime.Hub
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(b *builder) { b.storage = s } }

// WithCurve sets the leveling curve.
func WithCurve(c *core.LevelingCurve) Option { return func(b *builder) { b.curve = c } }

// WithLimiter enables anti-cheat rate limiting.
func WithLimiter(l *rules.Limiter) Option { return func(b *builder) { b.limiter = l } }

// WithBoosts enables XP multiplier boosts.
func WithBoosts(m *boost.Manager) Option { return func(b *builder) { b.boosts = m } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(b *builder) { b.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(b *builder) { b.hub = h } }

// New builds a configured XPService. If not provided, defaults are used:
//   - storage: in-memory
//   - curve: linear, 100 XP per level, 100 levels
//   - dispatch: async
func New(opts ...Option) *engine.XPService {
	b := &builder{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(b)
	}
	if b.storage == nil {
		b.storage = mem.New()
	}
	if b.curve == nil {
		curve, err := core.NewLinearCurve(100, 100)
		if err != nil {
			panic(err) // defaults are statically valid
		}
		b.curve = curve
	}
	bus := engine.NewEventBus(b.mode)
	var svcOpts []engine.ServiceOption
	if b.limiter != nil {
		svcOpts = append(svcOpts, engine.WithLimiter(b.limiter))
	}
	if b.boosts != nil {
		svcOpts = append(svcOpts, engine.WithBoosts(b.boosts))
	}
	svc := engine.NewXPService(b.storage, bus, b.curve, svcOpts...)
	if b.hub != nil {
		b.hub.Attach(bus)
	}
	return svc
}

// Toolkit bundles everything FromConfig assembles. Service is always set;
// Limiter, Boosts, Streaks, and Leaderboard are nil when the config leaves
// the matching section empty or the storage adapter cannot back them.
type Toolkit struct {
	Config      *config.Config
	Logger      *slog.Logger
	Service     *engine.XPService
	Limiter     *rules.Limiter
	Boosts      *boost.Manager
	Streaks     *streak.Tracker
	Leaderboard *leaderboard.Manager
}

// FromConfig builds the full toolkit from configuration.
func FromConfig(cfg *config.Config) (*Toolkit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogging(cfg)

	storage, err := setupStorage(cfg)
	if err != nil {
		return nil, err
	}

	curve, err := buildCurve(cfg.Leveling)
	if err != nil {
		return nil, err
	}

	mode := engine.DispatchSync
	if cfg.Events.Dispatch == "async" {
		mode = engine.DispatchAsync
	}
	bus := engine.NewEventBus(mode)

	tk := &Toolkit{Config: cfg, Logger: logger}

	var svcOpts []engine.ServiceOption
	if limiter, err := buildLimiter(cfg.Rules, storage, bus); err != nil {
		return nil, err
	} else if limiter != nil {
		tk.Limiter = limiter
		svcOpts = append(svcOpts, engine.WithLimiter(limiter))
	}

	if bstore, ok := storage.(boost.Store); ok {
		tk.Boosts = boost.NewManager(boost.Config{
			MaxStackable:  cfg.Boosts.MaxStackable,
			MaxMultiplier: cfg.Boosts.MaxMultiplier,
		}, bstore, boost.WithEventSink(bus))
		svcOpts = append(svcOpts, engine.WithBoosts(tk.Boosts))
	}

	if sstore, ok := storage.(streak.Store); ok && len(cfg.Streaks) > 0 {
		defs := make([]streak.Definition, 0, len(cfg.Streaks))
		for _, sc := range cfg.Streaks {
			ms := make([]streak.Milestone, 0, len(sc.Milestones))
			for _, m := range sc.Milestones {
				ms = append(ms, streak.Milestone{Days: m.Days, XPBonus: m.XPBonus, Badge: core.Badge(m.Badge)})
			}
			def, err := streak.NewDefinition(sc.ID, streak.Period(sc.Period), sc.GracePeriod, ms)
			if err != nil {
				return nil, fmt.Errorf("streak %q: %w", sc.ID, err)
			}
			defs = append(defs, def)
		}
		tk.Streaks = streak.NewTracker(defs, sstore, streak.WithEventSink(bus))
	}

	if len(cfg.Leaderboard.Tiers) > 0 {
		lb, err := buildLeaderboard(cfg.Leaderboard, bus)
		if err != nil {
			return nil, err
		}
		tk.Leaderboard = lb
	}

	tk.Service = engine.NewXPService(storage, bus, curve, svcOpts...)

	logger.Info("xpkit assembled",
		slog.String("storage", cfg.Storage.Adapter),
		slog.String("curve", cfg.Leveling.Kind),
		slog.String("dispatch", cfg.Events.Dispatch),
		slog.Bool("limiter", tk.Limiter != nil),
		slog.Bool("streaks", tk.Streaks != nil),
		slog.Bool("leaderboard", tk.Leaderboard != nil),
	)
	return tk, nil
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	return slog.New(handler)
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the appropriate storage adapter based on configuration.
func setupStorage(cfg *config.Config) (engine.Storage, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		return sqlxAdapter.New(cfg.Storage.SQL)
	case "file":
		return jsonfile.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

func buildCurve(lc config.LevelingConfig) (*core.LevelingCurve, error) {
	switch lc.Kind {
	case "linear":
		return core.NewLinearCurve(lc.BaseXP, lc.MaxLevel)
	case "exponential":
		return core.NewExponentialCurve(lc.BaseXP, lc.Multiplier, lc.MaxLevel)
	case "custom":
		return core.NewCustomCurve(lc.CustomThresholds, lc.MaxLevel)
	default:
		return nil, fmt.Errorf("unknown curve kind: %s", lc.Kind)
	}
}

func buildLimiter(rc config.RulesConfig, storage engine.Storage, bus *engine.EventBus) (*rules.Limiter, error) {
	if rc.MaxDailyXP == 0 && rc.MaxActionsPerHour == 0 && len(rc.Cooldowns) == 0 {
		return nil, nil
	}
	cooldowns := make(map[core.Action]time.Duration, len(rc.Cooldowns))
	for action, raw := range rc.Cooldowns {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("cooldown for %q: %w", action, err)
		}
		cooldowns[core.Action(action)] = d
	}
	opts := []rules.Option{rules.WithEventSink(bus)}
	if ws, ok := storage.(rules.WindowStore); ok {
		opts = append(opts, rules.WithStore(ws))
	}
	return rules.New(rules.Config{
		MaxDailyXP:        rc.MaxDailyXP,
		MaxActionsPerHour: rc.MaxActionsPerHour,
		Cooldowns:         cooldowns,
	}, opts...), nil
}

func buildLeaderboard(lc config.LeaderboardConfig, bus *engine.EventBus) (*leaderboard.Manager, error) {
	tiers := make([]leaderboard.Tier, 0, len(lc.Tiers))
	for _, t := range lc.Tiers {
		tiers = append(tiers, leaderboard.Tier{
			ID:            t.ID,
			Name:          t.Name,
			Icon:          t.Icon,
			MaxPercentile: t.MaxPercentile,
		})
	}
	set, err := leaderboard.NewTierSet(tiers...)
	if err != nil {
		return nil, err
	}
	periods := make([]leaderboard.Period, 0, len(lc.Periods))
	for _, p := range lc.Periods {
		periods = append(periods, leaderboard.Period(p))
	}
	defaultPeriod := leaderboard.Period(lc.DefaultPeriod)
	if lc.DefaultPeriod == "" && len(periods) > 0 {
		defaultPeriod = periods[len(periods)-1]
	}
	return leaderboard.NewManager(set, periods, defaultPeriod, leaderboard.WithEventSink(bus))
}
