package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/gobblets/game/clock"
	"github.com/wricardo/gobblets/game/engine"
)

var (
	// ErrConfigNotFound is returned when a preset name does not resolve
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrSessionNotFound is returned when no live session has the given ID
	ErrSessionNotFound = errors.New("session not found")
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithNotifier pushes every session update to n
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) { s.notifier = n }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClockInterval sets the real-time cadence of session clocks
func WithClockInterval(d time.Duration) Option {
	return func(s *gameServiceImpl) { s.clockInterval = d }
}

// WithResultStore archives every finished match in store
func WithResultStore(store ResultStore) Option {
	return func(s *gameServiceImpl) { s.results = store }
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions      SessionManager
	configs       ConfigManager
	notifier      Notifier
	results       ResultStore
	logger        *zap.Logger
	clockInterval time.Duration
	mu            sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:      sessions,
		configs:       configs,
		logger:        zap.NewNop(),
		clockInterval: clock.DefaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session and starts its clock
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found, available configs: %v: %w", configName, configIDs, err)
				}
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.ConfigID = configName
	if sess.ConfigID == "" {
		sess.ConfigID = s.getConfigID(config.Name)
	}

	if err := s.wireSession(sess); err != nil {
		sess.Close()
		_ = s.sessions.Delete(sess.ID)
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("config", sess.ConfigID),
		zap.Bool("timed", sess.Engine.Timed()),
	)

	return s.sessionInfo(sess), nil
}

// wireSession subscribes the session observers and starts the clock
func (s *gameServiceImpl) wireSession(sess *Session) error {
	sess.OnClose(sess.Engine.Subscribe(newEventLog(sess)))

	if s.notifier != nil {
		id := sess.ID
		notifier := s.notifier
		sess.OnClose(sess.Engine.Subscribe(engine.ObserverFunc(func(snap engine.Snapshot, update engine.ClientUpdate) {
			notifier.NotifyUpdate(id, snap, update)
		})))
	}

	if s.results != nil {
		sess.OnClose(sess.Engine.Subscribe(newResultRecorder(sess, s.results, s.logger)))
	}

	if !sess.Engine.Timed() {
		return nil
	}

	opts := []clock.Option{
		clock.WithInterval(s.clockInterval),
		clock.WithLogger(s.logger.With(zap.String("session", sess.ID))),
	}
	if s.notifier != nil {
		id := sess.ID
		notifier := s.notifier
		opts = append(opts, clock.WithTickHook(func(snap engine.Snapshot) {
			notifier.NotifyClock(id, snap)
		}))
	}
	return sess.AttachClock(context.Background(), clock.NewScheduler(sess.Engine, opts...))
}

func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		GameState:      sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	_ = s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session and stops its clock
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// SelectCell forwards a board click to the session engine
func (s *gameServiceImpl) SelectCell(ctx context.Context, sessionID string, row, col int) (*CommandResult, error) {
	return s.command(sessionID, func(e *engine.GameEngine) (engine.ClientUpdate, error) {
		return e.SelectBoardCell(row, col)
	})
}

// SelectReserve forwards a reserve click to the session engine
func (s *gameServiceImpl) SelectReserve(ctx context.Context, sessionID string, slot int) (*CommandResult, error) {
	return s.command(sessionID, func(e *engine.GameEngine) (engine.ClientUpdate, error) {
		return e.SelectReserveSlot(slot)
	})
}

func (s *gameServiceImpl) command(sessionID string, run func(*engine.GameEngine) (engine.ClientUpdate, error)) (*CommandResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	_ = s.sessions.UpdateLastAccessed(sessionID)

	update, err := run(sess.Engine)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Snapshot()
	return &CommandResult{
		Message:   update.Message,
		Rebuild:   update.Rebuild,
		Rejected:  update.Rejected(),
		GameOver:  state.GameOver(),
		GameState: state,
	}, nil
}

// GetGameState returns the current snapshot of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Snapshot()
	return &state, nil
}

// GetCellStack returns the full stack on one board cell
func (s *gameServiceImpl) GetCellStack(ctx context.Context, sessionID string, row, col int) (*CellStackInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	pieces, err := sess.Engine.CellStack(row, col)
	if err != nil {
		return nil, err
	}

	return &CellStackInfo{Row: row, Col: col, Pieces: pieces, Height: len(pieces)}, nil
}

// GetEventHistory retrieves paginated event history for a session
func (s *gameServiceImpl) GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Events()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var events []GameEvent
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = history[start:end]
	}

	if events == nil {
		events = []GameEvent{}
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// ListResults returns archived match results, or none without a store
func (s *gameServiceImpl) ListResults(ctx context.Context) ([]*MatchResult, error) {
	if s.results == nil {
		return []*MatchResult{}, nil
	}
	return s.results.ListResults()
}

// NewMatchResult builds the archive record of a finished session
func NewMatchResult(sess *Session, snap engine.Snapshot, finishedAt time.Time) *MatchResult {
	result := &MatchResult{
		ID:         uuid.NewString(),
		SessionID:  sess.ID,
		ConfigName: sess.ConfigID,
		TimeLimit:  sess.Config.TimeLimit,
		Winner:     snap.Winner,
		Reason:     snap.WinReason,
		Moves:      snap.Moves,
		StartedAt:  sess.CreatedAt,
		FinishedAt: finishedAt,
	}
	for i, p := range snap.Players {
		result.Players[i] = p.Name
		if p.ID == snap.Winner {
			result.WinnerName = p.Name
		}
	}
	if result.TimeLimit == "" {
		result.TimeLimit = engine.NoTimeLimit
	}
	return result
}
