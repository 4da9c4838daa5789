package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/id"
	"github.com/bitcoinworld/arcade-server/internal/idempotency"
	"github.com/bitcoinworld/arcade-server/internal/ratelimit"
	"github.com/bitcoinworld/arcade-server/internal/realtime"
	"github.com/bitcoinworld/arcade-server/internal/store"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

// DefaultLeaderboardSize is how many entries a submission response and its
// broadcast leaderboards carry.
const DefaultLeaderboardSize = 10

// settleTimeout bounds the work done after a record is stored, which no
// longer follows the request's cancellation.
const settleTimeout = 15 * time.Second

// SubmitScoreInput is the body of POST /scores/submit. Score and Points are
// pointers so a missing field is told apart from zero.
type SubmitScoreInput struct {
	GameType domain.GameType `json:"gameType" validate:"required,gametype"`
	Score    *int64          `json:"score" validate:"required,gte=0"`
	Points   *int64          `json:"points" validate:"required,gte=0"`
	GameData map[string]any  `json:"gameData,omitempty"`

	// IdempotencyKey comes from the Idempotency-Key header.
	IdempotencyKey string `json:"-"`
}

// SubmitLeaderboards are the refreshed views returned with a submission.
type SubmitLeaderboards struct {
	Overall        []domain.OverallEntry   `json:"overall"`
	Game           []domain.GameEntry      `json:"game"`
	GameHighScores []domain.HighScoreEntry `json:"gameHighScores"`
}

// SubmitResult is the synchronous response to a submission. View fields are
// nil when their recomputation failed; the record itself is always durable.
type SubmitResult struct {
	Message         string                 `json:"message"`
	Score           *domain.ScoreRecord    `json:"score"`
	User            *domain.PlayerSummary  `json:"user,omitempty"`
	UserGameStats   domain.UserGameStats   `json:"userGameStats,omitempty"`
	GlobalGameStats domain.GlobalGameStats `json:"globalGameStats,omitempty"`
	Leaderboards    SubmitLeaderboards     `json:"leaderboards"`
	NewTotalPoints  *int64                 `json:"newTotalPoints,omitempty"`
	Replayed        bool                   `json:"replayed,omitempty"`
}

// ScoreHistory is one page of a user's records, newest first.
type ScoreHistory struct {
	Scores     []*domain.ScoreRecord `json:"scores"`
	Pagination domain.Pagination     `json:"pagination"`
}

// ScoreServiceOptions carries the optional collaborators of a ScoreService.
type ScoreServiceOptions struct {
	// Ledger enables Idempotency-Key handling. Nil ignores the header.
	Ledger idempotency.Ledger
	// Limiter throttles submissions per user. Nil disables throttling.
	Limiter *ratelimit.KeyedRateLimiter
	// Publisher receives the event batch of each submission. Nil discards it.
	Publisher realtime.Publisher
	// LeaderboardSize is the top N returned and broadcast. Zero uses the default.
	LeaderboardSize int
	// Now overrides the clock.
	Now func() time.Time
}

// ScoreService coordinates score submission: validate, append the record,
// fold it into the player aggregate, recompute views and fan them out.
type ScoreService struct {
	store        store.Store
	stats        *StatsService
	leaderboards *LeaderboardService
	validator    *validation.Validator
	ledger       idempotency.Ledger
	limiter      *ratelimit.KeyedRateLimiter
	publisher    realtime.Publisher
	topN         int
	now          func() time.Time
	logger       *slog.Logger
}

// NewScoreService creates a new score service.
func NewScoreService(
	store store.Store,
	stats *StatsService,
	leaderboards *LeaderboardService,
	validator *validation.Validator,
	opts ScoreServiceOptions,
	logger *slog.Logger,
) *ScoreService {
	if opts.Publisher == nil {
		opts.Publisher = realtime.NoopPublisher{}
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = DefaultLeaderboardSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ScoreService{
		store:        store,
		stats:        stats,
		leaderboards: leaderboards,
		validator:    validator,
		ledger:       opts.Ledger,
		limiter:      opts.Limiter,
		publisher:    opts.Publisher,
		topN:         opts.LeaderboardSize,
		now:          opts.Now,
		logger:       logger,
	}
}

// Submit records one completed game for the caller.
//
// Only validation, throttling, an in-flight idempotency key and a failed
// append fail the call. Once the record is stored nothing is rolled back:
// aggregate, view and fan-out failures are logged and the affected result
// fields are left empty.
func (s *ScoreService) Submit(ctx context.Context, identity domain.Identity, input SubmitScoreInput) (*SubmitResult, error) {
	if identity.Anonymous() {
		return nil, errors.Unauthorized("Authentication required")
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if !s.limiter.Allow(identity.UserID) {
		return nil, errors.RateLimited("Too many score submissions, slow down")
	}

	log := s.logger.With("user_id", identity.UserID, "game_type", string(input.GameType))

	idemKey, replay, err := s.reserveKey(ctx, identity, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		log.Info("replayed submission", "score_id", replay.Score.ID)
		return replay, nil
	}

	scoreID, err := id.Generate(id.PrefixScore)
	if err != nil {
		s.releaseKey(ctx, identity.UserID, idemKey, log)
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to generate score id")
	}

	rec := &domain.ScoreRecord{
		ID:            scoreID,
		UserID:        identity.UserID,
		WalletAddress: identity.WalletAddress,
		GameType:      input.GameType,
		Score:         *input.Score,
		Points:        *input.Points,
		GameData:      input.GameData,
		PlayedAt:      s.now().UTC(),
	}

	if err := s.store.AppendScore(ctx, rec); err != nil {
		s.releaseKey(ctx, identity.UserID, idemKey, log)
		log.Error("failed to store score", "error", err)
		return nil, errors.Persistence(err, "Failed to save score")
	}

	// The record is durable. Finish the aggregate and ledger even if the
	// caller has gone away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if idemKey != "" {
		if err := s.ledger.Complete(ctx, identity.UserID, idemKey, rec.ID); err != nil {
			log.Warn("failed to complete idempotency key", "error", err)
		}
	}

	found, err := s.store.ApplyScore(ctx, identity.UserID, rec)
	switch {
	case err != nil:
		log.Error("aggregate update failed", "score_id", rec.ID, "error", err)
	case !found:
		log.Warn("no player aggregate for score", "score_id", rec.ID)
	}

	result := s.recompute(ctx, rec, log)
	result.Message = "Score submitted successfully"
	result.Score = rec

	s.publish(identity, rec, result)

	log.Info("score submitted",
		"score_id", rec.ID,
		"score", rec.Score,
		"points", rec.Points)

	return result, nil
}

// recompute refreshes every derived view concurrently. Each failure is
// logged and leaves only its own field empty.
func (s *ScoreService) recompute(ctx context.Context, rec *domain.ScoreRecord, log *slog.Logger) *SubmitResult {
	result := &SubmitResult{}
	top := domain.PageRequest{Page: 1, Size: s.topN}

	var g errgroup.Group
	run := func(view string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				log.Error("failed to recompute view", "view", view, "error", err)
			}
			return nil
		})
	}

	run("user", func() error {
		player, err := s.store.GetPlayer(ctx, rec.UserID)
		if err != nil {
			return err
		}
		result.User = player.Summary()
		total := player.TotalPoints
		result.NewTotalPoints = &total
		return nil
	})
	run("user_game_stats", func() error {
		stats, err := s.stats.UserGameStats(ctx, rec.UserID)
		result.UserGameStats = stats
		return err
	})
	run("global_game_stats", func() error {
		stats, err := s.stats.GlobalGameStats(ctx)
		result.GlobalGameStats = stats
		return err
	})
	run("overall_leaderboard", func() error {
		lb, err := s.leaderboards.Overall(ctx, top)
		if err != nil {
			return err
		}
		result.Leaderboards.Overall = lb.Leaderboard
		return nil
	})
	run("game_leaderboard", func() error {
		lb, err := s.leaderboards.Game(ctx, rec.GameType, top)
		if err != nil {
			return err
		}
		result.Leaderboards.Game = lb.Leaderboard
		return nil
	})
	run("game_highscores", func() error {
		lb, err := s.leaderboards.GameHighScores(ctx, rec.GameType, top)
		if err != nil {
			return err
		}
		result.Leaderboards.GameHighScores = lb.Leaderboard
		return nil
	})

	_ = g.Wait()
	return result
}

// publish emits the submission's events as one batch: private events for
// the submitter first, then the public views that were recomputed.
func (s *ScoreService) publish(identity domain.Identity, rec *domain.ScoreRecord, result *SubmitResult) {
	var batch []realtime.Delivery

	if result.User != nil {
		batch = append(batch, realtime.ToUser(identity, realtime.NewUserUpdatedEvent(result.User, result.UserGameStats)))
	}
	batch = append(batch,
		realtime.ToUser(identity, realtime.NewScoresRefreshEvent(rec.GameType)),
		realtime.Delivery{Channel: realtime.Broadcast, Event: realtime.NewScoreCreatedEvent(rec)},
	)
	if result.Leaderboards.Overall != nil {
		batch = append(batch, realtime.Delivery{
			Channel: realtime.Broadcast,
			Event:   realtime.NewOverallLeaderboardEvent(result.Leaderboards.Overall),
		})
	}
	if result.Leaderboards.Game != nil {
		batch = append(batch, realtime.Delivery{
			Channel: realtime.Broadcast,
			Event:   realtime.NewGameScoresEvent(rec.GameType, result.Leaderboards.Game),
		})
	}
	if result.Leaderboards.GameHighScores != nil {
		batch = append(batch, realtime.Delivery{
			Channel: realtime.Broadcast,
			Event:   realtime.NewGameLeaderboardEvent(rec.GameType, result.Leaderboards.GameHighScores),
		})
	}
	if result.GlobalGameStats != nil {
		batch = append(batch, realtime.Delivery{
			Channel: realtime.Broadcast,
			Event:   realtime.NewGameStatsEvent(result.GlobalGameStats),
		})
	}

	s.publisher.Publish(batch...)
}

// reserveKey claims the idempotency key when the ledger is enabled. A key
// that already completed yields the original record as a replay.
func (s *ScoreService) reserveKey(ctx context.Context, identity domain.Identity, raw string) (string, *SubmitResult, error) {
	if s.ledger == nil || raw == "" {
		return "", nil, nil
	}

	key, err := idempotency.NormalizeKey(raw)
	if err != nil {
		return "", nil, err
	}

	entry, reserved, err := s.ledger.Reserve(ctx, identity.UserID, key)
	if err != nil {
		return "", nil, err
	}
	if reserved {
		return key, nil, nil
	}
	if entry.State != idempotency.StateDone {
		return "", nil, errors.Conflict("A submission with this Idempotency-Key is still in progress")
	}

	rec, err := s.store.GetScore(ctx, entry.ScoreID)
	if err != nil {
		return "", nil, fmt.Errorf("load replayed score: %w", err)
	}
	replay := &SubmitResult{
		Message:  "Score already submitted",
		Score:    rec,
		Replayed: true,
	}
	if player, err := s.store.GetPlayer(ctx, identity.UserID); err == nil {
		replay.User = player.Summary()
		total := player.TotalPoints
		replay.NewTotalPoints = &total
	}
	return "", replay, nil
}

func (s *ScoreService) releaseKey(ctx context.Context, userID, key string, log *slog.Logger) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	if err := s.ledger.Release(ctx, userID, key); err != nil {
		log.Warn("failed to release idempotency key", "error", err)
	}
}

// History returns one page of the user's records, newest first. An empty
// game type lists every game.
func (s *ScoreService) History(ctx context.Context, userID string, game domain.GameType, page domain.PageRequest) (*ScoreHistory, error) {
	if game != "" && !game.Valid() {
		return nil, errors.InvalidInput("Invalid game type")
	}
	page = page.Normalize(domain.DefaultHistoryPageSize)

	records, total, err := s.store.ListUserScores(ctx, store.ScoreFilter{UserID: userID, GameType: game}, page)
	if err != nil {
		return nil, fmt.Errorf("list user scores: %w", err)
	}
	if records == nil {
		records = []*domain.ScoreRecord{}
	}

	return &ScoreHistory{
		Scores:     records,
		Pagination: domain.NewPagination(page, total),
	}, nil
}
