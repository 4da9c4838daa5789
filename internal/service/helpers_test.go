package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/realtime"
	"github.com/bitcoinworld/arcade-server/internal/store"
	"github.com/bitcoinworld/arcade-server/internal/store/sqlite"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

const (
	walletA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	walletB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	walletC = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
)

// recordingPublisher keeps every published batch.
type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]realtime.Delivery
}

func (p *recordingPublisher) Publish(deliveries ...realtime.Delivery) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, deliveries)
}

func (p *recordingPublisher) Batches() [][]realtime.Delivery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]realtime.Delivery(nil), p.batches...)
}

func eventTypes(batch []realtime.Delivery) []realtime.EventType {
	types := make([]realtime.EventType, len(batch))
	for i, d := range batch {
		types[i] = d.Event.Type
	}
	return types
}

// faultyStore fails selected operations of a real store.
type faultyStore struct {
	store.Store
	appendErr error
	applyErr  error
	topErr    error
}

func (f *faultyStore) AppendScore(ctx context.Context, rec *domain.ScoreRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.Store.AppendScore(ctx, rec)
}

func (f *faultyStore) ApplyScore(ctx context.Context, userID string, rec *domain.ScoreRecord) (bool, error) {
	if f.applyErr != nil {
		return false, f.applyErr
	}
	return f.Store.ApplyScore(ctx, userID, rec)
}

func (f *faultyStore) TopGameScore(ctx context.Context, game domain.GameType) (*domain.ScoreRecord, error) {
	if f.topErr != nil {
		return nil, f.topErr
	}
	return f.Store.TopGameScore(ctx, game)
}

// hangupStore cancels the request right after a record is stored.
type hangupStore struct {
	store.Store
	cancel context.CancelFunc
}

func (h *hangupStore) AppendScore(ctx context.Context, rec *domain.ScoreRecord) error {
	err := h.Store.AppendScore(ctx, rec)
	h.cancel()
	return err
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "arcade.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stepClock returns strictly increasing times one second apart.
func stepClock() func() time.Time {
	var mu sync.Mutex
	next := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		next = next.Add(time.Second)
		return next
	}
}

type testEnv struct {
	store        store.Store
	publisher    *recordingPublisher
	stats        *StatsService
	leaderboards *LeaderboardService
	scores       *ScoreService
}

func newTestEnv(t *testing.T, s store.Store, opts ScoreServiceOptions) *testEnv {
	t.Helper()
	log := logger.Discard()
	pub := &recordingPublisher{}
	if opts.Publisher == nil {
		opts.Publisher = pub
	}
	if opts.Now == nil {
		opts.Now = stepClock()
	}
	stats := NewStatsService(s, log)
	leaderboards := NewLeaderboardService(s, log)
	return &testEnv{
		store:        s,
		publisher:    pub,
		stats:        stats,
		leaderboards: leaderboards,
		scores:       NewScoreService(s, stats, leaderboards, validation.New(), opts, log),
	}
}

func createPlayer(t *testing.T, s store.Store, wallet string) domain.Identity {
	t.Helper()
	p := domain.NewPlayer("player-"+wallet[2:10], wallet, time.Now().UTC())
	require.NoError(t, s.CreatePlayer(context.Background(), p))
	return domain.Identity{UserID: p.ID, WalletAddress: p.WalletAddress}
}

func i64(v int64) *int64 { return &v }

func submit(t *testing.T, svc *ScoreService, who domain.Identity, game domain.GameType, score int64) *SubmitResult {
	t.Helper()
	res, err := svc.Submit(context.Background(), who, SubmitScoreInput{
		GameType: game,
		Score:    i64(score),
		Points:   i64(score * 10),
	})
	require.NoError(t, err)
	return res
}
