package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/id"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/store"
	"github.com/bitcoinworld/arcade-server/internal/store/storetest"
)

// Set ARCADE_TEST_MONGO_URI (e.g. mongodb://localhost:27017) to run these.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("ARCADE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ARCADE_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, uri, "arcade_test_"+id.MustGenerate("db")[3:11], logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Drop(context.Background())
		_ = s.Close()
	})
	return s
}

func TestStoreBehavior(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
}
