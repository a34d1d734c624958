package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/metalagman/pathwise/internal/config"
	"github.com/metalagman/pathwise/internal/content"
	"github.com/metalagman/pathwise/internal/curriculum"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "pathwise.db")
	return cfg
}

func TestGraph_IsComplete(t *testing.T) {
	t.Parallel()

	require.NoError(t, fx.ValidateApp(Core(testConfig(t)), HTTP(), fx.NopLogger))
}

func TestCore_StorageWithoutProvider(t *testing.T) {
	t.Parallel()

	var (
		store   *content.Store
		records *curriculum.Store
	)
	app := fxtest.New(t, Core(testConfig(t)), fx.Populate(&store, &records), fx.NopLogger)
	app.RequireStart()
	defer app.RequireStop()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, model.RetrievedContext{SourceID: "https://a.example", Body: "cached"}))
	rc, ok := store.LookupCachedContent(ctx, "https://a.example")
	require.True(t, ok)
	assert.Equal(t, "cached", rc.Body)

	list, err := records.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
