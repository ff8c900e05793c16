package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	stored := logger.NewNop().With(logger.String("request_id", "abc"))
	fallback := logger.NewNop()

	ctx := logger.WithContext(context.Background(), stored)
	assert.Same(t, stored, logger.FromContext(ctx, fallback))
	assert.Same(t, fallback, logger.FromContext(context.Background(), fallback))
	assert.NotNil(t, logger.FromContext(context.Background(), nil))
}

func TestNewBuildsLogger(t *testing.T) {
	t.Parallel()

	log, err := logger.New(logger.Config{Level: "debug", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.With(logger.Int("n", 1)).Debug("built")
}
