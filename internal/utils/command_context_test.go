package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithRepositoryPathStoresTrimmedValue(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithRepositoryPath(context.Background(), "  /srv/widgets ")

	repositoryPath, exists := accessor.RepositoryPath(enriched)
	require.True(t, exists)
	require.Equal(t, "/srv/widgets", repositoryPath)
}

func TestWithRepositoryPathSkipsEmptyValues(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithRepositoryPath(context.Background(), "   ")

	_, exists := accessor.RepositoryPath(enriched)
	require.False(t, exists)
}

func TestWithEnvironmentNormalizesCase(t *testing.T) {
	accessor := NewCommandContextAccessor()
	enriched := accessor.WithEnvironment(context.Background(), " Production ")

	environment, exists := accessor.Environment(enriched)
	require.True(t, exists)
	require.Equal(t, "production", environment)
}

func TestWithLogLevelSkipsBlankValues(t *testing.T) {
	accessor := NewCommandContextAccessor()
	base := accessor.WithLogLevel(context.Background(), "debug")
	enriched := accessor.WithLogLevel(base, " ")

	logLevel, exists := accessor.LogLevel(enriched)
	require.True(t, exists)
	require.Equal(t, "debug", logLevel)
}

func TestWithExecutionFlagsStoresValues(t *testing.T) {
	accessor := NewCommandContextAccessor()
	flags := ExecutionFlags{DryRun: true, DryRunSet: true, AutoStash: false, AutoStashSet: true, Remote: "origin", RemoteSet: true}

	enriched := accessor.WithExecutionFlags(context.Background(), flags)

	retrieved, exists := accessor.ExecutionFlags(enriched)
	require.True(t, exists)
	require.Equal(t, flags, retrieved)
}

func TestWithExecutionFlagsHandlesMissingContext(t *testing.T) {
	accessor := NewCommandContextAccessor()

	_, exists := accessor.ExecutionFlags(context.Background())
	require.False(t, exists)
}
