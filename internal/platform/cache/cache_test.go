package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"codearena/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("p1", "python", "print(1)")
	b := Fingerprint("p1", "python", "print(1)")
	assert.Equal(t, a, b)
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint("p1", "python", "print(1)")

	assert.NotEqual(t, base, Fingerprint("p2", "python", "print(1)"), "problem id must affect the key")
	assert.NotEqual(t, base, Fingerprint("p1", "javascript", "print(1)"), "language must affect the key")
	assert.NotEqual(t, base, Fingerprint("p1", "python", "print(2)"), "a single-character code change must be a full miss")
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	// Field contents must not bleed into each other.
	assert.NotEqual(t, Fingerprint("ab", "c", "x"), Fingerprint("a", "bc", "x"))
}

func sampleVerdict() *model.Verdict {
	return &model.Verdict{
		Status:         model.StatusAccepted,
		Suggestion:     "Looks good.",
		DetailedStatus: "All test cases passed.",
		Results: []model.TestCaseResult{
			{TestCaseID: "tc1", Input: "in", ExpectedOutput: "out", ActualOutput: "out", Matches: true},
		},
	}
}

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryVerdictCache(time.Minute, time.Minute)
	defer c.Stop()
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k1", sampleVerdict()))

	verdict, hit, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, model.StatusAccepted, verdict.Status)
	require.Len(t, verdict.Results, 1)
	assert.True(t, verdict.Results[0].Matches)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryVerdictCache(20*time.Millisecond, time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", sampleVerdict()))

	_, hit, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, hit)

	time.Sleep(40 * time.Millisecond)

	_, hit, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, hit, "expired entry must be a miss even before the sweep runs")
}

func TestMemoryCacheSweepEvicts(t *testing.T) {
	c := NewMemoryVerdictCache(10*time.Millisecond, 20*time.Millisecond)
	defer c.Stop()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), sampleVerdict()))
	}
	assert.Equal(t, 10, c.len())

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, c.len(), "janitor must remove expired entries")
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryVerdictCache(time.Minute, time.Minute)
	defer c.Stop()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", sampleVerdict()))

	failed := sampleVerdict()
	failed.Status = model.StatusFailed
	require.NoError(t, c.Set(ctx, "k1", failed))

	verdict, hit, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, model.StatusFailed, verdict.Status)
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	c := NewMemoryVerdictCache(time.Minute, 5*time.Millisecond)
	defer c.Stop()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%4)
			for j := 0; j < 100; j++ {
				_ = c.Set(ctx, key, sampleVerdict())
				_, _, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}
