package crawl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleAfterLoadPlainHostSleeps(t *testing.T) {
	r := &ChromedpRenderer{postLoadWait: 2 * time.Second}

	var slept time.Duration
	err := r.settleAfterLoad(context.Background(), "https://example.com/",
		func(context.Context, string) error {
			t.Fatal("no selector wait expected for a plain host")
			return nil
		},
		func(_ context.Context, d time.Duration) error {
			slept = d
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, slept)
}

func TestSettleAfterLoadSlowHostSelectorAppears(t *testing.T) {
	r := &ChromedpRenderer{postLoadWait: 2 * time.Second}

	var waitedSel string
	err := r.settleAfterLoad(context.Background(), "https://docs.google.com/document/d/abc",
		func(_ context.Context, sel string) error {
			waitedSel = sel
			return nil
		},
		func(context.Context, time.Duration) error {
			t.Fatal("no extra sleep after the selector appeared")
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, ".kix-appview-editor", waitedSel)
}

func TestSettleAfterLoadSlowHostMissingSelectorSkipsSleep(t *testing.T) {
	r := &ChromedpRenderer{postLoadWait: 2 * time.Second}

	err := r.settleAfterLoad(context.Background(), "https://myteam.notion.site/page",
		func(ctx context.Context, _ string) error {
			return context.DeadlineExceeded
		},
		func(context.Context, time.Duration) error {
			t.Fatal("the selector wait already spent the grace period")
			return nil
		})
	assert.NoError(t, err)
}

func TestSettleAfterLoadPropagatesCancellation(t *testing.T) {
	r := &ChromedpRenderer{postLoadWait: 2 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.settleAfterLoad(ctx, "https://docs.google.com/document/d/abc",
		func(ctx context.Context, _ string) error {
			return ctx.Err()
		},
		func(context.Context, time.Duration) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSlowSelectorFor(t *testing.T) {
	assert.Equal(t, ".kix-appview-editor", slowSelectorFor("https://docs.google.com/document/d/abc"))
	assert.Equal(t, ".notion-page-content", slowSelectorFor("https://myteam.notion.site/p"))
	assert.Empty(t, slowSelectorFor("https://example.com/"))
	assert.Empty(t, slowSelectorFor("https://notdocs.google.com.evil.example/"))
}
