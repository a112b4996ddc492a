// Package pipeline syncs channel analytics from a provider into a repository.
// It depends only on the provider contract, never on a concrete provider.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/researchaccelerator-hub/channel-analytics/apperror"
	"github.com/researchaccelerator-hub/channel-analytics/metrics"
	"github.com/researchaccelerator-hub/channel-analytics/model"
	"github.com/researchaccelerator-hub/channel-analytics/nullcheck"
	"github.com/researchaccelerator-hub/channel-analytics/provider"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Defaults applied by NewRunner
const (
	DefaultRecentLimit = 20
	DefaultConcurrency = 4
)

// Repository stores synced analytics
type Repository interface {
	UpsertChannel(ctx context.Context, channel model.ChannelSnapshot) error
	UpsertVideos(ctx context.Context, channelID string, videos []model.VideoStat) error
	CreateSyncRun(ctx context.Context, run model.SyncRun) error
	FinishSyncRun(ctx context.Context, run model.SyncRun) error
}

// Options configures NewRunner
type Options struct {
	RecentLimit int
	Concurrency int
	Now         provider.Clock

	// Validator screens fetched data; nil uses the default rules
	Validator *nullcheck.Validator
}

// Runner syncs channels one run at a time per channel
type Runner struct {
	provider    provider.Provider
	repo        Repository
	recentLimit int
	concurrency int
	now         provider.Clock
	validator   *nullcheck.Validator
}

// NewRunner creates a runner reading from p and writing to repo
func NewRunner(p provider.Provider, repo Repository, opts Options) *Runner {
	r := &Runner{
		provider:    p,
		repo:        repo,
		recentLimit: opts.RecentLimit,
		concurrency: opts.Concurrency,
		now:         opts.Now,
		validator:   opts.Validator,
	}
	if r.recentLimit <= 0 {
		r.recentLimit = DefaultRecentLimit
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.validator == nil {
		r.validator = nullcheck.NewValidator()
	}
	return r
}

// Result is the outcome of one channel sync
type Result struct {
	ChannelID string        `json:"channelId"`
	Run       model.SyncRun `json:"run"`
	Err       error         `json:"-"`
}

// Run syncs one channel. Channel stats are required; recent videos and
// their stats are best effort and recorded as warnings on the run.
func (r *Runner) Run(ctx context.Context, channelID string) (model.SyncRun, error) {
	run := model.SyncRun{
		ID:           uuid.New().String(),
		ChannelID:    channelID,
		Status:       model.SyncStatusRunning,
		Stage:        model.SyncStageCollect,
		ProviderName: r.provider.Name(),
		StartedAt:    r.now().UTC(),
	}

	logger := log.With().
		Str("run_id", run.ID).
		Str("channel_id", channelID).
		Str("provider", run.ProviderName).
		Logger()

	if err := r.repo.CreateSyncRun(ctx, run); err != nil {
		return run, storeFailed(err, "create sync run", run)
	}
	logger.Info().Msg("Sync run started")

	channel, err := r.provider.GetChannelStats(ctx, provider.ChannelStatsQuery{ChannelID: channelID})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch channel stats")
		return r.fail(ctx, run, err)
	}
	if res := r.validator.ValidateChannel(channel); !res.Valid {
		logger.Error().Strs("errors", res.Errors).Msg("Channel stats failed validation")
		return r.fail(ctx, run, apperror.New(apperror.CodeValidationFailed,
			"channel stats failed validation", apperror.SeverityError,
			map[string]any{"channelId": channelID, "errors": res.Errors}))
	}
	syncedAt := r.now().UTC()
	channel.LastSyncAt = &syncedAt

	recent, err := r.provider.GetRecentVideos(ctx, provider.RecentVideosQuery{ChannelID: channelID, Limit: r.recentLimit})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to fetch recent videos")
		run.Warnings = append(run.Warnings, apperror.CodeOf(err))
	}

	videos := model.MergeVideos(nil, recent)
	if len(recent) > 0 {
		ids := make([]string, 0, len(recent))
		for _, v := range recent {
			ids = append(ids, v.VideoID)
		}
		stats, err := r.provider.GetVideoStats(ctx, provider.VideoStatsQuery{VideoIDs: ids})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to fetch video stats")
			run.Warnings = append(run.Warnings, apperror.CodeOf(err))
		} else {
			videos = model.MergeVideos(videos, stats)
		}
	}

	videos, dropped := r.validator.FilterVideos(videos)
	if dropped > 0 {
		logger.Warn().Int("dropped", dropped).Msg("Dropped videos that failed validation")
		run.Warnings = append(run.Warnings, apperror.CodeValidationFailed)
	}

	if err := r.repo.UpsertChannel(ctx, channel); err != nil {
		return r.fail(ctx, run, storeFailed(err, "upsert channel", run))
	}
	if err := r.repo.UpsertVideos(ctx, channelID, videos); err != nil {
		return r.fail(ctx, run, storeFailed(err, "upsert videos", run))
	}

	finished := r.now().UTC()
	run.Status = model.SyncStatusCompleted
	run.FinishedAt = &finished
	run.VideoCount = len(videos)
	if err := r.repo.FinishSyncRun(ctx, run); err != nil {
		return run, storeFailed(err, "finish sync run", run)
	}
	metrics.RecordSyncRun(run.Status)

	logger.Info().
		Int("video_count", run.VideoCount).
		Strs("warnings", run.Warnings).
		Msg("Sync run completed")

	return run, nil
}

// RunAll syncs every channel with bounded concurrency. A failing channel
// never stops the others. Results follow the order of channelIDs.
func (r *Runner) RunAll(ctx context.Context, channelIDs []string) []Result {
	results := make([]Result, len(channelIDs))

	var eg errgroup.Group
	eg.SetLimit(r.concurrency)
	for i, channelID := range channelIDs {
		eg.Go(func() error {
			run, err := r.Run(ctx, channelID)
			results[i] = Result{ChannelID: channelID, Run: run, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	log.Info().
		Int("channels", len(channelIDs)).
		Int("failed", failed).
		Msg("Sync finished")

	return results
}

func (r *Runner) fail(ctx context.Context, run model.SyncRun, cause error) (model.SyncRun, error) {
	finished := r.now().UTC()
	appErr := apperror.From(cause)
	run.Status = model.SyncStatusFailed
	run.FinishedAt = &finished
	run.ErrorCode = appErr.Code
	run.ErrorMessage = appErr.Message

	if err := r.repo.FinishSyncRun(ctx, run); err != nil {
		log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to record failed sync run")
	}
	metrics.RecordSyncRun(run.Status)
	return run, cause
}

func storeFailed(err error, op string, run model.SyncRun) error {
	return apperror.Wrap(err, apperror.CodePipelineStoreFailed,
		"failed to "+op, apperror.SeverityError,
		map[string]any{"runId": run.ID, "channelId": run.ChannelID})
}
