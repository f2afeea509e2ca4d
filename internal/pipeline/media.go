package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"shortgen/internal/domain"
	"shortgen/internal/providers/image"
	"shortgen/internal/providers/prompt"
	"shortgen/internal/storage"
)

// DefaultBatchSize caps how many images are requested at once.
const DefaultBatchSize = 3

type mediaTally struct {
	mu        sync.Mutex
	total     int
	done      int
	generated int
	failed    int
	progress  int
}

// advance records one finished scene and returns the progress to persist.
// Progress never decreases.
func (t *mediaTally) advance(ok bool) int {
	t.done++
	if ok {
		t.generated++
	} else {
		t.failed++
	}
	p := progressMediaStart + t.done*progressMediaSpan/t.total
	if p > t.progress {
		t.progress = p
	}
	return t.progress
}

func (o *Orchestrator) runMedia(ctx context.Context, r *run) error {
	scenes, err := o.repo.ListScenes(ctx, r.short.ID)
	if err != nil {
		return fmt.Errorf("load scenes: %w", err)
	}
	generator, err := o.providers.Generator(r.models.Image)
	if err != nil {
		return err
	}

	work := make([]domain.Scene, 0, len(scenes))
	for _, sc := range scenes {
		if strings.TrimSpace(sc.ImagePrompt) == "" {
			r.logger.Warn().Str("stage", string(StageMedia)).Int("scene_order", sc.Order).Msg("scene has no image prompt, skipping")
			continue
		}
		work = append(work, sc)
	}

	tally := &mediaTally{total: len(work), progress: progressMediaStart}
	size := image.SizeFor(r.short.Format)
	for start := 0; start < len(work); start += o.batchSize {
		end := start + o.batchSize
		if end > len(work) {
			end = len(work)
		}
		var g errgroup.Group
		for _, sc := range work[start:end] {
			g.Go(func() error {
				media := o.renderScene(ctx, r, generator, size, sc)
				// Outcome and progress are written under one lock so
				// concurrent scenes cannot move progress backwards.
				tally.mu.Lock()
				defer tally.mu.Unlock()
				if err := o.repo.UpdateSceneMedia(ctx, sc.ID, media); err != nil {
					return fmt.Errorf("save media for scene %d: %w", sc.Order, err)
				}
				progress := tally.advance(media.IsGenerated)
				return o.repo.UpdateStatus(ctx, r.short.ID, domain.StatusUpdate{Progress: &progress})
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if tally.failed > 0 {
		msg := scenesFailedMessage(tally.failed)
		if err := o.repo.UpdateStatus(context.WithoutCancel(ctx), r.short.ID, domain.StatusUpdate{
			Status:       domain.ShortStatusFailed,
			ErrorMessage: &msg,
		}); err != nil {
			return fmt.Errorf("mark short failed: %w", err)
		}
		r.failed = true
		return &ScenesFailedError{Failed: tally.failed, Total: tally.total}
	}

	progress := progressComplete
	empty := ""
	credits := tally.generated
	completedAt := o.now()
	if err := o.repo.UpdateStatus(ctx, r.short.ID, domain.StatusUpdate{
		Status:       domain.ShortStatusCompleted,
		Progress:     &progress,
		ErrorMessage: &empty,
		CreditsUsed:  &credits,
		CompletedAt:  &completedAt,
	}); err != nil {
		return fmt.Errorf("mark short completed: %w", err)
	}
	r.logger.Info().Str("stage", string(StageMedia)).Int("generated", tally.generated).Msg("short completed")
	return nil
}

// renderScene produces the media outcome of one scene. Provider errors are
// recorded on the scene instead of being returned.
func (o *Orchestrator) renderScene(ctx context.Context, r *run, generator image.Generator, size image.Size, sc domain.Scene) domain.SceneMedia {
	logger := r.logger.With().Str("stage", string(StageMedia)).Int("scene_order", sc.Order).Logger()
	started := time.Now()

	negative := sc.NegativePrompt
	if strings.TrimSpace(negative) == "" {
		negative = image.DefaultNegativePrompt
	}
	resp, err := generator.Generate(ctx, image.GenerateRequest{
		Prompt:         sc.ImagePrompt,
		NegativePrompt: negative,
		ImageSize:      size,
		NumImages:      1,
		Model:          r.models.Image.ModelID,
	})
	if err == nil && (resp == nil || len(resp.Images) == 0 || strings.TrimSpace(resp.Images[0].URL) == "") {
		err = errors.New("image service returned no image")
	}
	if err != nil {
		logger.Error().Err(err).Msg("scene image failed")
		return domain.SceneMedia{IsGenerated: false, ErrorMessage: prompt.Truncate(err.Error(), maxErrorMessage)}
	}

	img := resp.Images[0]
	width, height := img.Width, img.Height
	if width <= 0 || height <= 0 {
		width, height = size.Dimensions()
	}
	url := img.URL
	if o.mirror != nil {
		mirrored, err := o.mirror.Copy(ctx, img.URL, storage.SceneKey(r.short.ID, sc.Order))
		if err != nil {
			logger.Warn().Err(err).Msg("mirroring scene image failed, keeping provider url")
		} else {
			url = mirrored
		}
	}
	logger.Debug().Dur("elapsed", time.Since(started)).Int64("seed", resp.Seed).Msg("scene image generated")
	return domain.SceneMedia{MediaURL: url, Width: width, Height: height, IsGenerated: true}
}
