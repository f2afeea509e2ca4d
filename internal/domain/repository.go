package domain

import (
	"context"
	"time"
)

// ShortRepository persists generation jobs, their scenes and roster.
type ShortRepository interface {
	Create(ctx context.Context, short *Short, roster []Character) error
	GetByID(ctx context.Context, id string) (*Short, error)
	ListScenes(ctx context.Context, shortID string) ([]Scene, error)
	ListCharacters(ctx context.Context, shortID string) ([]Character, error)

	// BeginRun atomically moves a short from DRAFT or FAILED into the given
	// running status. It returns ErrConflict when the short is not in a
	// triggerable status and ErrNotFound when it does not exist.
	BeginRun(ctx context.Context, id string, status ShortStatus, progress int) error
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) error

	// SaveScript stores the script outcome and inserts all scenes in one
	// transaction. It returns ErrScenesExist when the short already has scenes.
	SaveScript(ctx context.Context, id string, result ScriptResult, progress int) error
	UpdateScenePrompt(ctx context.Context, sceneID, prompt, negativePrompt string) error
	UpdateSceneMedia(ctx context.Context, sceneID string, media SceneMedia) error

	// FailStale marks shorts stuck in a running status since before the
	// cutoff as FAILED and returns their ids.
	FailStale(ctx context.Context, before time.Time, message string) ([]string, error)
}

// PresetRepository exposes read-only Style and Climate presets.
type PresetRepository interface {
	Style(ctx context.Context, id string) (*Style, error)
	Climate(ctx context.Context, id string) (*Climate, error)
}
