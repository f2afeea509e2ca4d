// Package memstore keeps shorts in memory. It backs tests and APP_ENV=local
// runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shortgen/internal/domain"
)

// Store implements domain.ShortRepository in memory.
type Store struct {
	mu         sync.Mutex
	shorts     map[string]*domain.Short
	scenes     map[string][]domain.Scene
	characters map[string][]domain.Character
	now        func() time.Time
}

func New() *Store {
	return &Store{
		shorts:     map[string]*domain.Short{},
		scenes:     map[string][]domain.Scene{},
		characters: map[string][]domain.Character{},
		now:        time.Now,
	}
}

func (s *Store) Create(_ context.Context, short *domain.Short, roster []domain.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if short.ID == "" {
		short.ID = uuid.NewString()
	}
	if _, ok := s.shorts[short.ID]; ok {
		return fmt.Errorf("short %s already exists", short.ID)
	}
	if short.Status == "" {
		short.Status = domain.ShortStatusDraft
	}
	now := s.now()
	short.CreatedAt, short.UpdatedAt = now, now
	cp := *short
	cp.Scenes = nil
	s.shorts[short.ID] = &cp

	chars := make([]domain.Character, len(roster))
	for i := range roster {
		if roster[i].ID == "" {
			roster[i].ID = uuid.NewString()
		}
		chars[i] = roster[i]
	}
	s.characters[short.ID] = chars
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Short, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	short, ok := s.shorts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *short
	return &cp, nil
}

func (s *Store) ListScenes(_ context.Context, shortID string) ([]domain.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.Scene(nil), s.scenes[shortID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) ListCharacters(_ context.Context, shortID string) ([]domain.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Character(nil), s.characters[shortID]...), nil
}

func (s *Store) BeginRun(_ context.Context, id string, status domain.ShortStatus, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	short, ok := s.shorts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !short.Status.Triggerable() {
		return fmt.Errorf("%w: short is %s", domain.ErrConflict, short.Status)
	}
	short.Status = status
	short.Progress = progress
	short.ErrorMessage = ""
	short.CompletedAt = nil
	short.UpdatedAt = s.now()
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, update domain.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	short, ok := s.shorts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if update.Status != "" {
		short.Status = update.Status
	}
	if update.Progress != nil {
		short.Progress = *update.Progress
	}
	if update.ErrorMessage != nil {
		short.ErrorMessage = *update.ErrorMessage
	}
	if update.CreditsUsed != nil {
		short.CreditsUsed = *update.CreditsUsed
	}
	if update.CompletedAt != nil {
		t := *update.CompletedAt
		short.CompletedAt = &t
	}
	short.UpdatedAt = s.now()
	return nil
}

func (s *Store) SaveScript(_ context.Context, id string, result domain.ScriptResult, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	short, ok := s.shorts[id]
	if !ok {
		return domain.ErrNotFound
	}
	if len(s.scenes[id]) > 0 {
		return domain.ErrScenesExist
	}
	seen := map[int]struct{}{}
	for _, sc := range result.Scenes {
		if _, dup := seen[sc.Order]; dup {
			return fmt.Errorf("duplicate scene order %d", sc.Order)
		}
		seen[sc.Order] = struct{}{}
	}
	now := s.now()
	short.Title = result.Title
	short.Hook = result.Hook
	short.CTA = result.CTA
	short.Script = append([]byte(nil), result.Raw...)
	short.Progress = progress
	short.UpdatedAt = now

	scenes := make([]domain.Scene, len(result.Scenes))
	for i := range result.Scenes {
		sc := &result.Scenes[i]
		if sc.ID == "" {
			sc.ID = uuid.NewString()
		}
		sc.ShortID = id
		sc.CreatedAt, sc.UpdatedAt = now, now
		scenes[i] = *sc
	}
	s.scenes[id] = scenes
	return nil
}

func (s *Store) UpdateScenePrompt(_ context.Context, sceneID, prompt, negativePrompt string) error {
	return s.updateScene(sceneID, func(sc *domain.Scene) {
		sc.ImagePrompt = prompt
		sc.NegativePrompt = negativePrompt
	})
}

func (s *Store) UpdateSceneMedia(_ context.Context, sceneID string, media domain.SceneMedia) error {
	return s.updateScene(sceneID, func(sc *domain.Scene) {
		sc.MediaURL = media.MediaURL
		sc.Width = media.Width
		sc.Height = media.Height
		sc.IsGenerated = media.IsGenerated
		sc.ErrorMessage = media.ErrorMessage
	})
}

func (s *Store) FailStale(_ context.Context, before time.Time, message string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, short := range s.shorts {
		if short.Status.Running() && short.UpdatedAt.Before(before) {
			short.Status = domain.ShortStatusFailed
			short.ErrorMessage = message
			short.UpdatedAt = s.now()
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) updateScene(sceneID string, apply func(*domain.Scene)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for shortID, scenes := range s.scenes {
		for i := range scenes {
			if scenes[i].ID == sceneID {
				apply(&scenes[i])
				scenes[i].UpdatedAt = s.now()
				s.scenes[shortID] = scenes
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

var _ domain.ShortRepository = (*Store)(nil)
