package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shortgen/internal/domain"
	"shortgen/internal/infra"
	"shortgen/internal/sqlinline"
)

// ShortRepositoryPG implements domain.ShortRepository on PostgreSQL.
type ShortRepositoryPG struct {
	sql infra.TxRunner
}

// NewShortRepository creates a short repository backed by PostgreSQL.
func NewShortRepository(sql infra.TxRunner) *ShortRepositoryPG {
	return &ShortRepositoryPG{sql: sql}
}

// Create inserts the short and its character roster in one transaction.
func (r *ShortRepositoryPG) Create(ctx context.Context, short *domain.Short, roster []domain.Character) error {
	if short.ID == "" {
		short.ID = uuid.NewString()
	}
	if short.Status == "" {
		short.Status = domain.ShortStatusDraft
	}
	model := ""
	if short.Model != nil {
		model = short.Model.String()
	}
	var confirmed []byte
	if !short.Confirmed.IsZero() {
		b, err := json.Marshal(short.Confirmed)
		if err != nil {
			return fmt.Errorf("encode confirmed narrative: %w", err)
		}
		confirmed = b
	}
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		row := tx.QueryRow(ctx, sqlinline.QInsertShort,
			short.ID,
			short.UserID,
			short.Theme,
			short.Language,
			string(short.Format),
			short.TargetDuration,
			short.StyleID,
			short.ClimateID,
			model,
			short.SceneCount,
			short.SceneDuration,
			confirmed,
			string(short.Status),
		)
		if err := row.Scan(&short.CreatedAt, &short.UpdatedAt); err != nil {
			return fmt.Errorf("insert short: %w", err)
		}
		for i := range roster {
			if roster[i].ID == "" {
				roster[i].ID = uuid.NewString()
			}
			c := roster[i]
			if _, err := tx.Exec(ctx, sqlinline.QInsertCharacter, c.ID, short.ID, i, c.Name, c.Description, c.VisualPrompt, c.Role); err != nil {
				return fmt.Errorf("insert character %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetByID fetches a short without its scenes.
func (r *ShortRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Short, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	row := r.sql.QueryRow(ctx, sqlinline.QSelectShortByID, id)
	var (
		short     domain.Short
		model     string
		confirmed []byte
	)
	if err := row.Scan(
		&short.ID,
		&short.UserID,
		&short.Theme,
		&short.Language,
		&short.Format,
		&short.TargetDuration,
		&short.StyleID,
		&short.ClimateID,
		&model,
		&short.SceneCount,
		&short.SceneDuration,
		&confirmed,
		&short.Status,
		&short.Progress,
		&short.Title,
		&short.Hook,
		&short.CTA,
		&short.Script,
		&short.CreditsUsed,
		&short.ErrorMessage,
		&short.CreatedAt,
		&short.UpdatedAt,
		&short.CompletedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if model != "" {
		ref, err := domain.ParseModelRef(model)
		if err != nil {
			return nil, fmt.Errorf("short %s: %w", id, err)
		}
		short.Model = &ref
	}
	if len(confirmed) > 0 {
		if err := json.Unmarshal(confirmed, &short.Confirmed); err != nil {
			return nil, fmt.Errorf("short %s: decode confirmed narrative: %w", id, err)
		}
	}
	return &short, nil
}

// ListScenes returns the scenes of a short ordered by scene order.
func (r *ShortRepositoryPG) ListScenes(ctx context.Context, shortID string) ([]domain.Scene, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectScenesByShort, shortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []domain.Scene
	for rows.Next() {
		var s domain.Scene
		if err := rows.Scan(
			&s.ID,
			&s.ShortID,
			&s.Order,
			&s.Duration,
			&s.Narration,
			&s.VisualDesc,
			&s.Goal,
			&s.ImagePrompt,
			&s.NegativePrompt,
			&s.MediaURL,
			&s.Width,
			&s.Height,
			&s.IsGenerated,
			&s.ErrorMessage,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		scenes = append(scenes, s)
	}
	return scenes, rows.Err()
}

func (r *ShortRepositoryPG) ListCharacters(ctx context.Context, shortID string) ([]domain.Character, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectCharactersByShort, shortID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Character
	for rows.Next() {
		var c domain.Character
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.VisualPrompt, &c.Role); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// BeginRun flips an idle short into status with one conditional update.
func (r *ShortRepositoryPG) BeginRun(ctx context.Context, id string, status domain.ShortStatus, progress int) error {
	var got string
	err := r.sql.QueryRow(ctx, sqlinline.QBeginShortRun, id, string(status), progress).Scan(&got)
	if err == nil {
		return nil
	}
	if !infra.IsNoRows(err) {
		return err
	}
	var current string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectShortStatus, id).Scan(&current); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: short is %s", domain.ErrConflict, current)
}

func (r *ShortRepositoryPG) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateShortStatus,
		id,
		string(update.Status),
		update.Progress,
		update.ErrorMessage,
		update.CreditsUsed,
		update.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SaveScript locks the short, refuses to run when scenes exist, then stores
// the script fields and inserts every scene.
func (r *ShortRepositoryPG) SaveScript(ctx context.Context, id string, result domain.ScriptResult, progress int) error {
	return r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		var (
			lockedID string
			existing int
		)
		if err := tx.QueryRow(ctx, sqlinline.QLockShortForScript, id).Scan(&lockedID, &existing); err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrNotFound
			}
			return err
		}
		if existing > 0 {
			return domain.ErrScenesExist
		}
		if _, err := tx.Exec(ctx, sqlinline.QSaveShortScript, id, result.Title, result.Hook, result.CTA, []byte(result.Raw), progress); err != nil {
			return fmt.Errorf("save script: %w", err)
		}
		for i := range result.Scenes {
			s := &result.Scenes[i]
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			s.ShortID = id
			if _, err := tx.Exec(ctx, sqlinline.QInsertScene, s.ID, id, s.Order, s.Duration, s.Narration, s.VisualDesc, s.Goal); err != nil {
				return fmt.Errorf("insert scene %d: %w", s.Order, err)
			}
		}
		return nil
	})
}

func (r *ShortRepositoryPG) UpdateScenePrompt(ctx context.Context, sceneID, prompt, negativePrompt string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateScenePrompt, sceneID, prompt, negativePrompt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ShortRepositoryPG) UpdateSceneMedia(ctx context.Context, sceneID string, media domain.SceneMedia) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateSceneMedia,
		sceneID,
		media.MediaURL,
		media.Width,
		media.Height,
		media.IsGenerated,
		media.ErrorMessage,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ShortRepositoryPG) FailStale(ctx context.Context, before time.Time, message string) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QFailStaleShorts, before, message)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ domain.ShortRepository = (*ShortRepositoryPG)(nil)
