package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"screedflow/models"
)

// Collection names one stored entity list.
type Collection string

const (
	CollectionProjects      Collection = "projects"
	CollectionTasks         Collection = "tasks"
	CollectionTeam          Collection = "team"
	CollectionMaterials     Collection = "materials"
	CollectionNotifications Collection = "notifications"
)

var Collections = []Collection{
	CollectionProjects, CollectionTasks, CollectionTeam, CollectionMaterials, CollectionNotifications,
}

const versionKey = "screedflow_schema_version"

var ErrCorruptSnapshot = errors.New("stored snapshot is not valid JSON")

func (c Collection) key() string { return "screedflow_" + string(c) }

// Keyed is implemented by every stored entity.
type Keyed interface {
	Key() string
}

// SnapshotStore loads and saves whole collections. A missing or mismatched schema version
// replaces everything with the seed collections.
type SnapshotStore struct {
	blobs   BlobStore
	version string
	seed    map[Collection][]byte
	logger  *zap.Logger
}

func NewSnapshotStore(blobs BlobStore, version string, seed models.Snapshot, logger *zap.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	encoded := make(map[Collection][]byte, len(Collections))
	for c, v := range map[Collection]any{
		CollectionProjects:      nonNil(seed.Projects),
		CollectionTasks:         nonNil(seed.Tasks),
		CollectionTeam:          nonNil(seed.Team),
		CollectionMaterials:     nonNil(seed.Materials),
		CollectionNotifications: nonNil(seed.Notifications),
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode seed %s: %w", c, err)
		}
		encoded[c] = data
	}
	return &SnapshotStore{blobs: blobs, version: version, seed: encoded, logger: logger}, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *SnapshotStore) Version() string { return s.version }

// Initialize reseeds the store when the stored schema version differs from the expected one.
// Reseeding discards whatever was stored.
func (s *SnapshotStore) Initialize(ctx context.Context) error {
	stored, found, err := s.blobs.Get(ctx, versionKey)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if found && string(stored) == s.version {
		return nil
	}
	s.logger.Warn("schema version mismatch, reseeding",
		zap.String("stored", string(stored)), zap.String("expected", s.version))
	return s.Reseed(ctx)
}

// Reseed overwrites every collection with the seed and stamps the current version.
func (s *SnapshotStore) Reseed(ctx context.Context) error {
	for _, c := range Collections {
		if err := s.blobs.Put(ctx, c.key(), s.seed[c]); err != nil {
			return fmt.Errorf("seed %s: %w", c, err)
		}
	}
	if err := s.blobs.Put(ctx, versionKey, []byte(s.version)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

// raw returns the stored bytes of a collection, or the seed when the collection was never written.
func (s *SnapshotStore) raw(ctx context.Context, c Collection) ([]byte, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	data, found, err := s.blobs.Get(ctx, c.key())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c, err)
	}
	if !found {
		return s.seed[c], nil
	}
	return data, nil
}

// Load returns the full current collection. An unreadable or corrupt collection is served
// from the seed.
func Load[T any](ctx context.Context, s *SnapshotStore, c Collection) ([]T, error) {
	items, err := LoadStrict[T](ctx, s, c)
	if err == nil {
		return items, nil
	}
	s.logger.Error("snapshot unavailable, serving seed", zap.String("collection", string(c)), zap.Error(err))
	items = nil
	if err := json.Unmarshal(s.seed[c], &items); err != nil {
		return nil, fmt.Errorf("decode seed %s: %w", c, err)
	}
	return nonNil(items), nil
}

// LoadStrict is Load without the seed fallback.
func LoadStrict[T any](ctx context.Context, s *SnapshotStore, c Collection) ([]T, error) {
	data, err := s.raw(ctx, c)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptSnapshot, c, err)
	}
	return nonNil(items), nil
}

// Save atomically replaces the stored collection. The schema version is checked first so
// that a later Load does not reseed over the write.
func Save[T any](ctx context.Context, s *SnapshotStore, c Collection, items []T) error {
	if err := s.Initialize(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(nonNil(items))
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	if err := s.blobs.Put(ctx, c.key(), data); err != nil {
		return fmt.Errorf("save %s: %w", c, err)
	}
	return nil
}

// Upsert replaces the entity with a matching key, or appends it.
func Upsert[T Keyed](ctx context.Context, s *SnapshotStore, c Collection, item T) error {
	items, err := LoadStrict[T](ctx, s, c)
	if err != nil {
		return err
	}
	replaced := false
	for i := range items {
		if items[i].Key() == item.Key() {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, item)
	}
	return Save(ctx, s, c, items)
}

// LoadSnapshot reads every collection concurrently.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	if err := s.Initialize(ctx); err != nil {
		s.logger.Error("schema check failed", zap.Error(err))
	}

	var snap models.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Projects, err = Load[models.Project](gctx, s, CollectionProjects)
		return err
	})
	g.Go(func() (err error) {
		snap.Tasks, err = Load[models.Task](gctx, s, CollectionTasks)
		return err
	})
	g.Go(func() (err error) {
		snap.Team, err = Load[models.TeamMember](gctx, s, CollectionTeam)
		return err
	})
	g.Go(func() (err error) {
		snap.Materials, err = Load[models.Material](gctx, s, CollectionMaterials)
		return err
	})
	g.Go(func() (err error) {
		snap.Notifications, err = Load[models.Notification](gctx, s, CollectionNotifications)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}
