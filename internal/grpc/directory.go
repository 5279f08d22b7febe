package grpc

import (
	"context"
	"sync"

	"conversation-service/internal/models"
)

type profileSource interface {
	BulkUsers(ctx context.Context, ids []string) ([]models.Profile, error)
}

// ResolveProfiles looks up ids in one batch and fills the gaps with
// placeholder profiles. The returned map always has an entry for every id; a
// non-nil error only reports that the lookup itself failed.
func ResolveProfiles(ctx context.Context, src profileSource, ids []string) (map[string]models.Profile, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	result := make(map[string]models.Profile, len(unique))
	profiles, err := src.BulkUsers(ctx, unique)
	if err == nil {
		for _, p := range profiles {
			if _, wanted := seen[p.ID]; wanted {
				result[p.ID] = p
			}
		}
	}
	for _, id := range unique {
		if _, ok := result[id]; !ok {
			result[id] = models.PlaceholderProfile(id)
		}
	}
	return result, err
}

// StaticDirectory is an in-process profile source for local development.
type StaticDirectory struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
}

// NewStaticDirectory seeds the directory with the given profiles.
func NewStaticDirectory(profiles ...models.Profile) *StaticDirectory {
	d := &StaticDirectory{profiles: make(map[string]models.Profile, len(profiles))}
	for _, p := range profiles {
		d.profiles[p.ID] = p
	}
	return d
}

// Put adds or replaces a profile.
func (d *StaticDirectory) Put(p models.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.ID] = p
}

func (d *StaticDirectory) BulkUsers(ctx context.Context, ids []string) ([]models.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := d.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *StaticDirectory) ResolveProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	return ResolveProfiles(ctx, d, ids)
}
