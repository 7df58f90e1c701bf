package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store saves and loads season bundles.
type Store interface {
	Save(ctx context.Context, b *Bundle) error
	Load(ctx context.Context, season string) (*Bundle, error)
}

// FileStore keeps one YAML file per season in a directory.
type FileStore struct {
	Dir string
}

// Path is where a season's bundle lives.
func (s FileStore) Path(season string) string {
	return filepath.Join(s.Dir, season+".yaml")
}

// Save writes the bundle, replacing any earlier one for the season.
func (s FileStore) Save(_ context.Context, b *Bundle) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	path := s.Path(b.Season)
	tmp, err := os.CreateTemp(s.Dir, "."+b.Season+"-*.yaml")
	if err != nil {
		return err
	}
	if err := b.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a season's bundle.
func (s FileStore) Load(_ context.Context, season string) (*Bundle, error) {
	path := s.Path(season)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w for season %s at %s", ErrNoBundle, season, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// OpenStore opens a store by kind: "file" keeps bundles under dir, "firestore" uses the given project.
// The returned function releases the store's resources.
func OpenStore(ctx context.Context, kind, dir, projectID string) (Store, func() error, error) {
	switch kind {
	case "", "file":
		return FileStore{Dir: dir}, func() error { return nil }, nil
	case "firestore":
		s, err := NewFirestoreStore(ctx, projectID)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown bundle store \"%s\"", kind)
	}
}
