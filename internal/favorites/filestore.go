package favorites

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// FileStore keeps the list as a JSON array in one file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty list for a missing file or content that is not
// a JSON array of favorites.
func (s *FileStore) Load() ([]Favorite, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	var items []Favorite
	if err := json.Unmarshal(data, &items); err != nil {
		glog.Warningf("ignoring invalid favorites file %s: %v", s.path, err)
		return nil, nil
	}
	return items, nil
}

func (s *FileStore) Save(items []Favorite) error {
	if items == nil {
		items = []Favorite{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	return os.Rename(tmp, s.path)
}
