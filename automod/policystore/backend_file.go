package policystore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Persists the policy map as a single indented JSON document on local disk.
//
// Writes go to a temporary file in the same directory which is then renamed over the target.
type FileBackend struct {
	Path string
}

var _ Backend = (*FileBackend)(nil)

func NewFileBackend(p string) *FileBackend {
	return &FileBackend{Path: p}
}

// A missing file is not an error: it yields an empty mapping.
func (b *FileBackend) Load(ctx context.Context) (map[string]CommunityPolicy, error) {
	f, err := os.Open(b.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]CommunityPolicy{}, nil
	} else if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]CommunityPolicy{}, nil
	}

	var policies map[string]CommunityPolicy
	if err := json.Unmarshal(raw, &policies); err != nil {
		return nil, err
	}
	return policies, nil
}

func (b *FileBackend) Save(ctx context.Context, policies map[string]CommunityPolicy) error {
	raw, err := json.MarshalIndent(policies, "", "  ")
	if err != nil {
		return err
	}

	dir, name := filepath.Split(b.Path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.Path)
}
