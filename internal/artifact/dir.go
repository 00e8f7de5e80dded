package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirStore keeps artifacts in a local directory. Used by synth-only runs
// that never touch a deployment bucket; locations carry the well-known
// "local" bucket name.
type DirStore struct {
	Dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{Dir: dir}
}

func (s *DirStore) Upload(ctx context.Context, path string) (*Location, error) {
	digest, err := fileDigest(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("artifacts/%s.zip", digest)
	dest := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return nil, fmt.Errorf("failed to copy artifact: %w", err)
	}
	return &Location{Bucket: "local", Key: key}, nil
}
