package tiervault

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/randalmurphal/tiervault/classify"
)

// sidecarSuffix is appended to the artifact filename to form the
// sidecar path. ID.Validate reserves the suffix, so an artifact name
// can't collide with another artifact's sidecar.
const sidecarSuffix = ".meta.json"

// Sidecar is the per-artifact metadata record, created atomically with
// the artifact and immutable except for re-labeling.
type Sidecar struct {
	Label     classify.Label `json:"label"`
	TenantID  string         `json:"tenantId"`
	KeyID     string         `json:"keyId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Size      int64          `json:"size"`
	Encrypted bool           `json:"encrypted"`
}

func readSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// writeFileAtomic writes data to path via a temp file in the same
// directory plus rename, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func writeSidecarAtomic(path string, sc *Sidecar) error {
	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(data, '\n'), 0644)
}
