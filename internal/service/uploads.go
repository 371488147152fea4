package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// archiveUpload keeps a copy of an accepted CSV under
// <uploadDir>/<collectionID>/<short id>_<name> and returns its path.
// With no upload directory configured nothing is kept.
func (s *predictionService) archiveUpload(collectionID, fileName string, data []byte) (string, error) {
	if s.uploadDir == "" {
		return "", nil
	}

	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "upload.csv"
	}

	dir := filepath.Join(s.uploadDir, collectionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s", uuid.New().String()[:8], base))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func (s *predictionService) discardUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to remove archived upload")
	}
}
