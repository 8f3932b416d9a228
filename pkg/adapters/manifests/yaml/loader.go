package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aescanero/waveorch/pkg/domain"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Loader reads wave manifests from YAML files
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new YAML manifest loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadDir loads every *.yaml and *.yml file in dir. Files are read in name
// order and documents in file order, which together give declaration order.
func (l *Loader) LoadDir(dir string) ([]domain.Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	var manifests []domain.Manifest
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}

		loaded, err := l.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, loaded...)
	}

	l.logger.Info("manifests loaded",
		zap.String("dir", dir),
		zap.Int("count", len(manifests)))

	return manifests, nil
}

// LoadFile loads every manifest document in a file
func (l *Loader) LoadFile(path string) ([]domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	manifests, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Debug("manifest file loaded",
		zap.String("path", path),
		zap.Int("count", len(manifests)))

	return manifests, nil
}

// Parse decodes one or more YAML documents into manifests. Manifests are
// enabled unless a document sets enabled: false. Empty documents are skipped.
func Parse(data []byte) ([]domain.Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var manifests []domain.Manifest
	for i := 0; ; i++ {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if isEmpty(&node) {
			continue
		}

		m := domain.Manifest{Enabled: true}
		if err := node.Decode(&m); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		manifests = append(manifests, m)
	}

	return manifests, nil
}

func isEmpty(node *yaml.Node) bool {
	if node.Kind == 0 {
		return true
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return true
		}
		inner := node.Content[0]
		return inner.Kind == yaml.ScalarNode && inner.Tag == "!!null"
	}
	return false
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
