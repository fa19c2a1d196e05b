package manifests

import (
	"fmt"
	"os"
	"path/filepath"
)

const tempDirPattern = "awx-deployer-"

// Workspace is the temporary directory holding one run's rendered manifests.
type Workspace struct {
	dir string
}

func NewWorkspace() (*Workspace, error) {
	dir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// Stage renders the named template and writes it into the workspace,
// returning the file path.
func (w *Workspace) Stage(name string, values Values) (string, error) {
	data, err := Render(name, values)
	if err != nil {
		return "", err
	}
	p := filepath.Join(w.dir, name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("write manifest %s: %w", p, err)
	}
	return p, nil
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}
