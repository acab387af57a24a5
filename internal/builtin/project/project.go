// Package project ships the built-in project plugins. Importing it registers
// them in the default discovery catalog under the "plugins.project" group,
// so a registry rooted at catalog:plugins picks them up.
package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"plugind/internal/common/fsutil"
	"plugind/internal/discovery"
	"plugind/internal/plugin"
)

// Group is the catalog group the plugins of this package register under.
const Group = "plugins.project"

// RootEnv names the directory new project directories are created in.
const RootEnv = "PLUGIND_PROJECTS_ROOT"

// DefaultRoot is used when RootEnv is unset.
const DefaultRoot = "~/projects"

func init() {
	discovery.Register(Group, func(host plugin.Host) plugin.Plugin {
		return NewMakeProjectDirectory(host, os.Getenv(RootEnv))
	})
}

// MakeProjectDirectory creates <root>/<meta.reference> for every New_Project
// event.
type MakeProjectDirectory struct {
	plugin.Base
	root string
}

// NewMakeProjectDirectory returns the plugin creating directories under root;
// an empty root means DefaultRoot.
func NewMakeProjectDirectory(host plugin.Host, root string) *MakeProjectDirectory {
	if root == "" {
		root = DefaultRoot
	}
	return &MakeProjectDirectory{
		Base: plugin.NewBase(host, "mk_project_directory", "Create the directory for the project",
			plugin.Filters{"New_Project": {plugin.Wildcard}}),
		root: root,
	}
}

// Perform creates the directory and returns its path. Events without a
// meta.reference are declined. An existing directory is not an error.
func (p *MakeProjectDirectory) Perform(_ context.Context, payload plugin.Payload, _ ...any) (any, error) {
	meta, _ := payload["meta"].(map[string]any)
	if meta == nil {
		return nil, plugin.ErrSkip
	}
	ref, _ := meta["reference"].(string)
	if ref == "" {
		return nil, plugin.ErrSkip
	}
	if ref != filepath.Base(ref) || ref == "." || ref == ".." {
		return nil, fmt.Errorf("invalid project reference %q", ref)
	}
	root, err := fsutil.ExpandHome(p.root)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, ref)
	if err := os.Mkdir(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("create project directory: %w", err)
	}
	return dir, nil
}
