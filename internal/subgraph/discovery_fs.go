package subgraph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var sdlExtensions = map[string]bool{".graphql": true, ".graphqls": true}

// FileSystemDiscovery implements Discovery for a directory of subgraph SDL
// files. Each file is one subgraph named after the file stem.
type FileSystemDiscovery struct {
	filePaths map[string]string
	metas     []*Metadata
}

// NewFileSystemDiscovery walks rootDir in lexical order and registers every
// .graphql or .graphqls file.
func NewFileSystemDiscovery(ctx context.Context, rootDir string) (*FileSystemDiscovery, error) {
	discovery := &FileSystemDiscovery{filePaths: make(map[string]string)}

	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(d.Name())
		if !sdlExtensions[ext] {
			return nil
		}
		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path for %q: %w", path, err)
		}
		return discovery.add(strings.TrimSuffix(d.Name(), ext), path, relPath)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk root directory %q: %w", rootDir, err)
	}
	return discovery, nil
}

// File names one subgraph SDL file.
type File struct {
	Name string
	Path string
}

// NewFileListDiscovery registers files in the given order. An empty name
// defaults to the file stem.
func NewFileListDiscovery(files []File) (*FileSystemDiscovery, error) {
	discovery := &FileSystemDiscovery{filePaths: make(map[string]string)}
	for _, f := range files {
		name := f.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
		}
		if err := discovery.add(name, f.Path, f.Path); err != nil {
			return nil, err
		}
	}
	return discovery, nil
}

func (d *FileSystemDiscovery) add(name, path, relPath string) error {
	if prev, ok := d.filePaths[name]; ok {
		return fmt.Errorf("subgraph %q is defined by both %q and %q", name, prev, path)
	}
	d.filePaths[name] = path
	d.metas = append(d.metas, &Metadata{Name: name, FilePath: relPath})
	return nil
}

func (d *FileSystemDiscovery) ListMetadata(ctx context.Context) ([]*Metadata, error) {
	return append([]*Metadata(nil), d.metas...), nil
}

func (d *FileSystemDiscovery) ReadSDL(ctx context.Context, name string) (string, error) {
	fp, ok := d.filePaths[name]
	if !ok {
		return "", fmt.Errorf("subgraph %q not found", name)
	}
	content, err := os.ReadFile(fp)
	if err != nil {
		return "", fmt.Errorf("failed to read SDL for subgraph %q: %w", name, err)
	}
	return string(content), nil
}
