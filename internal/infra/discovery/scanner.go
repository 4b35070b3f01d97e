// Package discovery locates docker compose projects under a root directory
// and extracts the service names each one defines. The compose file is never
// read again after discovery; only the project name and the ordered service
// list leave this package.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"dcman/pkg/log"
)

// ProjectDefinition is one discovered compose file: the project it defines
// and its service names in declaration order.
type ProjectDefinition struct {
	ProjectName string
	ProjectPath string
	ComposeFile string
	Services    []string
}

// composeFileNames are the file names recognized as compose definitions.
var composeFileNames = map[string]bool{
	"docker-compose.yml":  true,
	"docker-compose.yaml": true,
}

// composeDocument extracts just the services mapping. yaml.MapSlice keeps
// the keys in file order, which fixes the display order of services.
type composeDocument struct {
	Services yaml.MapSlice `yaml:"services"`
}

// FindComposeFiles walks rootPath recursively and returns every compose file
// found, skipping .devcontainer directories. Unreadable subtrees are logged
// and skipped rather than failing the whole scan.
func FindComposeFiles(rootPath string) ([]string, error) {
	if info, err := os.Stat(rootPath); err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", rootPath, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("cannot scan %s: not a directory", rootPath)
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skipping unreadable path during scan", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".devcontainer" {
				return filepath.SkipDir
			}
			return nil
		}
		if composeFileNames[d.Name()] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan of %s failed: %w", rootPath, err)
	}
	return files, nil
}

// ParseComposeFile extracts the project definition from one compose file.
// The project name is the hosting directory's name.
func ParseComposeFile(composeFile string) (ProjectDefinition, error) {
	data, err := os.ReadFile(composeFile)
	if err != nil {
		return ProjectDefinition{}, fmt.Errorf("failed to read %s: %w", composeFile, err)
	}

	var doc composeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ProjectDefinition{}, fmt.Errorf("failed to parse %s: %w", composeFile, err)
	}

	def := ProjectDefinition{
		ProjectName: filepath.Base(filepath.Dir(composeFile)),
		ProjectPath: filepath.Dir(composeFile),
		ComposeFile: composeFile,
	}
	for _, item := range doc.Services {
		name, ok := item.Key.(string)
		if !ok || name == "" {
			continue
		}
		def.Services = append(def.Services, name)
	}
	return def, nil
}

// Scan combines FindComposeFiles and ParseComposeFile. A file that fails to
// parse is logged and skipped so one broken project cannot hide the rest.
func Scan(rootPath string) ([]ProjectDefinition, error) {
	files, err := FindComposeFiles(rootPath)
	if err != nil {
		return nil, err
	}

	defs := make([]ProjectDefinition, 0, len(files))
	for _, file := range files {
		def, err := ParseComposeFile(file)
		if err != nil {
			log.Warn("skipping unparseable compose file", "file", file, "error", err)
			continue
		}
		if len(def.Services) == 0 {
			log.Debug("compose file defines no services", "file", file)
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}
