package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the application paths resolved against the executable.
type Paths struct {
	ExecutableDir string
	DataDir       string
	ExportsDir    string
	LogsDir       string
	WebDir        string
}

// GetPaths returns the application paths relative to the executable location.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return NewPaths(filepath.Dir(exe)), nil
}

// NewPaths lays out the directory structure under root:
//
//	root/
//	  ├── data/          (input datasets)
//	  │   └── exports/   (generated CSV and workbook exports)
//	  ├── logs/
//	  └── web/
func NewPaths(root string) *Paths {
	dataDir := filepath.Join(root, DefaultDataDir)
	return &Paths{
		ExecutableDir: root,
		DataDir:       dataDir,
		ExportsDir:    filepath.Join(dataDir, "exports"),
		LogsDir:       filepath.Join(root, DefaultLogsDir),
		WebDir:        filepath.Join(root, DefaultWebDir),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ExportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Default().Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// ResolveDataFile returns an absolute path for a dataset file. Absolute
// paths and paths that exist relative to the working directory are returned
// as-is; anything else is looked up under the data directory, then the
// executable directory.
func (p *Paths) ResolveDataFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if FileExists(name) {
		if abs, err := filepath.Abs(name); err == nil {
			return abs
		}
		return name
	}
	candidates := []string{
		filepath.Join(p.DataDir, name),
		filepath.Join(p.ExecutableDir, name),
	}
	for _, c := range candidates {
		if FileExists(c) {
			return c
		}
	}
	return candidates[0]
}

// GetExportPath returns the path for an export file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved directories at debug level.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportsDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		))
}
