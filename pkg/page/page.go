// Package page writes static HTML pages into the web server's document root.
package page

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xlttj/portpanel/pkg/logging"
)

const (
	DefaultDir      = "/var/www/html"
	DefaultFilename = "index.html"
)

var (
	ErrNoFilename = errors.New("please provide a filename")
	ErrPermission = errors.New("permission denied")
)

// DefaultTemplate is the starter document offered for new pages.
const DefaultTemplate = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>New Page</title></head>
<body><h1>Hello from portpanel</h1><p>Sample page.</p></body>
</html>
`

// Write stores content as dir/name, creating dir if needed, and returns the full path.
// An empty dir means DefaultDir.
func Write(dir, name, content string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNoFilename
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = DefaultDir
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", wrapPermission(fmt.Errorf("cannot create target directory: %w", err))
	}

	fullPath := filepath.Join(dir, name)
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return "", wrapPermission(fmt.Errorf("failed to save file: %w", err))
	}

	logging.LogInfo("Saved HTML -> %s", fullPath)
	return fullPath, nil
}

func wrapPermission(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %w", ErrPermission, err)
	}
	return err
}
