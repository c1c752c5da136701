package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileProvider loads secrets from one file per secret in a directory, the
// layout of a Kubernetes secret volume. Files must be mode 0600 or 0400.
// Values are cached; with watching enabled the cache is dropped whenever the
// directory changes, so rotated keys are picked up by the next callout.
type FileProvider struct {
	BasePath string

	mu      sync.RWMutex
	cache   map[string]string
	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFileProvider creates a provider reading from basePath.
func NewFileProvider(basePath string, watch bool) (*FileProvider, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", basePath)
	}

	p := &FileProvider{
		BasePath: basePath,
		cache:    make(map[string]string),
		done:     make(chan struct{}),
	}

	if watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		if err := watcher.Add(basePath); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch directory: %w", err)
		}
		p.watcher = watcher
		p.wg.Add(1)
		go p.watchLoop()
	}

	slog.Info("file secret provider started", "path", basePath, "watch", watch)
	return p, nil
}

// GetSecret implements SecretProvider.
func (p *FileProvider) GetSecret(_ context.Context, name string) (string, error) {
	p.mu.RLock()
	value, ok := p.cache[name]
	p.mu.RUnlock()
	if ok {
		return value, nil
	}

	path, err := p.resolve(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("secret file not found: %s", name)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", name)
	}
	if mode := info.Mode().Perm(); mode != 0o600 && mode != 0o400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - path is confined to BasePath by resolve
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	value = strings.TrimSpace(string(data))

	p.mu.Lock()
	p.cache[name] = value
	p.mu.Unlock()

	return value, nil
}

// resolve maps name to a path inside BasePath, rejecting traversal.
func (p *FileProvider) resolve(name string) (string, error) {
	absBase, err := filepath.Abs(p.BasePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(p.BasePath, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret name %q: directory traversal detected", name)
	}
	return absPath, nil
}

// Provider implements SecretProvider.
func (p *FileProvider) Provider() string {
	return "file"
}

// Supports implements SecretProvider.
func (p *FileProvider) Supports(name string) bool {
	path, err := p.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Refresh drops every cached value.
func (p *FileProvider) Refresh(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]string)
	return nil
}

// Close stops the watcher, if any.
func (p *FileProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	close(p.done)
	err := p.watcher.Close()
	p.wg.Wait()
	return err
}

func (p *FileProvider) watchLoop() {
	defer p.wg.Done()
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			// Secret volumes are updated by swapping a symlink, which shows
			// up as create, rename or remove rather than write.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			slog.Debug("secret directory changed, dropping cache",
				"file", filepath.Base(event.Name),
				"op", event.Op.String(),
			)
			_ = p.Refresh(context.Background())

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("secret watcher error", "error", err)

		case <-p.done:
			return
		}
	}
}
