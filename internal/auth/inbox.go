package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// inboxExt is the suffix of a delivered callback file.
const inboxExt = ".url"

// CallbackHandler consumes a delivered callback URL.
type CallbackHandler func(ctx context.Context, callbackURL string) error

// Deliver drops callbackURL into the inbox directory for a running
// process to pick up. The file is written under a temporary name and
// renamed, so a watcher never sees a partial URL.
func Deliver(dir, callbackURL string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create inbox directory: %w", err)
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], inboxExt)
	final := filepath.Join(dir, name)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, []byte(strings.TrimSpace(callbackURL)), 0600); err != nil {
		return "", fmt.Errorf("failed to write callback: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to publish callback: %w", err)
	}
	return final, nil
}

// Inbox watches a directory for delivered callback URLs and feeds each to
// a handler, deleting the file afterwards. It uses fsnotify and also
// drains files that were delivered before it started.
type Inbox struct {
	dir     string
	handler CallbackHandler
	logger  *zap.Logger

	watcher *fsnotify.Watcher
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	ctx     context.Context
}

// NewInbox creates an inbox for dir. It must be started with Start().
func NewInbox(dir string, handler CallbackHandler, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{
		dir:     dir,
		handler: handler,
		logger:  logger,
		errors:  make(chan error, 10),
	}
}

// Dir returns the watched directory.
func (in *Inbox) Dir() string {
	return in.dir
}

// Start begins watching. ctx is passed to the handler for every callback.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.running {
		return fmt.Errorf("inbox already running")
	}
	if err := os.MkdirAll(in.dir, 0700); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(in.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch inbox %s: %w", in.dir, err)
	}

	in.watcher = watcher
	in.ctx = ctx
	in.done = make(chan struct{})
	in.running = true

	in.wg.Add(1)
	go in.processEvents()

	// Callbacks delivered while nobody was watching.
	pending, _ := filepath.Glob(filepath.Join(in.dir, "*"+inboxExt))
	for _, path := range pending {
		in.wg.Add(1)
		go func(p string) {
			defer in.wg.Done()
			in.consume(p)
		}(path)
	}

	return nil
}

// Stop stops watching and waits for in-flight callbacks to finish.
func (in *Inbox) Stop() error {
	in.mu.Lock()
	if !in.running {
		in.mu.Unlock()
		return nil
	}
	in.running = false
	in.mu.Unlock()

	close(in.done)
	if err := in.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	in.wg.Wait()
	return nil
}

// Errors reports handler and watcher failures. Errors are dropped when
// nobody reads the channel.
func (in *Inbox) Errors() <-chan error {
	return in.errors
}

func (in *Inbox) processEvents() {
	defer in.wg.Done()

	for {
		select {
		case <-in.done:
			return

		case event, ok := <-in.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, inboxExt) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			in.consume(event.Name)

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return
			}
			in.report(fmt.Errorf("inbox watcher error: %w", err))
		}
	}
}

// consume claims one callback file by renaming it, then reads, deletes
// and handles it. Only one of several racing consumers wins the rename.
func (in *Inbox) consume(path string) {
	claimed := path + ".claimed"
	if err := os.Rename(path, claimed); err != nil {
		if !os.IsNotExist(err) {
			in.report(fmt.Errorf("failed to claim callback %s: %w", filepath.Base(path), err))
		}
		return
	}

	data, err := os.ReadFile(claimed)
	_ = os.Remove(claimed)
	if err != nil {
		in.report(fmt.Errorf("failed to read callback %s: %w", filepath.Base(path), err))
		return
	}

	url := strings.TrimSpace(string(data))
	if url == "" {
		return
	}
	in.logger.Debug("callback received", zap.String("file", filepath.Base(path)))
	if err := in.handler(in.ctx, url); err != nil {
		in.report(err)
	}
}

func (in *Inbox) report(err error) {
	in.logger.Warn("inbox", zap.Error(err))
	select {
	case in.errors <- err:
	default:
	}
}
