// This file implements a file system watcher over the episodes directory.
// When audio files appear or disappear outside the application (a user
// tidying up by hand, another tool writing into the directory), the
// downloaded flags in the database drift from reality; the watcher runs a
// liveness reconciliation pass shortly after the changes settle.

package library

import (
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"podbay/internal/download"
)

// WatcherService watches the episodes directory and triggers download
// reconciliation when files are added, modified, or deleted.
type WatcherService struct {
	episodesDir   string
	dl            *download.Manager
	watcher       *fsnotify.Watcher
	mu            sync.Mutex
	pending       bool
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewWatcherService creates a new file system watcher service.
func NewWatcherService(episodesDir string, dl *download.Manager) *WatcherService {
	return &WatcherService{
		episodesDir:   episodesDir,
		dl:            dl,
		debounceDelay: 2 * time.Second, // Wait for changes to settle before reconciling
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the episodes directory for changes. The directory
// is flat; nothing is watched recursively.
func (w *WatcherService) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := watcher.Add(w.episodesDir); err != nil {
		watcher.Close()
		return err
	}

	log.Printf("File watcher started for episodes directory: %s", w.episodesDir)
	go w.processEvents()
	return nil
}

// Stop stops the file watcher service.
func (w *WatcherService) Stop() error {
	close(w.stopChan)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *WatcherService) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

// handleEvent schedules a reconciliation pass for any event that can
// change file presence. Chmod events are ignored; browsing the directory
// must not trigger passes.
func (w *WatcherService) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	relevant := event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
	if !relevant {
		return
	}

	w.scheduleReconcile()
}

// TriggerReconcile schedules a reconciliation pass directly, without a
// file system event. Used after a download or delete completes.
func (w *WatcherService) TriggerReconcile() {
	w.scheduleReconcile()
}

func (w *WatcherService) scheduleReconcile() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.runReconcile)
}

func (w *WatcherService) runReconcile() {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	log.Println("File watcher detected episode file changes, reconciling download state")
	if err := w.dl.ReconcileDownloads(); err != nil {
		log.Printf("Download reconciliation error: %v", err)
	}
}
