package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/esmin/pkg/config"
)

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(tmpDir, nil, 0)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
	if w.config == nil {
		t.Error("config should default when nil")
	}
	if w.pending == nil {
		t.Error("pending map should be initialized")
	}

	w2, err := NewWatcher(tmpDir, config.DefaultConfig(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w2.Stop()
	if w2.debounce != 50*time.Millisecond {
		t.Errorf("debounce = %v, want 50ms", w2.debounce)
	}
}

func TestWatcher_Stop(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, time.Second)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(tmpDir, config.DefaultConfig(), time.Second)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	tests := []struct {
		name        string
		event       fsnotify.Event
		wantPending bool
	}{
		{"write js", fsnotify.Event{Name: filepath.Join(tmpDir, "app.js"), Op: fsnotify.Write}, true},
		{"create mjs", fsnotify.Event{Name: filepath.Join(tmpDir, "mod.mjs"), Op: fsnotify.Create}, true},
		{"write cjs", fsnotify.Event{Name: filepath.Join(tmpDir, "lib", "old.cjs"), Op: fsnotify.Write}, true},
		{"remove ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "gone.js"), Op: fsnotify.Remove}, false},
		{"chmod ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "mode.js"), Op: fsnotify.Chmod}, false},
		{"other extension", fsnotify.Event{Name: filepath.Join(tmpDir, "types.ts"), Op: fsnotify.Write}, false},
		{"excluded dir", fsnotify.Event{Name: filepath.Join(tmpDir, "node_modules", "dep", "index.js"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.mu.Lock()
			w.pending = make(map[string]time.Time)
			w.mu.Unlock()

			w.handleEvent(tt.event)

			w.mu.Lock()
			_, found := w.pending[tt.event.Name]
			w.mu.Unlock()

			if found != tt.wantPending {
				t.Errorf("pending[%v] = %v, want %v", tt.event.Name, found, tt.wantPending)
			}
		})
	}
}

func TestWatcher_handleEvent_NewDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(tmpDir, nil, time.Second)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	newDir := filepath.Join(tmpDir, "src")
	if err := os.MkdirAll(filepath.Join(newDir, "nested"), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	w.handleEvent(fsnotify.Event{Name: newDir, Op: fsnotify.Create})

	watched := map[string]bool{}
	for _, d := range w.WatchedDirs() {
		watched[d] = true
	}
	if !watched[newDir] || !watched[filepath.Join(newDir, "nested")] {
		t.Errorf("WatchedDirs() = %v, want the new tree", w.WatchedDirs())
	}
	if len(w.pending) != 0 {
		t.Error("directories should not become pending")
	}
}

func TestWatcher_processPending(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(tmpDir, nil, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	done := make(chan string, 2)
	w.SetCallback(func(path string) {
		done <- path
	})

	ready := filepath.Join(tmpDir, "ready.js")
	fresh := filepath.Join(tmpDir, "fresh.js")
	w.pending[ready] = time.Now().Add(-time.Second)
	w.pending[fresh] = time.Now().Add(time.Hour)

	w.processPending()

	select {
	case got := <-done:
		if got != ready {
			t.Errorf("callback path = %v, want %v", got, ready)
		}
	case <-time.After(time.Second):
		t.Fatal("callback was not called")
	}

	if _, ok := w.pending[ready]; ok {
		t.Error("processed path should leave pending")
	}
	if _, ok := w.pending[fresh]; !ok {
		t.Error("unsettled path should stay pending")
	}
}

func TestWatcher_Start_Context(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Error("Start() did not return after context cancellation")
	}
}

func TestWatcher_Start_FileChange(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(tmpDir, nil, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var callbackCount int32
	var lastPath string
	var mu sync.Mutex

	w.SetCallback(func(path string) {
		atomic.AddInt32(&callbackCount, 1)
		mu.Lock()
		lastPath = path
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tmpDir, "app.js")
	if err := os.WriteFile(testFile, []byte("a?.b;\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&callbackCount) == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	if atomic.LoadInt32(&callbackCount) == 0 {
		t.Fatal("callback should be called when file is created")
	}

	mu.Lock()
	gotPath := lastPath
	mu.Unlock()

	if gotPath != testFile {
		t.Errorf("callback path = %v, want %v", gotPath, testFile)
	}
}

func TestWatcher_Start_ExcludedDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(tmpDir, "node_modules", "dep"), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	w, err := NewWatcher(tmpDir, nil, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.Start(ctx)

	time.Sleep(100 * time.Millisecond)

	for _, path := range w.WatchedDirs() {
		if filepath.Base(path) == "node_modules" || filepath.Base(path) == "dep" {
			t.Errorf("%s should not be watched", path)
		}
	}
}

func TestWatcher_Debounce(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(tmpDir, nil, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var callbackCount int32
	w.SetCallback(func(path string) {
		atomic.AddInt32(&callbackCount, 1)
	})

	testFile := filepath.Join(tmpDir, "app.js")
	for i := 0; i < 5; i++ {
		w.handleEvent(fsnotify.Event{Name: testFile, Op: fsnotify.Write})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)
	w.processPending()
	time.Sleep(50 * time.Millisecond)

	if count := atomic.LoadInt32(&callbackCount); count != 1 {
		t.Errorf("callback count = %d, want 1 (debounced)", count)
	}
}

func TestWatcher_ConcurrentHandleEvent(t *testing.T) {
	tmpDir := t.TempDir()

	w, err := NewWatcher(tmpDir, nil, time.Hour)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				w.handleEvent(fsnotify.Event{Name: filepath.Join(tmpDir, "app.js"), Op: fsnotify.Write})
			}
		}()
	}
	wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) != 1 {
		t.Errorf("pending = %d, want 1", len(w.pending))
	}
}
