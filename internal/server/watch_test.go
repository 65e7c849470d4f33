package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fsnotify/fsnotify"
)

func TestWatcherTriggersOnPythonWrite(t *testing.T) {
	root := t.TempDir()
	stepsDir := filepath.Join(root, "features", "steps")
	require.NoError(t, os.MkdirAll(stepsDir, 0o755))

	fired := make(chan struct{}, 1)
	w, err := NewWatcher(root, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, zap.NewNop())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(stepsDir, "steps.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0o644))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("no rebuild after step-source write")
	}
}

func TestRelevantEvent(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"python write", fsnotify.Event{Name: "steps.py", Op: fsnotify.Write}, true},
		{"python remove", fsnotify.Event{Name: "steps.py", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "steps.py", Op: fsnotify.Chmod}, false},
		{"other file write", fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write}, false},
		{"directory create", fsnotify.Event{Name: "newdir", Op: fsnotify.Create}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relevantEvent(tt.event); got != tt.want {
				t.Errorf("relevantEvent(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}
