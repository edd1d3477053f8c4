// Package flash carries one-time user notices through a request and, across a redirect,
// to the next one.
package flash

import (
	"context"
	"encoding/gob"
	"sync"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notice struct {
	Level   Level
	Message string
}

func init() {
	// stored inside the signed session cookie
	gob.Register(Notice{})
}

type list struct {
	mu      sync.Mutex
	notices []Notice
}

type listKey struct{}

func withList(ctx context.Context, l *list) context.Context {
	return context.WithValue(ctx, listKey{}, l)
}

func fromContext(ctx context.Context) *list {
	l, _ := ctx.Value(listKey{}).(*list)
	return l
}

// Add queues a notice for the current request. Without the middleware it is dropped.
func Add(ctx context.Context, level Level, message string) {
	l := fromContext(ctx)
	if l == nil {
		return
	}
	l.mu.Lock()
	l.notices = append(l.notices, Notice{Level: level, Message: message})
	l.mu.Unlock()
}

func Success(ctx context.Context, message string) { Add(ctx, LevelSuccess, message) }
func Info(ctx context.Context, message string)    { Add(ctx, LevelInfo, message) }
func Warning(ctx context.Context, message string) { Add(ctx, LevelWarning, message) }
func Error(ctx context.Context, message string)   { Add(ctx, LevelError, message) }

// Pop returns and clears the pending notices. Rendering a page pops them once.
func Pop(ctx context.Context) []Notice {
	l := fromContext(ctx)
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.notices
	l.notices = nil
	return out
}

// Peek returns the pending notices without clearing them.
func Peek(ctx context.Context) []Notice {
	l := fromContext(ctx)
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notice, len(l.notices))
	copy(out, l.notices)
	return out
}
