// Package auth is the identity layer: email+password accounts with bcrypt
// hashes, HS256 JWT access tokens, an explicit session-state provider, and
// an interrupt-and-resume multi-factor flow. The cryptographic mechanics of
// individual factors live behind FactorVerifier.
package auth

import (
	"log/slog"
	"sync"
)

// Session is the signed-in identity state. A nil *Session means signed out.
type Session struct {
	UserID string
	Email  string
}

// Listener receives session state changes.
type Listener func(*Session)

// SessionProvider holds the current session and broadcasts changes to
// subscribed listeners. It is explicitly constructed and injected, never a
// process-global. Listeners are isolated: one panicking listener cannot
// take down the provider or starve the others.
type SessionProvider struct {
	mu        sync.Mutex
	current   *Session
	listeners map[int]Listener
	nextID    int
	closed    bool
}

func NewSessionProvider() *SessionProvider {
	return &SessionProvider{listeners: make(map[int]Listener)}
}

// Current returns the session at this instant.
func (p *SessionProvider) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Set replaces the session state and notifies every listener.
func (p *SessionProvider) Set(s *Session) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.current = s
	listeners := make([]Listener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		notify(l, s)
	}
}

// Subscribe registers a listener and immediately delivers the current
// state. The returned cancel releases the listener; calling it twice is
// harmless.
func (p *SessionProvider) Subscribe(l Listener) (cancel func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return func() {}
	}
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	current := p.current
	p.mu.Unlock()

	notify(l, current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Close drops all listeners; further Set and Subscribe calls are no-ops.
func (p *SessionProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.listeners = make(map[int]Listener)
	p.current = nil
}

func notify(l Listener, s *Session) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Session listener panicked", "panic", r)
		}
	}()
	l(s)
}
