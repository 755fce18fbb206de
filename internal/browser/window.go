// Package browser describes the page environment a session client runs in:
// the current location, tab and persistent storage, cookies and visibility.
package browser

import (
	"net/url"
	"strings"
	"sync"

	"authkit-session/internal/storage"
)

// Window is the page a client is attached to.
type Window interface {
	// Href returns the current URL.
	Href() string
	// ReplaceURL swaps the current history entry for u without navigating.
	ReplaceURL(u string)
	// Navigate loads u.
	Navigate(u string)
	// Cookies returns the document cookie string ("a=1; b=2").
	Cookies() string
	// Hidden reports whether the page is in the background.
	Hidden() bool
	// SessionStorage is scoped to the tab.
	SessionStorage() storage.Store
	// LocalStorage is shared by every tab of the origin and survives reloads.
	LocalStorage() storage.Store
}

// HasCookie reports whether the cookie string carries name.
func HasCookie(w Window, name string) bool {
	return strings.Contains(w.Cookies(), name+"=")
}

// Origin returns scheme://host of href, or "" when href is not absolute.
func Origin(href string) string {
	u, err := url.Parse(href)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Hostname returns the host of href without the port.
func Hostname(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// MemoryWindow is a Window kept in memory. Navigations are recorded instead of
// performed.
type MemoryWindow struct {
	mu          sync.RWMutex
	href        string
	cookies     map[string]string
	hidden      bool
	navigations []string
	session     storage.Store
	local       storage.Store
}

// NewMemoryWindow returns a visible window at href with empty storage.
func NewMemoryWindow(href string) *MemoryWindow {
	return &MemoryWindow{
		href:    href,
		cookies: make(map[string]string),
		session: storage.NewMemoryStore(),
		local:   storage.NewMemoryStore(),
	}
}

// WithLocalStorage replaces the persistent storage, e.g. with a Redis or SQL
// backed store shared with other processes.
func (w *MemoryWindow) WithLocalStorage(store storage.Store) *MemoryWindow {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.local = store
	return w
}

// WithSessionStorage replaces the tab storage, so that successive page loads
// of one tab can share it.
func (w *MemoryWindow) WithSessionStorage(store storage.Store) *MemoryWindow {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session = store
	return w
}

// Href implements Window.
func (w *MemoryWindow) Href() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.href
}

// SetHref moves the window to u without recording a navigation.
func (w *MemoryWindow) SetHref(u string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.href = u
}

// ReplaceURL implements Window.
func (w *MemoryWindow) ReplaceURL(u string) {
	w.SetHref(u)
}

// Navigate implements Window.
func (w *MemoryWindow) Navigate(u string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.navigations = append(w.navigations, u)
	w.href = u
}

// Navigations returns every URL passed to Navigate, oldest first.
func (w *MemoryWindow) Navigations() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.navigations...)
}

// LastNavigation returns the most recent navigation, or "".
func (w *MemoryWindow) LastNavigation() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.navigations) == 0 {
		return ""
	}
	return w.navigations[len(w.navigations)-1]
}

// SetCookie sets or, with an empty value, removes a cookie.
func (w *MemoryWindow) SetCookie(name, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if value == "" {
		delete(w.cookies, name)
		return
	}
	w.cookies[name] = value
}

// Cookies implements Window. Names are not sorted.
func (w *MemoryWindow) Cookies() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	parts := make([]string, 0, len(w.cookies))
	for name, value := range w.cookies {
		parts = append(parts, name+"="+value)
	}
	return strings.Join(parts, "; ")
}

// SetHidden changes the visibility.
func (w *MemoryWindow) SetHidden(hidden bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hidden = hidden
}

// Hidden implements Window.
func (w *MemoryWindow) Hidden() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.hidden
}

// SessionStorage implements Window.
func (w *MemoryWindow) SessionStorage() storage.Store {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session
}

// LocalStorage implements Window.
func (w *MemoryWindow) LocalStorage() storage.Store {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.local
}
