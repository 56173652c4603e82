package auth

import (
	"sync"

	"github.com/skratchdot/open-golang/open"
)

// BrowserOpener defines the interface for opening URLs in a browser.
type BrowserOpener interface {
	Open(url string) error
}

// SystemBrowserOpener opens URLs using the system default browser.
type SystemBrowserOpener struct{}

// Open opens a URL in the system default browser.
func (s *SystemBrowserOpener) Open(url string) error {
	return open.Run(url)
}

// MockBrowserOpener records URLs and runs an optional callback instead of
// opening a browser.
type MockBrowserOpener struct {
	mu         sync.Mutex
	OpenedURLs []string
	OnOpen     func(url string)
	Err        error
}

// Open records the URL, runs OnOpen and returns the configured error.
func (m *MockBrowserOpener) Open(url string) error {
	m.mu.Lock()
	m.OpenedURLs = append(m.OpenedURLs, url)
	onOpen := m.OnOpen
	m.mu.Unlock()

	if onOpen != nil {
		onOpen(url)
	}
	return m.Err
}

// GetOpenedURLs returns a copy of the opened URLs in a thread-safe manner.
func (m *MockBrowserOpener) GetOpenedURLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, len(m.OpenedURLs))
	copy(urls, m.OpenedURLs)
	return urls
}
