package session

import "sync"

// Selection holds the identifier of the file the operator is working on
type Selection struct {
	mu     sync.RWMutex
	fileID string
}

// Get returns the selected file and whether one is selected
func (s *Selection) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fileID, s.fileID != ""
}

// Set selects fileID
func (s *Selection) Set(fileID string) {
	s.mu.Lock()
	s.fileID = fileID
	s.mu.Unlock()
}

// Clear drops the selection
func (s *Selection) Clear() {
	s.Set("")
}
