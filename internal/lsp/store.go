package lsp

import (
	"strings"
	"sync"

	"bci/internal/asm"
)

// Document is an open buffer and its parse, refreshed on every Set.
type Document struct {
	Text    string
	Program *asm.Program

	lines []string
}

func NewDocument(text string) *Document {
	return &Document{Text: text, Program: asm.Parse(text), lines: strings.Split(text, "\n")}
}

type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document // uri -> document
}

func NewStore() *Store {
	return &Store{docs: map[string]*Document{}}
}

func (s *Store) Set(uri, text string) *Document {
	doc := NewDocument(text)
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()
	return doc
}

func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	return d, ok
}

func (s *Store) Delete(uri string) {
	s.mu.Lock()
	delete(s.docs, uri)
	s.mu.Unlock()
}
