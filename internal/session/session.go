// Package session persists per-session dialogue state.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apresai/duet/internal/article"
	"github.com/apresai/duet/internal/dialogue"
)

var (
	// ErrNotFound is returned when a session is not found.
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned when a save lost a race with another writer.
	ErrConflict = errors.New("session was modified concurrently")
)

// StorageError wraps a failure of the backing store. Op names the store
// operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// Session is the persisted state of one dialogue.
type Session struct {
	ID                    string            `json:"id"`
	History               []dialogue.Turn   `json:"history"`
	Topic                 string            `json:"topic"`
	UserName              string            `json:"user_name"`
	Step                  int               `json:"step"`
	ArticleContentHistory []article.Content `json:"article_content_history"`

	// Version is 0 until the first save and grows by one per save.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewID returns a fresh random session identifier.
func NewID() string {
	return uuid.NewString()
}

// New returns an unsaved session with a fresh id.
func New(topic, userName string) *Session {
	return &Session{
		ID:                    NewID(),
		History:               []dialogue.Turn{},
		Topic:                 topic,
		UserName:              userName,
		ArticleContentHistory: []article.Content{},
	}
}

// CurrentArticle returns the most recently supplied article, or nil.
func (s *Session) CurrentArticle() *article.Content {
	if len(s.ArticleContentHistory) == 0 {
		return nil
	}
	return &s.ArticleContentHistory[len(s.ArticleContentHistory)-1]
}

// Summary is the listing view of a session.
type Summary struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	UserName  string    `json:"user_name"`
	Step      int       `json:"step"`
	Turns     int       `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Topic:     s.Topic,
		UserName:  s.UserName,
		Step:      s.Step,
		Turns:     len(s.History),
		UpdatedAt: s.UpdatedAt,
	}
}

// normalize replaces nil slices so stored records always carry arrays.
func (s *Session) normalize() {
	if s.History == nil {
		s.History = []dialogue.Turn{}
	}
	if s.ArticleContentHistory == nil {
		s.ArticleContentHistory = []article.Content{}
	}
}

// stamp sets the timestamps for a save happening now.
func (s *Session) stamp(now time.Time) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}
