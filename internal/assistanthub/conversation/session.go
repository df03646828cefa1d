package conversation

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is the per-user context passed to every handler.
type Session struct {
	ID            string
	Bot           string
	DisplayName   string
	NotifyContact string
	// Owner is the account the session belongs to. Empty when accounts are off.
	Owner     string
	CreatedAt time.Time

	Log Log

	turnMu sync.Mutex

	mu                sync.Mutex
	readAloud         bool
	pendingTranscript string
	lastAudio         []byte
}

// LockTurn serializes exchanges on the session until unlock is called.
func (s *Session) LockTurn() (unlock func()) {
	s.turnMu.Lock()
	return s.turnMu.Unlock
}

func (s *Session) SetReadAloud(v bool) {
	s.mu.Lock()
	s.readAloud = v
	s.mu.Unlock()
}

func (s *Session) ReadAloud() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAloud
}

// SetPendingTranscript stores speech-to-text output until the user submits it.
func (s *Session) SetPendingTranscript(text string) {
	s.mu.Lock()
	s.pendingTranscript = strings.TrimSpace(text)
	s.mu.Unlock()
}

// TakePendingTranscript returns and clears the pending transcript.
func (s *Session) TakePendingTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.pendingTranscript
	s.pendingTranscript = ""
	return t
}

func (s *Session) SetLastAudio(b []byte) {
	s.mu.Lock()
	s.lastAudio = b
	s.mu.Unlock()
}

func (s *Session) LastAudio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAudio
}

// Reset clears the transcript and ephemeral flags, keeping identity fields.
func (s *Session) Reset() {
	s.Log.Reset()
	s.mu.Lock()
	s.pendingTranscript = ""
	s.lastAudio = nil
	s.mu.Unlock()
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: map[string]*Session{}, now: time.Now}
}

// Create registers a new session for bot.
func (s *Store) Create(bot, displayName, notifyContact string) *Session {
	return s.CreateFor("", bot, displayName, notifyContact)
}

// CreateFor registers a new session owned by the given account.
func (s *Store) CreateFor(owner, bot, displayName, notifyContact string) *Session {
	sess := &Session{
		ID:            uuid.NewString(),
		Bot:           strings.TrimSpace(bot),
		DisplayName:   strings.TrimSpace(displayName),
		NotifyContact: strings.TrimSpace(notifyContact),
		Owner:         strings.TrimSpace(owner),
		CreatedAt:     s.now(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// GetOrCreate returns the session for id, initialising an empty one with
// defaults on first access.
func (s *Store) GetOrCreate(id, bot string) *Session {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.Create(bot, "", "")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := &Session{ID: id, Bot: strings.TrimSpace(bot), CreatedAt: s.now()}
	s.sessions[id] = sess
	return sess
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, strings.TrimSpace(id))
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
