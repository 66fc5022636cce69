package holder

import (
	"errors"
	"sync"
)

// Mode governs how the next photo or text input is interpreted.
type Mode string

const (
	ModeNormal             Mode = "normal"
	ModeAwaitingReferences Mode = "awaiting_references"
	ModeAvatarUpload       Mode = "avatar_upload"
	ModeEdit               Mode = "edit_mode"
	ModeTrendingTheme      Mode = "trending_theme"
)

const (
	RatioAuto = "auto"

	Quality1K = "1k"
	Quality2K = "2k"
	Quality4K = "4k"
)

// MaxReferences caps the session-scoped reference set.
const MaxReferences = 5

var ErrTooManyReferences = errors.New("reference image limit reached")

// ReferenceImage is an uploaded image held in memory as conditioning
// input for generation. The first one drives auto aspect-ratio.
type ReferenceImage struct {
	Bytes  []byte
	Width  int
	Height int
}

// Session is the ephemeral per-user interaction state. It lives for the
// process lifetime and is only ever touched by its owning user.
type Session struct {
	Mode           Mode
	AspectRatio    string
	Quality        string
	References     []ReferenceImage
	EditingSubject *ReferenceImage
}

func newSession() *Session {
	return &Session{
		Mode:        ModeNormal,
		AspectRatio: RatioAuto,
		Quality:     Quality1K,
	}
}

// Manager owns all sessions. Mutation goes through its methods under one
// lock, so even a double-tapping user cannot race their own session.
type Manager struct {
	sessions map[int64]*Session
	mutex    sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
	}
}

// session returns the live entry, creating the default one lazily.
// Callers must hold the lock.
func (m *Manager) session(userId int64) *Session {
	s, ok := m.sessions[userId]
	if !ok {
		s = newSession()
		m.sessions[userId] = s
	}
	return s
}

// Get returns a snapshot of the user's session.
func (m *Manager) Get(userId int64) Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := m.session(userId)
	cc := *s
	cc.References = make([]ReferenceImage, len(s.References))
	copy(cc.References, s.References)
	if s.EditingSubject != nil {
		subject := *s.EditingSubject
		cc.EditingSubject = &subject
	}
	return cc
}

func (m *Manager) SetAspectRatio(userId int64, ratio string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.session(userId).AspectRatio = ratio
}

func (m *Manager) SetQuality(userId int64, quality string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.session(userId).Quality = quality
}

// EnterReferenceUpload switches the session to accumulating reference
// images for the next generation.
func (m *Manager) EnterReferenceUpload(userId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.session(userId).Mode = ModeAwaitingReferences
}

// EnterAvatarUpload switches to saving uploads into the durable avatar
// set. Session references are left alone.
func (m *Manager) EnterAvatarUpload(userId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.session(userId).Mode = ModeAvatarUpload
}

// EnterEditMode starts a single-image edit flow. Any previously held
// subject is dropped.
func (m *Manager) EnterEditMode(userId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s := m.session(userId)
	s.Mode = ModeEdit
	s.EditingSubject = nil
}

// EnterTrendingTheme starts a single-image theme flow. Any previously
// held subject is dropped.
func (m *Manager) EnterTrendingTheme(userId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s := m.session(userId)
	s.Mode = ModeTrendingTheme
	s.EditingSubject = nil
}

func (m *Manager) BackToNormal(userId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.session(userId).Mode = ModeNormal
}

// AddReference appends a session reference image, rejecting everything
// past the cap. Returns the new count.
func (m *Manager) AddReference(userId int64, img ReferenceImage) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := m.session(userId)
	if len(s.References) >= MaxReferences {
		return len(s.References), ErrTooManyReferences
	}
	s.References = append(s.References, img)
	return len(s.References), nil
}

// ClearReferences drops accumulated references and leaves upload mode.
func (m *Manager) ClearReferences(userId int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s := m.session(userId)
	s.References = nil
	s.Mode = ModeNormal
}

func (m *Manager) SetEditingSubject(userId int64, img ReferenceImage) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.session(userId).EditingSubject = &img
}

func (m *Manager) ReferenceCount(userId int64) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.session(userId).References)
}
