package pairing

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I/L) so
// codes survive being read off a screen and typed by hand.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// maxGenerateAttempts bounds collision retries; with a 31-character
// alphabet and 6 positions the space is ~890M codes, so hitting this
// means something is badly wrong.
const maxGenerateAttempts = 50

// Manager errors.
var (
	ErrNotFound       = errors.New("pairing code invalid or expired")
	ErrAlreadyClaimed = errors.New("pairing code already used")
)

// Manager owns the pairing session lifecycle. Every operation purges
// expired sessions before acting, so a code is dead the instant its TTL
// lapses regardless of when the cleanup would otherwise run.
type Manager struct {
	store      *Store
	codeLength int
	ttl        time.Duration

	// Serializes start/claim so code generation cannot race a concurrent
	// insert into handing out the same code twice.
	mu sync.Mutex
}

// NewManager builds a manager with the given code length and session TTL.
func NewManager(store *Store, codeLength int, ttl time.Duration) *Manager {
	if codeLength < 4 {
		codeLength = 6
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Manager{store: store, codeLength: codeLength, ttl: ttl}
}

// Start creates a new pairing session and returns it. The generated code
// is unique among currently-live codes.
func (m *Manager) Start(ctx context.Context, deviceID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if err := m.store.Purge(ctx, now); err != nil {
		return nil, err
	}

	code, err := m.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Code:      code,
		DeviceID:  deviceID,
		CreatedAt: now.UTC(),
		ExpiresAt: now.UTC().Add(m.ttl),
	}
	if err := m.store.Insert(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Claim attaches a terminal code to the session. A session can be claimed
// exactly once; expired or unknown codes fail with ErrNotFound, already
// claimed ones with ErrAlreadyClaimed.
func (m *Manager) Claim(ctx context.Context, code, terminalCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Purge(ctx, time.Now()); err != nil {
		return err
	}

	sess, err := m.store.Get(ctx, code)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrNotFound
	}
	if sess.AttachedTerminalCode != nil {
		return ErrAlreadyClaimed
	}

	ok, err := m.store.Attach(ctx, code, terminalCode)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyClaimed
	}
	return nil
}

// Poll returns the session's attached terminal code, nil while the device
// is still waiting for a claim. Expired or unknown codes fail with
// ErrNotFound.
func (m *Manager) Poll(ctx context.Context, code string) (*Session, error) {
	if err := m.store.Purge(ctx, time.Now()); err != nil {
		return nil, err
	}

	sess, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := randomCode(m.codeLength)
		if err != nil {
			return "", err
		}
		exists, err := m.store.Exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique pairing code after %d attempts", maxGenerateAttempts)
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate pairing code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
