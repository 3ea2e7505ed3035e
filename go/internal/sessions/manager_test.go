package sessions

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Create(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	session, err := m.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, session.SessionID)
	require.NotEmpty(t, session.Token)
	assert.NotEqual(t, session.SessionID, session.Token)
	assert.Equal(t, "user-1", session.UserID)

	bySession, err := m.Get(ctx, session.SessionID)
	require.NoError(t, err)
	byToken, err := m.GetByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, bySession.UserID, byToken.UserID)
	assert.Equal(t, bySession.SessionID, byToken.SessionID)
}

func TestManager_Create_IndependentSessionsPerUser(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	first, err := m.Create(ctx, "user-1")
	require.NoError(t, err)
	second, err := m.Create(ctx, "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.NotEqual(t, first.Token, second.Token)

	// both stay valid
	_, err = m.Get(ctx, first.SessionID)
	require.NoError(t, err)
	_, err = m.Get(ctx, second.SessionID)
	require.NoError(t, err)
}

func TestManager_Create_RetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	taken := bytes.Repeat([]byte{1}, credentialBytes)
	require.NoError(t, store.Create(ctx, &models.Session{
		SessionID: base58.Encode(taken),
		Token:     "existing-token",
		UserID:    "someone-else",
	}))

	var stream []byte
	stream = append(stream, taken...)                                    // colliding session id
	stream = append(stream, bytes.Repeat([]byte{2}, credentialBytes)...) // token
	stream = append(stream, bytes.Repeat([]byte{3}, credentialBytes)...) // fresh session id
	stream = append(stream, bytes.Repeat([]byte{4}, credentialBytes)...) // fresh token

	m := NewManager(store)
	m.rand = bytes.NewReader(stream)

	session, err := m.Create(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(bytes.Repeat([]byte{3}, credentialBytes)), session.SessionID)
	assert.Equal(t, base58.Encode(bytes.Repeat([]byte{4}, credentialBytes)), session.Token)
}

func TestManager_Create_GivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	taken := bytes.Repeat([]byte{9}, credentialBytes)
	require.NoError(t, store.Create(ctx, &models.Session{
		SessionID: base58.Encode(taken),
		Token:     "existing-token",
		UserID:    "someone-else",
	}))

	m := NewManager(store)
	m.rand = bytes.NewReader(bytes.Repeat(taken, 2*maxCreateAttempts))

	_, err := m.Create(ctx, "user-1")
	require.ErrorIs(t, err, ErrDuplicateCredential)
}

type brokenStore struct{ Store }

func (brokenStore) Create(ctx context.Context, session *models.Session) error {
	return errors.New("db down")
}

func (brokenStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	return false, errors.New("db down")
}

func TestManager_StorageFailures(t *testing.T) {
	ctx := context.Background()
	m := NewManager(brokenStore{})

	_, err := m.Create(ctx, "user-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateCredential)

	require.Error(t, m.Delete(ctx, "whatever"))
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	session, err := m.Create(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, session.SessionID))

	_, err = m.Get(ctx, session.SessionID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.GetByToken(ctx, session.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// deleting again is a warning, not an error
	require.NoError(t, m.Delete(ctx, session.SessionID))
}
