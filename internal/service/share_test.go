package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secondbrainhq/brain-back/internal/db"
)

func TestShareEnableIsIdempotent(t *testing.T) {
	s, gdb := newTestService(t)
	require.NoError(t, s.Register("alice", "p1"))
	aliceID := mustUserID(t, gdb, "alice")

	first, err := s.ShareEnable(aliceID)
	require.NoError(t, err)
	assert.Len(t, first, shareHashLength)

	second, err := s.ShareEnable(aliceID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	count := int64(0)
	require.NoError(t, gdb.Model(&db.ShareLink{}).Where("user_id = ?", aliceID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestShareDisableThenEnableRotatesHash(t *testing.T) {
	s, gdb := newTestService(t)
	require.NoError(t, s.Register("alice", "p1"))
	aliceID := mustUserID(t, gdb, "alice")

	first, err := s.ShareEnable(aliceID)
	require.NoError(t, err)

	require.NoError(t, s.ShareDisable(aliceID))

	// disabling again is a no-op
	require.NoError(t, s.ShareDisable(aliceID))

	second, err := s.ShareEnable(aliceID)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestShareResolve(t *testing.T) {
	s, gdb := newTestService(t)
	require.NoError(t, s.Register("alice", "p1"))
	require.NoError(t, s.Register("bob", "p2"))
	aliceID := mustUserID(t, gdb, "alice")
	bobID := mustUserID(t, gdb, "bob")

	_, err := s.ContentCreate(aliceID, "http://x", "article", "t1")
	require.NoError(t, err)
	_, err = s.ContentCreate(bobID, "http://z", "video", "t3")
	require.NoError(t, err)

	_, err = s.ShareResolve("never-issued")
	assert.ErrorIs(t, err, ErrLinkNotFound)

	hash, err := s.ShareEnable(aliceID)
	require.NoError(t, err)

	brain, err := s.ShareResolve(hash)
	require.NoError(t, err)
	assert.Equal(t, "alice", brain.Username)
	require.Len(t, brain.Content, 1)
	assert.Equal(t, "t1", brain.Content[0].Title)

	// a live read: new content shows up on the next resolution
	_, err = s.ContentCreate(aliceID, "http://y", "article", "t2")
	require.NoError(t, err)
	brain, err = s.ShareResolve(hash)
	require.NoError(t, err)
	assert.Len(t, brain.Content, 2)

	require.NoError(t, s.ShareDisable(aliceID))
	_, err = s.ShareResolve(hash)
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestShareResolveDanglingOwner(t *testing.T) {
	s, gdb := newTestService(t)
	require.NoError(t, s.Register("alice", "p1"))
	aliceID := mustUserID(t, gdb, "alice")

	hash, err := s.ShareEnable(aliceID)
	require.NoError(t, err)

	// no user-deletion path exists, so reach under the service to model a
	// share record that outlived its owner
	require.NoError(t, gdb.Delete(&db.User{}, aliceID).Error)

	_, err = s.ShareResolve(hash)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
