package service

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/secondbrainhq/brain-back/internal/db"
	"github.com/secondbrainhq/brain-back/internal/random"
)

const (
	shareHashLength     = 10
	shareCreateAttempts = 3
)

// SharedBrain is the public, read-only view of one user's collection.
type SharedBrain struct {
	Username string
	Content  []ContentRow
}

// ShareEnable returns the user's share hash, creating one if none exists.
// Repeated calls return the same hash; it is never rotated while active.
func (s *General) ShareEnable(userID uint64) (string, error) {
	existing := db.ShareLink{}
	res := s.db.Where("user_id = ?", userID).First(&existing)
	if res.Error == nil {
		return existing.Hash, nil
	}
	if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return "", res.Error
	}

	for attempt := 0; attempt < shareCreateAttempts; attempt++ {
		hash, err := random.String(shareHashLength)
		if err != nil {
			return "", err
		}

		res = s.db.Create(&db.ShareLink{
			UserID: userID,
			Hash:   hash,
		})
		if res.Error == nil {
			return hash, nil
		}
		if !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return "", res.Error
		}

		// Lost either the per-user race or the global hash draw. A record
		// for this user means a concurrent enable won: hand out its hash.
		// Otherwise the hash collided with another user's and we redraw.
		res = s.db.Where("user_id = ?", userID).First(&existing)
		if res.Error == nil {
			return existing.Hash, nil
		}
		if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return "", res.Error
		}
	}

	return "", errors.New("could not allocate a share hash")
}

// ShareDisable deletes the user's share record if present. Disabling an
// already-unshared brain is a no-op.
func (s *General) ShareDisable(userID uint64) error {
	res := s.db.Where("user_id = ?", userID).Delete(&db.ShareLink{})
	if res.Error != nil {
		return res.Error
	}
	return nil
}

// ShareResolve turns a hash into the owner's username and current content.
// It is a live read: the snapshot reflects the collection as of now.
func (s *General) ShareResolve(hash string) (*SharedBrain, error) {
	link := db.ShareLink{}
	res := s.db.Where("hash = ?", hash).First(&link)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, res.Error
	}

	user := db.User{}
	res = s.db.First(&user, link.UserID)
	if res.Error != nil {
		// A share record can outlive its owner row; surface it as not found.
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, res.Error
	}

	content, err := s.ContentList(link.UserID)
	if err != nil {
		return nil, err
	}

	return &SharedBrain{
		Username: user.Username,
		Content:  content,
	}, nil
}
