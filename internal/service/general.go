package service

import (
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/secondbrainhq/brain-back/internal/config"
	"github.com/secondbrainhq/brain-back/internal/db"
	"github.com/secondbrainhq/brain-back/internal/token"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLinkNotFound       = errors.New("link not found")
	ErrUserNotFound       = errors.New("user not found")
)

// ContentRow is a content item annotated with its owner's username, the
// shape both the authenticated list and the public share resolution return.
type ContentRow struct {
	ID       uint64
	Link     string
	Type     string
	Title    string
	Username string
}

type General struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *zap.SugaredLogger
}

func NewGeneral(db *gorm.DB, cfg *config.Config, l *zap.SugaredLogger) *General {
	return &General{
		db:     db,
		cfg:    cfg,
		logger: l,
	}
}

func (s *General) Register(username, pass string) error {
	hash, err := s.bcryptGen(pass)
	if err != nil {
		return errors.Wrap(err, "bcryptGen")
	}

	existing := db.User{}
	res := s.db.Where("username = ?", username).First(&existing)
	if res.Error == nil {
		return ErrUsernameTaken
	}
	if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return res.Error
	}

	res = s.db.Create(&db.User{
		Username: username,
		Password: hash,
	})
	if res.Error != nil {
		// The unique index backs up the lookup above when two signups race.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return res.Error
	}
	return nil
}

func (s *General) Login(username, pass string) (string, error) {
	user := db.User{}
	res := s.db.Where("username = ?", username).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", res.Error
	}

	if err := s.bcryptCheck(user.Password, pass); err != nil {
		return "", ErrInvalidCredentials
	}

	ttl := time.Duration(s.cfg.TokenTTLMinutes) * time.Minute
	signed, err := token.Issue(s.cfg.JWTSecret, ttl, user.ID)
	if err != nil {
		return "", errors.Wrap(err, "issue token")
	}
	return signed, nil
}

func (s *General) ContentCreate(userID uint64, link, contentType, title string) (*db.Content, error) {
	model := db.Content{
		Link:   link,
		Type:   contentType,
		Title:  title,
		UserID: userID,
	}

	res := s.db.Create(&model)
	if res.Error != nil {
		return nil, res.Error
	}

	return &model, nil
}

func (s *General) ContentList(userID uint64) ([]ContentRow, error) {
	sql, args, err := squirrel.
		Select("c.id", "c.link", "c.type", "c.title", "u.username").From("contents c").
		Join("users u ON u.id = c.user_id").
		OrderBy("c.id").
		Where(squirrel.Eq{"c.user_id": userID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	rows := make([]ContentRow, 0)
	res := s.db.Raw(sql, args...).Scan(&rows)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "scan")
	}

	return rows, nil
}

// ContentDelete removes the item only when both id and owner match. An
// unknown or non-owned id deletes nothing and is not an error.
func (s *General) ContentDelete(userID, contentID uint64) error {
	res := s.db.Where("user_id = ?", userID).Delete(&db.Content{}, contentID)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (s *General) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *General) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}
