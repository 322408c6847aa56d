// Package seed provides helpers to create demo data for the application database.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"campusfeed/internal/models"
	"campusfeed/internal/security"
	"campusfeed/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

var (
	genders = []string{"male", "female", "other", ""}
	schools = []string{"North Campus", "South Campus", "Medical School", "School of Arts", "Engineering College"}
	majors  = []string{"Computer Science", "Mathematics", "Biology", "History", "Economics", "Physics", "Design"}
	grades  = []string{"Freshman", "Sophomore", "Junior", "Senior", "Graduate"}
	places  = []string{"Library", "Cafeteria", "Gym", "Lecture Hall 3", "Dorm 7", "Sports Field", ""}
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	fake *gofakeit.Faker
	opts Options
	now  func() time.Time

	// passwordHash is computed once; bcrypt per user would dominate seeding time.
	passwordHash string
	userSeq      int
}

// NewFactory creates a Factory bound to db. A zero opts.RandomSeed picks a time based seed.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	hash := DefaultPassword
	if !opts.SkipBcrypt {
		h, err := security.NewPasswordHasher(security.DefaultCost).Hash(DefaultPassword)
		if err != nil {
			return nil, fmt.Errorf("hash seed password: %w", err)
		}
		hash = h
	}

	return &Factory{
		db:           db,
		fake:         gofakeit.New(seed),
		opts:         opts,
		now:          func() time.Time { return time.Now().UTC() },
		passwordHash: hash,
	}, nil
}

// pastTime returns a moment within the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	now := f.now()
	return f.fake.DateRange(now.Add(-time.Duration(maxDays)*24*time.Hour), now).UTC()
}

// CreateUser persists a user with a unique username and a filled-in profile.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	f.userSeq++
	username := truncate(strings.ToLower(f.fake.Username()), validation.MaxUsernameLength-6)
	created := f.pastTime()

	user := &models.User{
		Username:  fmt.Sprintf("%s_%d", username, f.userSeq),
		Password:  f.passwordHash,
		Nickname:  f.fake.FirstName() + " " + f.fake.LastName(),
		Avatar:    security.RandomAvatar(),
		Email:     f.fake.Email(),
		Phone:     fmt.Sprintf("1%d%09d", f.fake.Number(3, 9), f.fake.Number(0, 999999999)),
		Gender:    f.fake.RandomString(genders),
		School:    f.fake.RandomString(schools),
		Major:     f.fake.RandomString(majors),
		Grade:     f.fake.RandomString(grades),
		Bio:       f.fake.Sentence(12),
		CreatedAt: created,
		UpdatedAt: created,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post for user without persisting it.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	created := f.pastTime()
	if created.Before(user.CreatedAt) {
		created = user.CreatedAt
	}

	visibility := models.VisibilityPublic
	if f.fake.Number(1, 100) <= f.opts.PrivatePercent {
		visibility = models.VisibilityPrivate
	}

	post := &models.Post{
		UserID:     user.ID,
		Content:    truncate(f.fake.Paragraph(1, 3, 10, " "), validation.MaxPostLength),
		Location:   f.fake.RandomString(places),
		Visibility: visibility,
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in one statement.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.CreateInBatches(&posts, 100).Error
}

// CreateComment persists a comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    user.ID,
		Content:   truncate(f.fake.Sentence(8), validation.MaxCommentLength),
		CreatedAt: later(post.CreatedAt, f.pastTime()),
	}

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.db.Create(&models.Like{
		PostID:    post.ID,
		UserID:    user.ID,
		CreatedAt: later(post.CreatedAt, f.pastTime()),
	}).Error
}

// CreateMessage persists a direct message from sender to receiver.
func (f *Factory) CreateMessage(sender, receiver *models.User, overrides ...func(*models.Message)) (*models.Message, error) {
	message := &models.Message{
		SenderID:    sender.ID,
		ReceiverID:  receiver.ID,
		Content:     truncate(f.fake.Sentence(10), validation.MaxMessageLength),
		MessageType: models.MessageTypeText,
		IsRead:      f.fake.Bool(),
		CreatedAt:   f.pastTime(),
	}

	for _, override := range overrides {
		override(message)
	}

	if err := f.db.Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}
