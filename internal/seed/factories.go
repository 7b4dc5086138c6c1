// Package seed provides helpers to create demo data for the microblog
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/sentiment"
	"microblog/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the plaintext every seeded account logs in with.
const DefaultPassword = "password123"

var usernameJunk = regexp.MustCompile(`[^a-z0-9_]+`)

var (
	upbeat = []string{
		"Loving the new %s, it is great.",
		"Had an awesome day working on my %s.",
		"So happy with how the %s turned out!",
		"Thanks everyone for the help with the %s, you are wonderful.",
	}
	gloomy = []string{
		"This %s is terrible and I hate it.",
		"Worst %s ever, really disappointed.",
		"Sad that the %s broke again.",
		"Annoyed by the %s today, what a mess.",
	}
)

// PasswordHasher is the subset of auth.PasswordHasher the factory needs.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Factory builds users, posts and follows and persists them.
type Factory struct {
	db         *gorm.DB
	opts       Options
	faker      *gofakeit.Faker
	rng        *rand.Rand
	classifier sentiment.Classifier
	hasher     PasswordHasher
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a Factory bound to db. db may be nil in DryRun mode.
func NewFactory(db *gorm.DB, opts Options, hasher PasswordHasher) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:    db,
		opts:  opts,
		faker: gofakeit.New(seed),
		// #nosec G404: acceptable for seeding
		rng:        rand.New(rand.NewSource(seed)),
		classifier: sentiment.Default(),
		hasher:     hasher,
		nextID:     1000,
	}
}

// BuildUser returns an unsaved user whose username and email pass registration validation.
func (f *Factory) BuildUser(n int) *models.User {
	base := usernameJunk.ReplaceAllString(strings.ToLower(f.faker.Username()), "")
	base = strings.Trim(base, "_")
	if len(base) < validation.MinUsernameLength {
		base = "user"
	}
	suffix := fmt.Sprintf("_%d", n)
	if maxBase := validation.MaxUsernameLength - len(suffix); len(base) > maxBase {
		base = strings.TrimRight(base[:maxBase], "_")
	}
	username := base + suffix

	return &models.User{
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
	}
}

// CreateUsers builds and persists count users sharing one password digest.
func (f *Factory) CreateUsers(ctx context.Context, count int) ([]*models.User, error) {
	digest := DefaultPassword
	if !f.opts.SkipBcrypt && f.hasher != nil {
		hashed, err := f.hasher.Hash(DefaultPassword)
		if err != nil {
			return nil, fmt.Errorf("hash seed password: %w", err)
		}
		digest = hashed
	}

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		u := f.BuildUser(i + 1)
		u.Password = digest
		users = append(users, u)
	}

	if f.opts.DryRun {
		for _, u := range users {
			f.nextID++
			u.ID = f.nextID
		}
		middleware.Logger.Info("[dry-run] users built", slog.Int("count", len(users)))
		return users, nil
	}

	if err := f.db.WithContext(ctx).CreateInBatches(&users, f.batchSize()).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// BuildPost returns an unsaved post by author with a sentiment label computed
// from its content and a creation time within the last MaxDays days.
func (f *Factory) BuildPost(author *models.User) *models.Post {
	content := f.faker.Sentence(f.rng.Intn(10) + 5)
	switch f.rng.Intn(3) {
	case 0:
		content = fmt.Sprintf(upbeat[f.rng.Intn(len(upbeat))], f.faker.Noun()) + " " + content
	case 1:
		content = fmt.Sprintf(gloomy[f.rng.Intn(len(gloomy))], f.faker.Noun()) + " " + content
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	age := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute

	return &models.Post{
		Content:   content,
		UserID:    author.ID,
		Sentiment: models.Sentiment(f.classifier.Classify(content)),
		CreatedAt: time.Now().Add(-age),
	}
}

// CreatePosts spreads count posts across authors at random.
func (f *Factory) CreatePosts(ctx context.Context, authors []*models.User, count int) ([]*models.Post, error) {
	if len(authors) == 0 || count <= 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		posts = append(posts, f.BuildPost(authors[f.rng.Intn(len(authors))]))
	}

	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		middleware.Logger.Info("[dry-run] posts built", slog.Int("count", len(posts)))
		return posts, nil
	}

	if err := f.db.WithContext(ctx).Omit(clause.Associations).CreateInBatches(&posts, f.batchSize()).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// CreateFollows gives every user up to perUser distinct followees, never themselves.
// Existing edges are skipped, so running twice is safe.
func (f *Factory) CreateFollows(ctx context.Context, users []*models.User, perUser int) ([]models.Follow, error) {
	if len(users) < 2 || perUser <= 0 {
		return nil, nil
	}
	if perUser > len(users)-1 {
		perUser = len(users) - 1
	}

	edges := make([]models.Follow, 0, len(users)*perUser)
	for i, follower := range users {
		added := 0
		for _, j := range f.rng.Perm(len(users)) {
			if added == perUser {
				break
			}
			if j == i {
				continue
			}
			edges = append(edges, models.Follow{FollowerID: follower.ID, FollowedID: users[j].ID})
			added++
		}
	}

	if f.opts.DryRun {
		middleware.Logger.Info("[dry-run] follows built", slog.Int("count", len(edges)))
		return edges, nil
	}

	if err := f.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&edges, f.batchSize()).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize > 0 {
		return f.opts.BatchSize
	}
	return 100
}
