package seed

import (
	"context"
	"fmt"
	"log/slog"

	"microblog/internal/middleware"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers       int
	NumPosts       int
	FollowsPerUser int
	// MaxDays bounds how far back post timestamps are spread.
	MaxDays   int
	BatchSize int
	// SkipBcrypt stores the plaintext password; only for throwaway databases.
	SkipBcrypt bool
	DryRun     bool
	// Clean deletes existing microblog rows before seeding.
	Clean      bool
	RandomSeed int64
}

// DefaultOptions is what SEED_ON_START and cmd/seed use without flags.
func DefaultOptions() Options {
	return Options{
		NumUsers:       20,
		NumPosts:       200,
		FollowsPerUser: 5,
		MaxDays:        30,
		BatchSize:      100,
	}
}

// Result counts what a run produced.
type Result struct {
	Users   int
	Posts   int
	Follows int
}

type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder. hasher may be nil when opts.SkipBcrypt is set.
func NewSeeder(db *gorm.DB, opts Options, hasher PasswordHasher) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts, hasher)}
}

// Run seeds users, then posts, then follows.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	middleware.Logger.InfoContext(ctx, "starting database seeding",
		slog.Int("users", s.opts.NumUsers),
		slog.Int("posts", s.opts.NumPosts),
		slog.Int("follows_per_user", s.opts.FollowsPerUser),
		slog.Bool("dry_run", s.opts.DryRun),
	)

	if s.opts.Clean && !s.opts.DryRun {
		if err := ClearData(ctx, s.db); err != nil {
			return res, fmt.Errorf("clear data: %w", err)
		}
	}

	users, err := s.factory.CreateUsers(ctx, s.opts.NumUsers)
	if err != nil {
		return res, fmt.Errorf("failed to create users: %w", err)
	}
	res.Users = len(users)

	posts, err := s.factory.CreatePosts(ctx, users, s.opts.NumPosts)
	if err != nil {
		return res, fmt.Errorf("failed to create posts: %w", err)
	}
	res.Posts = len(posts)

	follows, err := s.factory.CreateFollows(ctx, users, s.opts.FollowsPerUser)
	if err != nil {
		return res, fmt.Errorf("failed to create follows: %w", err)
	}
	res.Follows = len(follows)

	middleware.Logger.InfoContext(ctx, "database seeding completed",
		slog.Int("users", res.Users),
		slog.Int("posts", res.Posts),
		slog.Int("follows", res.Follows),
	)
	return res, nil
}

// ClearData removes every row from the microblog tables, children first.
func ClearData(ctx context.Context, db *gorm.DB) error {
	for _, table := range []string{"comments", "follows", "posts", "users"} {
		if err := db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
