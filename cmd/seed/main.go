// Command main fills the microblog database with fake users, posts and follows.
package main

import (
	"context"
	"flag"
	"log"

	"microblog/internal/auth"
	"microblog/internal/config"
	"microblog/internal/database"
	"microblog/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Follows per user")
	maxDays := flag.Int("days", defaults.MaxDays, "Spread post timestamps over this many past days")
	shouldClean := flag.Bool("clean", false, "Delete existing users, posts and follows first")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store the demo password unhashed (throwaway databases only)")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	log.Printf("Target: %d users, %d posts, %d follows each, clean=%v dry-run=%v",
		*numUsers, *numPosts, *follows, *shouldClean, *dryRun)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() && (*shouldClean || *skipBcrypt) {
		log.Fatal("Refusing to clean or skip bcrypt in production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.FollowsPerUser = *follows
	opts.MaxDays = *maxDays
	opts.Clean = *shouldClean
	opts.DryRun = *dryRun
	opts.SkipBcrypt = *skipBcrypt
	opts.RandomSeed = *randomSeed

	res, err := seed.NewSeeder(db, opts, auth.NewPasswordHasher(cfg.BcryptCost)).Run(context.Background())
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d users, %d posts, %d follows", res.Users, res.Posts, res.Follows)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
