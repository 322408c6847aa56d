// Command seed fills the database with demo users, posts, likes, comments and messages.
package main

import (
	"context"
	"flag"
	"log"

	"campusfeed/internal/bootstrap"
	"campusfeed/internal/config"
	"campusfeed/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.NumUsers, "users", opts.NumUsers, "Number of users to create")
	flag.IntVar(&opts.NumPosts, "posts", opts.NumPosts, "Number of posts to create")
	flag.IntVar(&opts.Conversations, "conversations", opts.Conversations, "Number of user pairs that exchange messages")
	flag.IntVar(&opts.MaxDays, "days", opts.MaxDays, "Spread timestamps over this many past days")
	flag.BoolVar(&opts.ShouldClean, "clean", opts.ShouldClean, "Clean database before seeding")
	flag.Int64Var(&opts.RandomSeed, "seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = rt.Close() }()

	summary, err := seed.Seed(ctx, rt.DB, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d posts, %d likes, %d comments, %d messages (password %q)",
		summary.Users, summary.Posts, summary.Likes, summary.Comments, summary.Messages, seed.DefaultPassword)
}
