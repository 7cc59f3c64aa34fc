// Command seed fills the development database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	researchers := flag.Int("researchers", defaults.Researchers, "Number of researcher accounts")
	readers := flag.Int("readers", defaults.Readers, "Number of reader accounts")
	posts := flag.Int("posts", defaults.Posts, "Number of posts")
	comments := flag.Int("comments", defaults.MaxComments, "Maximum comments per published post")
	clean := flag.Bool("clean", defaults.Clean, "Clean database before seeding")
	categoriesOnly := flag.Bool("categories-only", false, "Only upsert the built-in categories")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() && !*categoriesOnly {
		log.Fatal("Refusing to seed demo data into production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if *categoriesOnly {
		categories, err := seed.Categories(ctx, db)
		if err != nil {
			log.Fatalf("Category seeding failed: %v", err)
		}
		log.Printf("%d categories up to date", len(categories))
		return
	}

	opts := seed.Options{
		Researchers: *researchers,
		Readers:     *readers,
		Posts:       *posts,
		MaxComments: *comments,
		Clean:       *clean,
	}
	report, err := seed.NewSeeder(db, opts).Run(ctx, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d posts, %d comments, %d likes (password %q)",
		report.Users, report.Posts, report.Comments, report.Likes, seed.DefaultPassword)
}
