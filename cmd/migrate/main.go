// Command migrate applies or inspects the database schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"folio/internal/config"
	"folio/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(db.WithContext(ctx)); err != nil {
			return err
		}
		log.Println("schema up to date")
	case "status":
		for _, table := range database.SchemaStatus(db.WithContext(ctx)) {
			state := "missing"
			if table.Exists {
				state = "present"
			}
			log.Printf("%-16s %s", table.Name, state)
		}
	default:
		return usage()
	}
	return nil
}
