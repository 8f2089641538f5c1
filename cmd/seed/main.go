// Command seed imports or deletes the development data set.
//
//	go run ./cmd/seed -import
//	go run ./cmd/seed -delete
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"natours/internal/config"
	"natours/internal/database"
	"natours/internal/seed"
	"natours/internal/services"
)

func main() {
	var (
		doImport = flag.Bool("import", false, "import the data set")
		doDelete = flag.Bool("delete", false, "delete all data")
		dir      = flag.String("dir", "dev-data", "directory holding users.json, tours.json and reviews.json")
	)
	flag.Parse()
	if *doImport == *doDelete {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("[seed] config: %v", err)
	}
	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("[seed] %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("[seed] %v", err)
	}

	if *doDelete {
		if err := seed.Delete(ctx, db); err != nil {
			log.Fatalf("[seed] %v", err)
		}
		return
	}

	data, err := seed.Load(*dir)
	if err != nil {
		log.Fatalf("[seed] %v", err)
	}
	auth := services.NewAuthService(nil, nil, services.AuthConfig{Secret: cfg.JWT.Secret})
	if err := seed.Import(ctx, db, data, auth.HashPassword); err != nil {
		log.Fatalf("[seed] import: %v", err)
	}
}
