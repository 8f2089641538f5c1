// Package seed loads the development data set into an empty database.
package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"natours/internal/authz"
	"natours/internal/models"
	"natours/internal/repositories"
)

type User struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     authz.Role `json:"role"`
	Photo    string     `json:"photo"`
	Password string     `json:"password"`
}

// Tour references its guides by email.
type Tour struct {
	models.TourInput
	Guides []string `json:"guides"`
}

// Review references its tour by name and its author by email.
type Review struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
	Tour   string  `json:"tour"`
	User   string  `json:"user"`
}

type Data struct {
	Users   []User
	Tours   []Tour
	Reviews []Review
}

// Load reads users.json, tours.json and reviews.json from dir.
func Load(dir string) (*Data, error) {
	var d Data
	files := []struct {
		name string
		dst  any
	}{
		{"users.json", &d.Users},
		{"tours.json", &d.Tours},
		{"reviews.json", &d.Reviews},
	}
	for _, f := range files {
		raw, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.name, err)
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
	}
	return &d, nil
}

// Import inserts d through the repositories so every write goes through the
// same SQL and rating recalculation as the API.
func Import(ctx context.Context, db *sql.DB, d *Data, hash func(string) (string, error)) error {
	users := repositories.NewUserRepository(db)
	tours := repositories.NewTourRepository(db)
	reviews := repositories.NewReviewRepository(db)

	userIDs := make(map[string]int64, len(d.Users))
	for _, u := range d.Users {
		h, err := hash(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		m := &models.User{Name: u.Name, Email: u.Email, Role: u.Role, Photo: u.Photo, PasswordHash: h}
		if err := users.Create(ctx, m); err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
		userIDs[strings.ToLower(u.Email)] = m.ID
	}
	log.Printf("[seed] %d users", len(d.Users))

	tourIDs := make(map[string]int64, len(d.Tours))
	for _, t := range d.Tours {
		in := t.TourInput
		for _, email := range t.Guides {
			id, ok := userIDs[strings.ToLower(email)]
			if !ok {
				return fmt.Errorf("tour %v: unknown guide %s", t.Name, email)
			}
			in.Guides = append(in.Guides, id)
		}
		if in.Name == nil {
			return fmt.Errorf("tour without a name")
		}
		doc, err := tours.Create(ctx, in, slug.Make(*in.Name))
		if err != nil {
			return fmt.Errorf("tour %s: %w", *in.Name, err)
		}
		var created struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(doc, &created); err != nil {
			return fmt.Errorf("decode tour %s: %w", *in.Name, err)
		}
		tourIDs[*in.Name] = created.ID
	}
	log.Printf("[seed] %d tours", len(d.Tours))

	for _, r := range d.Reviews {
		tourID, ok := tourIDs[r.Tour]
		if !ok {
			return fmt.Errorf("review: unknown tour %q", r.Tour)
		}
		userID, ok := userIDs[strings.ToLower(r.User)]
		if !ok {
			return fmt.Errorf("review: unknown user %s", r.User)
		}
		text, rating := r.Review, r.Rating
		if _, err := reviews.Create(ctx, models.ReviewInput{Review: &text, Rating: &rating, Tour: &tourID, User: &userID}); err != nil {
			return fmt.Errorf("review by %s on %s: %w", r.User, r.Tour, err)
		}
	}
	log.Printf("[seed] %d reviews", len(d.Reviews))
	return nil
}

const truncateAll = `TRUNCATE bookings, reviews, tour_guides, tours, users RESTART IDENTITY CASCADE`

// Delete empties every application table.
func Delete(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, truncateAll); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	log.Printf("[seed] data deleted")
	return nil
}
