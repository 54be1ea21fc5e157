// Command seed_profiles inserts sample profiles for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pageza/fitcheck/backend/config"
	"github.com/pageza/fitcheck/backend/internal/database"
	"github.com/pageza/fitcheck/backend/internal/logging"
	"github.com/pageza/fitcheck/backend/internal/models"
	"github.com/pageza/fitcheck/backend/internal/service"
	"github.com/pageza/fitcheck/backend/internal/types"
)

func strPtr(s string) *string { return &s }

var sampleProfiles = []types.CreateProfileRequest{
	{Email: "john.doe@example.com", BodyType: "athletic", SkinTone: "fair"},
	{Email: "jane.smith@example.com", BodyType: "hourglass", SkinTone: "olive"},
	{Email: "bob.wilson@example.com", BodyType: "rectangle", SkinTone: "deep"},
	{Email: "alice.cooper@example.com", BodyType: "pear", SkinTone: "medium",
		ProfilePhoto: strPtr("https://images.example.com/profiles/alice.jpg")},
	{Email: "sam.lee@example.com", BodyType: "slim", SkinTone: "tan"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed_profiles: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Environment == config.Production {
		return errors.New("refusing to seed a production database")
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	profiles := service.NewProfileService(db, service.WithLogger(log))
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created := 0
	for _, sample := range sampleProfiles {
		req := sample

		existing, _, err := profiles.ListProfiles(ctx, types.ProfileFilter{Email: req.Email, Limit: 1})
		if err != nil {
			return fmt.Errorf("failed to check existing profiles: %w", err)
		}
		if len(existing) > 0 {
			log.WithField("email", req.Email).Info("profile already exists, skipping")
			continue
		}

		profile, err := profiles.CreateProfile(ctx, &req)
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			log.WithField("email", req.Email).WithError(err).Warn("skipping invalid sample")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		printProfile(profile)
		created++
	}

	log.WithField("created", created).Info("seeding complete")
	return nil
}

func printProfile(p *models.UserProfile) {
	photo := "-"
	if p.HasPhoto() {
		photo = *p.ProfilePhoto
	}
	fmt.Printf("%4d  %-28s %-10s %-8s %s\n", p.ID, p.Email, p.BodyType, p.SkinTone, photo)
}
