// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/pipeshark-backend/internal/config"
	"github.com/unclebandit/pipeshark-backend/internal/db"
	"github.com/unclebandit/pipeshark-backend/internal/logger"
	"github.com/unclebandit/pipeshark-backend/internal/middleware"
	"github.com/unclebandit/pipeshark-backend/internal/model"
	"github.com/unclebandit/pipeshark-backend/internal/repository"
)

func main() {
	configPath := flag.String("config", "config/base.yaml", "path to the YAML config")
	dir := flag.String("migrations", "migrations", "directory of .sql files applied in name order")
	demo := flag.Bool("demo", false, "create a demo campaign and print a bearer token for its owner")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New("info").Fatal("Failed to load config", zap.Error(err))
	}
	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	database, err := db.Open(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	files, err := migrationFiles(*dir)
	if err != nil {
		log.Fatal("Failed to list migrations", zap.Error(err))
	}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal("Failed to read migration", zap.String("file", file), zap.Error(err))
		}
		if _, err := database.Exec(string(content)); err != nil {
			log.Fatal("Failed to apply migration", zap.String("file", file), zap.Error(err))
		}
		log.Info("Applied", zap.String("file", file))
	}

	if !*demo {
		fmt.Println("Database migration completed successfully!")
		return
	}

	userID := uuid.New()
	campaign := &model.Campaign{
		UserID:       userID,
		Name:         "Demo: cafes in Lisbon",
		BusinessType: "cafe",
		City:         "Lisbon",
		Country:      "Portugal",
		Credits:      10,
		Tone:         "friendly",
		Goal:         "book a short intro call",
		Status:       "draft",
	}
	repo := &repository.CampaignRepository{DB: database}
	if err := repo.Create(context.Background(), campaign); err != nil {
		log.Fatal("Failed to create demo campaign", zap.Error(err))
	}
	token, err := middleware.GenerateJWT(userID, cfg.Auth.JWTSecret, 24*time.Hour)
	if err != nil {
		log.Fatal("Failed to sign demo token", zap.Error(err))
	}
	fmt.Printf("Demo user:     %s\nDemo campaign: %s\nBearer token:  %s\n", userID, campaign.ID, token)
}

// migrationFiles returns the .sql files in dir sorted by name.
func migrationFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}
