package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/config"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/model"
	pg "github.com/MALONZAFX/LUMENDEO-TV/internal/infra/db/postgres"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// Apply schema (idempotent: everything is IF NOT EXISTS)
	schema, err := os.ReadFile("deploy/postgres/init.sql")
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied.")

	logger := zerolog.New(os.Stdout)
	videoRepo := pg.NewVideoRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	catalogUC := usecase.NewCatalogUseCase(videoRepo, payRepo, pg.NewTxManager(pool), &logger)

	// If videos already exist, do nothing
	videos, err := catalogUC.ListAll(ctx)
	if err != nil {
		log.Fatalf("list videos: %v", err)
	}
	if len(videos) > 0 {
		fmt.Printf("%d videos already present. No changes.\n", len(videos))
		for _, v := range videos {
			fmt.Printf("  - %s (expires %s)\n", v.Title, v.ExpireDate.Format("2006-01-02"))
		}
		return
	}

	// Seed a demo catalog entry for testing the payment flow
	v, err := catalogUC.Create(ctx, &model.VideoAsset{
		Title:         "Nairobi Nights",
		VideoPath:     "videos/nairobi-nights.mp4",
		TrailerPath:   "trailers/nairobi-nights.mp4",
		ThumbnailPath: "thumbs/nairobi-nights.jpg",
		YearPublished: 2024,
		Introduction:  "A taxi driver and a runaway bride cross the city in one unforgettable night",
		CastMembers:   "A. Wanjiru, B. Otieno",
		Theme:         "Drama",
		Length:        "1h 42m",
		MovieType:     "feature",
		ExpireDate:    time.Now().Add(90 * 24 * time.Hour),
	})
	if err != nil {
		log.Fatalf("create video: %v", err)
	}
	fmt.Printf("seeded: %s (id=%s)\n", v.Title, v.ID)
	fmt.Println("✅ Seeding complete.")
}
