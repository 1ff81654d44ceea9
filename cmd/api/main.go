package main

import (
	"context"
	"log"

	"github.com/canopus-software/aoede-backend/config"
	"github.com/canopus-software/aoede-backend/internal/bootstrap"
	"github.com/canopus-software/aoede-backend/internal/generation/ai"
	genhttp "github.com/canopus-software/aoede-backend/internal/generation/http"
	"github.com/canopus-software/aoede-backend/internal/generation/repository"
	"github.com/canopus-software/aoede-backend/internal/generation/service"
	"github.com/canopus-software/aoede-backend/internal/sandbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	redisClient, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	statusRepo := repository.NewStatusRepository(redisClient)

	// Postgres is optional: without DB_DSN the service runs but does not
	// persist finalized artifacts.
	var (
		projects  genhttp.ProjectStore
		artifacts service.ArtifactStore
	)
	deps := bootstrap.RouterDeps{
		ServiceName:   "aoede-backend",
		Version:       cfg.App.Version,
		Redis:         redisClient,
		MaxIterations: cfg.Generation.MaxIterations,
		RateRPS:       cfg.Generation.RateRPS,
		RateBurst:     cfg.Generation.RateBurst,
	}
	if cfg.Database.DSN != "" {
		pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
			DSN:      cfg.Database.DSN,
			MaxConns: int32(cfg.Database.MaxConns),
		})
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer pool.Close()

		projectRepo := repository.NewProjectRepository(pool)
		projects = projectRepo
		artifacts = projectRepo
		deps.DB = pool
	} else {
		log.Println("DB_DSN not set, artifact persistence disabled")
	}

	executor := sandbox.NewDockerExecutor(sandbox.DockerConfig{
		Image:       cfg.Sandbox.Image,
		BaseDir:     cfg.Sandbox.BaseDir,
		MemoryLimit: cfg.Sandbox.MemoryLimit,
		CPUs:        cfg.Sandbox.CPUs,
	})

	aiClient := ai.NewClient(cfg.AI)
	orchestrator := service.NewOrchestrator(aiClient, aiClient, executor, statusRepo, artifacts)

	deps.Runner = orchestrator
	deps.Statuses = statusRepo
	deps.Projects = projects

	r := bootstrap.BuildRouter(deps)

	log.Printf("aoede-backend %s listening on :%s", cfg.App.Version, cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
