package bootstrap

import (
	httpapi "github.com/canopus-software/aoede-backend/internal/api/http"
	genhttp "github.com/canopus-software/aoede-backend/internal/generation/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RouterDeps struct {
	ServiceName   string
	Version       string
	Redis         *redis.Client
	DB            *pgxpool.Pool
	Runner        genhttp.Runner
	Statuses      genhttp.StatusReader
	Projects      genhttp.ProjectStore
	MaxIterations int
	RateRPS       float64
	RateBurst     int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Redis, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	genHandler := genhttp.NewHandler(dep.Runner, dep.Statuses, dep.Projects, dep.MaxIterations)
	genHandler.Register(api, dep.RateRPS, dep.RateBurst)

	return r
}
