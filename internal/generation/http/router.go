package http

import "github.com/gin-gonic/gin"

// Register registers the generation routes. The generate endpoint is rate
// limited; status polling is not.
func (h *Handler) Register(rg *gin.RouterGroup, rps float64, burst int) {
	rg.POST("/projects/generate", RateLimit(rps, burst), h.GenerateProject)
	rg.GET("/projects/:id/status", h.GetProjectStatus)
}
