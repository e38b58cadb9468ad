package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-parkspot/types"
)

type Searcher interface {
	Search(ctx context.Context, query string) ([]types.Place, error)
}

type HealthChecker interface {
	CheckConnection(ctx context.Context) error
}

// SearchPlaces geocodes the q parameter.
func SearchPlaces(c *gin.Context, s Searcher) {
	places, err := s.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "location search is unavailable"})
		return
	}
	if places == nil {
		places = []types.Place{}
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

// Health checks that the event store answers a one document query.
func Health(c *gin.Context, store HealthChecker, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := store.CheckConnection(ctx); err != nil {
		log.Warn("event store check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
