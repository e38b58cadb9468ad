package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-parkspot/processor"
	"go-parkspot/tracker"
	"go-parkspot/types"
	"go-parkspot/viewstate"
)

// ViewState is the coordinator as the HTTP layer sees it.
type ViewState interface {
	Snapshot() viewstate.Snapshot
	Refresh(events, prediction bool)
	SetConditions(cond types.Conditions)
	Dismiss()
	Submit(ctx context.Context, r processor.Report) (types.ParkingEvent, error)
}

// Locator switches between live tracking and a manual location.
type Locator interface {
	Override(c types.Coordinate) error
	Resume()
}

// PositionFeed receives raw fixes from the device.
type PositionFeed interface {
	Push(c types.Coordinate, at time.Time) error
}

type coordinateRequest struct {
	Latitude  *float64   `json:"latitude" binding:"required"`
	Longitude *float64   `json:"longitude" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

func (r coordinateRequest) coordinate() types.Coordinate {
	return types.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

func GetState(c *gin.Context, vs ViewState) {
	c.JSON(http.StatusOK, vs.Snapshot())
}

// PostPosition feeds a device fix into the location provider.
func PostPosition(c *gin.Context, feed PositionFeed) {
	var req coordinateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	at := time.Now()
	if req.Timestamp != nil {
		at = *req.Timestamp
	}

	err := feed.Push(req.coordinate(), at)
	switch {
	case errors.Is(err, types.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, tracker.ErrInvalidFix):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record position"})
	default:
		c.Status(http.StatusAccepted)
	}
}

// PostOverride pins the view to a chosen coordinate, usually a search hit.
func PostOverride(c *gin.Context, loc Locator) {
	var req coordinateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}
	if err := loc.Override(req.coordinate()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusAccepted)
}

func PostResume(c *gin.Context, loc Locator) {
	loc.Resume()
	c.Status(http.StatusAccepted)
}

// PostRefresh re-runs the events query, the prediction, or both.
func PostRefresh(c *gin.Context, vs ViewState) {
	switch target := c.DefaultQuery("target", "all"); target {
	case "events":
		vs.Refresh(true, false)
	case "prediction":
		vs.Refresh(false, true)
	case "all":
		vs.Refresh(true, true)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "target must be events, prediction or all"})
		return
	}
	c.Status(http.StatusAccepted)
}

type conditionsRequest struct {
	Rain    types.Numeric `json:"rain"`
	IsEvent types.Numeric `json:"is_event"`
}

// PutConditions sets the rain and nearby-event flags sent with predictions.
func PutConditions(c *gin.Context, vs ViewState) {
	var req conditionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conditions payload"})
		return
	}
	cond := types.Conditions{Rain: req.Rain.Bool(), NearbyEvent: req.IsEvent.Bool()}
	vs.SetConditions(cond)
	c.JSON(http.StatusAccepted, cond)
}

func PostDismiss(c *gin.Context, vs ViewState) {
	vs.Dismiss()
	c.Status(http.StatusNoContent)
}
