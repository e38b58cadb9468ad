package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-parkspot/processor"
	"go-parkspot/types"
)

// PostReport submits the "I parked here" questionnaire. Omitting both lat and
// lon means "I parked where the map is": the report is placed at the active
// coordinate. With no active coordinate, or with only one of the two given,
// validation rejects it with 400.
func PostReport(c *gin.Context, vs ViewState) {
	var report processor.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report payload"})
		return
	}

	if !report.Lat.IsSet() && !report.Lon.IsSet() {
		if active := vs.Snapshot().ActiveCoordinate; active != nil {
			report.Lat = types.Num(active.Latitude)
			report.Lon = types.Num(active.Longitude)
		}
	}

	ev, err := vs.Submit(c.Request.Context(), report)
	if err != nil {
		var ve *types.ValidationError
		var se *types.StoreWriteError
		var te *types.TransportError
		status := http.StatusInternalServerError
		switch {
		case errors.As(err, &ve):
			status = http.StatusBadRequest
		case errors.Is(err, types.ErrSubmissionInFlight):
			status = http.StatusConflict
		case errors.As(err, &se), errors.As(err, &te):
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": types.UserMessage(err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    ev.ID,
		"event": ev,
	})
}
