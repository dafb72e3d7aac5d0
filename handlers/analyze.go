package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agrorain/climate"
	"agrorain/types"
)

type analyzeRequest struct {
	Region string `json:"region" binding:"required"`
	Start  string `json:"start"` // YYYY-MM, defaults to start of coverage
	End    string `json:"end"`   // YYYY-MM, defaults to current month
}

// AnalyzeHandler runs the full analysis pipeline and returns the structured
// report.
func AnalyzeHandler(c *gin.Context, svc *climate.Service) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, end, err := resolvePeriod(svc, req.Start, req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rep, err := svc.Analyze(c.Request.Context(), req.Region, start, end)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, rep)
}

// writeAnalysisError maps the error taxonomy onto HTTP statuses: bad input is
// the caller's fault, short series are unprocessable, provider outages are an
// upstream failure.
func writeAnalysisError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrRegionNotRecognized), errors.Is(err, types.ErrInvalidPeriod):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrProviderUnavailable):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func resolvePeriod(svc *climate.Service, startStr, endStr string) (time.Time, time.Time, error) {
	start, end := svc.DefaultPeriod()

	if startStr != "" {
		t, err := time.Parse("2006-01", startStr)
		if err != nil {
			return start, end, fmt.Errorf("%w: start %q", types.ErrInvalidPeriod, startStr)
		}
		start = t
	}
	if endStr != "" {
		t, err := time.Parse("2006-01", endStr)
		if err != nil {
			return start, end, fmt.Errorf("%w: end %q", types.ErrInvalidPeriod, endStr)
		}
		end = t
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: end %s before start %s", types.ErrInvalidPeriod,
			end.Format("2006-01"), start.Format("2006-01"))
	}
	return start, end, nil
}
