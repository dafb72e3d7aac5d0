package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agrorain/advisory"
	"agrorain/climate"
)

type adviseRequest struct {
	analyzeRequest
	Question string `json:"question"`
}

// AdviseHandler runs the analysis pipeline and resolves the report through
// the advisory fallback chain. Past data acquisition, this endpoint always
// answers with some advisory text.
func AdviseHandler(c *gin.Context, svc *climate.Service, orch *advisory.Orchestrator) {
	var req adviseRequest
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

	advice := orch.Advise(c.Request.Context(), rep, req.Question)

	c.JSON(http.StatusOK, gin.H{
		"advisory": advice,
		"report":   rep,
	})
}
