package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agrorain/nasapower"
)

// RegionsHandler lists the regions the data source covers.
func RegionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"regions": nasapower.Regions()})
}
