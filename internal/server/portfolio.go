package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": h.catalog.Categories(),
		"projects":   h.catalog.Projects(c.Query("category")),
	})
}

func (h *httpHandler) handleSkills(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories":   h.catalog.Skills(),
		"technologies": h.catalog.Technologies(),
	})
}
