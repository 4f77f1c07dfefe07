package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/fleetpay/fleetpay/api/model"
)

// StartLinkingRun kicks off a background linking run for the tenant's
// unlinked payments.
func (a Api) StartLinkingRun(c *gin.Context) {
	var req model2.StartLinking
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := req.ValidateStartLinking(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	linkingID, err := a.service.StartLinkingRun(c.Request.Context(), req.TenantID, req.DryRun)
	if err != nil {
		logrus.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start linking run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"linking_id": linkingID})
}

// GetLinkingRun returns the persisted state of a linking run.
func (a Api) GetLinkingRun(c *gin.Context) {
	id := c.Param("id")

	run, err := a.service.GetLinkingRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetLinkingSuggestions computes link suggestions for the tenant's
// unlinked payments without writing anything.
func (a Api) GetLinkingSuggestions(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}

	suggestions, err := a.service.SuggestLinks(c.Request.Context(), tenantID)
	if err != nil {
		logrus.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute suggestions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions, "total": len(suggestions)})
}
