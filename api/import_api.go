package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fleetpay/fleetpay/model"
)

// StartImport accepts a spreadsheet upload and kicks off a background
// import run for the tenant.
func (a Api) StartImport(c *gin.Context) {
	tenantID := c.PostForm("tenant_id")
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File upload failed"})
		return
	}
	defer file.Close()

	opts := model.ImportOptions{
		TenantID:            tenantID,
		AutoCreateCustomers: c.PostForm("auto_create_customers") == "true",
		SkipValidation:      c.PostForm("skip_validation") == "true",
		UseAutoFix:          c.PostForm("use_auto_fix") != "false",
	}
	if batchSize := c.PostForm("batch_size"); batchSize != "" {
		size, err := strconv.Atoi(batchSize)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch_size must be a number"})
			return
		}
		opts.BatchSize = size
	}

	importID, err := a.service.StartImport(c.Request.Context(), file, header.Filename, opts)
	if err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"import_id": importID})
}

// GetImportRun returns the persisted state of an import run.
func (a Api) GetImportRun(c *gin.Context) {
	id := c.Param("id")

	run, err := a.service.GetImportRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetImportProgress returns the latest batch checkpoint of an import run.
func (a Api) GetImportProgress(c *gin.Context) {
	id := c.Param("id")

	progress, err := a.service.GetImportProgress(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, progress)
}
