package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/costbook_backend/faults"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/models/reports"
	"github.com/mmdatafocus/costbook_backend/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (a *api) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := faults.Do(ctx, a.faults, "dashboard", func() (*reports.DashboardStats, error) {
		return a.reader.GetDashboardStats(ctx)
	})
	if err != nil {
		a.faults.Respond(c, "BackupHandlers", "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a *api) exportBackup(c *gin.Context) {
	ctx := c.Request.Context()
	backup, err := faults.Do(ctx, a.faults, "exportBackup", func() (*models.RecipeBackup, error) {
		return a.reader.ExportRecipes(ctx)
	})
	if err != nil {
		a.faults.Respond(c, "BackupHandlers", "exportBackup", err)
		return
	}
	filename := fmt.Sprintf("recipes-backup-%s.json", backup.Timestamp.Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.JSON(http.StatusOK, backup)
}

func (a *api) importBackup(c *gin.Context) {
	var backup models.RecipeBackup
	if err := bindJSON(c, &backup); err != nil {
		a.faults.Respond(c, "BackupHandlers", "importBackup", err)
		return
	}
	result, err := models.ImportRecipes(c.Request.Context(), &backup)
	if err != nil {
		a.faults.Respond(c, "BackupHandlers", "importBackup", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// cloudBackup stores the JSON backup under <userId>/backups/<timestamp>.json.
func (a *api) cloudBackup(c *gin.Context) {
	ctx := c.Request.Context()
	if a.store == nil {
		a.faults.Respond(c, "BackupHandlers", "cloudBackup", errStorageNotConfigured)
		return
	}
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		a.faults.Respond(c, "BackupHandlers", "cloudBackup", err)
		return
	}
	backup, err := faults.Do(ctx, a.faults, "cloudBackup", func() (*models.RecipeBackup, error) {
		return a.reader.ExportRecipes(ctx)
	})
	if err != nil {
		a.faults.Respond(c, "BackupHandlers", "cloudBackup", err)
		return
	}
	data, err := json.Marshal(backup)
	if err != nil {
		a.faults.Respond(c, "BackupHandlers", "cloudBackup", err)
		return
	}

	objectKey := path.Join(userId, "backups", backup.Timestamp.Format("20060102T150405Z")+".json")
	err = a.faults.Retry(ctx, "cloudBackup", func() error {
		return a.store.Put(ctx, objectKey, data, "application/json")
	})
	if err != nil {
		a.faults.Respond(c, "BackupHandlers", "cloudBackup", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"objectKey":    objectKey,
		"url":          utils.BuildObjectAccessURL(objectKey),
		"totalRecipes": backup.TotalRecipes,
		"timestamp":    backup.Timestamp,
	})
}

func (a *api) exportExcel(c *gin.Context) {
	var buf bytes.Buffer
	if err := reports.ExportRecipesExcel(c.Request.Context(), &buf); err != nil {
		a.faults.Respond(c, "BackupHandlers", "exportExcel", err)
		return
	}
	filename := fmt.Sprintf("recipes-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
