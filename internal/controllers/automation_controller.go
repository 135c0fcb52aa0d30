package controllers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// UploadMeta carries the upload fields checked before anything is persisted.
type UploadMeta struct {
	TeamName    string `json:"teamName"`
	Module      string `json:"module"`
	Owner       string `json:"owner"`
	Description string `json:"description"`
	ErrorName   string `json:"errorName"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
}

var allowedLogExtensions = map[string]bool{
	".log":  true,
	".txt":  true,
	".json": true,
}

// ValidateUploadMeta returns one message per problem, empty when the upload
// would be accepted.
func ValidateUploadMeta(meta UploadMeta, maxBytes int64) []string {
	var problems []string

	if strings.TrimSpace(meta.TeamName) == "" {
		problems = append(problems, "teamName is required")
	}
	if strings.TrimSpace(meta.Module) == "" {
		problems = append(problems, "module is required")
	}
	if strings.TrimSpace(meta.Owner) == "" {
		problems = append(problems, "owner is required")
	}
	if strings.TrimSpace(meta.FileName) == "" {
		problems = append(problems, "fileName is required")
	} else {
		ext := strings.ToLower(filepath.Ext(meta.FileName))
		if !allowedLogExtensions[ext] {
			problems = append(problems, "only .log, .txt and .json files are supported")
		}
	}
	if meta.FileSize < 0 {
		problems = append(problems, "fileSize must not be negative")
	} else if maxBytes > 0 && meta.FileSize > maxBytes {
		problems = append(problems, fmt.Sprintf("file exceeds the %d MB upload limit", maxBytes/(1024*1024)))
	}

	return problems
}

// AutomationController serves CI integrations that pre-validate uploads.
type AutomationController struct {
	maxUploadBytes int64
}

func NewAutomationController() *AutomationController {
	maxMB := 16
	if v := os.Getenv("MAX_UPLOAD_SIZE_MB"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxMB = parsed
		}
	}
	return &AutomationController{maxUploadBytes: int64(maxMB) * 1024 * 1024}
}

// Validate dry-runs the upload checks against metadata without storing
// anything, so pipelines can fail fast before shipping the file.
func (ac *AutomationController) Validate(c *gin.Context) {
	var meta UploadMeta
	if err := c.ShouldBindJSON(&meta); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	problems := ValidateUploadMeta(meta, ac.maxUploadBytes)
	if len(problems) > 0 {
		c.JSON(http.StatusOK, gin.H{
			"valid":    false,
			"problems": problems,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"problems": []string{},
	})
}
