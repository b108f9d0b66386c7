// Package startup provides utilities for application startup tasks.
package startup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/repository"
)

// TempDirPrefix is the prefix used for krai proxy temp directories.
const TempDirPrefix = "krai-proxy-"

// CleanupOrphanedTempDirs removes orphaned temporary directories that are older
// than the specified maxAge. It looks for directories matching the pattern
// "krai-proxy-*" in the specified base directory.
//
// Returns the number of directories removed and any error encountered.
func CleanupOrphanedTempDirs(logger *slog.Logger, baseDir string, maxAge time.Duration) (int, error) {
	// Check if the base directory exists
	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		logger.Debug("base directory does not exist, skipping cleanup",
			"path", baseDir,
		)
		return 0, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		logger.Error("failed to read directory for cleanup",
			"path", baseDir,
			"error", err,
		)
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int

	for _, entry := range entries {
		// Only process directories
		if !entry.IsDir() {
			continue
		}

		// Only process directories matching our prefix
		if !strings.HasPrefix(entry.Name(), TempDirPrefix) {
			continue
		}

		dirPath := filepath.Join(baseDir, entry.Name())

		// Get file info for modification time
		info, err := entry.Info()
		if err != nil {
			logger.Warn("failed to get directory info",
				"path", dirPath,
				"error", err,
			)
			continue
		}

		// Check if directory is older than cutoff
		if info.ModTime().After(cutoff) {
			logger.Debug("preserving recent temp directory",
				"path", dirPath,
				"age", time.Since(info.ModTime()).Round(time.Second),
			)
			continue
		}

		// Remove the orphaned directory
		if err := os.RemoveAll(dirPath); err != nil {
			logger.Warn("failed to remove orphaned temp directory",
				"path", dirPath,
				"error", err,
			)
			continue
		}

		logger.Info("removed orphaned temp directory",
			"path", dirPath,
			"age", time.Since(info.ModTime()).Round(time.Second),
		)
		removed++
	}

	return removed, nil
}

// DefaultCleanupAge is the default maximum age for orphaned temp directories (1 hour).
const DefaultCleanupAge = 1 * time.Hour

// CleanupSystemTempDirs cleans up orphaned krai temp directories from the system
// temp directory using the default cleanup age.
func CleanupSystemTempDirs(logger *slog.Logger) (int, error) {
	return CleanupOrphanedTempDirs(logger, os.TempDir(), DefaultCleanupAge)
}

// stalePageSize bounds a single List call during stale-document recovery
// so a deployment with many in-flight documents doesn't load them all
// into memory at once.
const stalePageSize = 200

// RecoverStaleDocumentStatuses resets any documents stuck in "processing"
// status back to "pending" so their status no longer reports them as in
// progress. This handles the case where the server crashed or was
// restarted while a document was mid-pipeline: the in-flight queue lease
// is gone along with the process (the stage runner's lease recovery
// returns the queue item to pending), but without this recovery the
// document's processing_status would stay "processing".
//
// Returns the number of documents recovered and any error encountered.
func RecoverStaleDocumentStatuses(ctx context.Context, logger *slog.Logger, documentRepo repository.DocumentRepository) (int, error) {
	var recovered int
	// Recovered documents leave the "processing" filter, so the offset
	// only advances past documents whose update failed.
	offset := 0
	for {
		docs, err := documentRepo.List(ctx, models.ProcessingStatusProcessing, stalePageSize, offset)
		if err != nil {
			logger.Error("failed to list stuck documents for stale status recovery", "error", err)
			return recovered, err
		}
		if len(docs) == 0 {
			break
		}

		for _, doc := range docs {
			logger.Warn("recovering stale document status",
				"document_id", doc.ID.String(),
				"status", doc.ProcessingStatus,
			)

			doc.ProcessingStatus = models.ProcessingStatusPending
			if err := documentRepo.Update(ctx, doc); err != nil {
				logger.Error("failed to recover stale document status",
					"document_id", doc.ID.String(),
					"error", err,
				)
				offset++
				continue
			}
			recovered++
		}

		if len(docs) < stalePageSize {
			break
		}
	}

	return recovered, nil
}
