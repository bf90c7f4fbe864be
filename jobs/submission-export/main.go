package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/exporter"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"

	collectionsDB "github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/db/collections"
)

func main() {
	slog.Info("Starting submission export job")
	start := time.Now()

	for _, task := range conf.SubmissionExports.ExportTasks {
		runExportTask(task, start)
	}

	removed, err := exporter.CleanUpExports(conf.ExportPath, retention, start)
	if err != nil {
		slog.Error("Error cleaning up old submission exports", slog.String("error", err.Error()))
	}
	for _, task := range conf.SubmissionExports.ExportTasks {
		if task.ExportPath == "" {
			continue
		}
		n, err := exporter.CleanUpExports(task.ExportPath, retention, start)
		if err != nil {
			slog.Error("Error cleaning up old submission exports", slog.String("task", task.Name), slog.String("error", err.Error()))
		}
		removed += n
	}
	slog.Info("Cleaned up old submission exports", slog.Int("removed", removed))

	if err := collectionsDBService.DBClient.Disconnect(context.Background()); err != nil {
		slog.Error("Error closing DB connection", slog.String("error", err.Error()))
	}
	slog.Info("Submission export job completed", slog.String("duration", time.Since(start).String()))
}

func exportFolderForTask(task SubmissionExportTask) string {
	if task.ExportPath != "" {
		return task.ExportPath
	}
	return filepath.Join(conf.ExportPath, task.InstanceID, task.Name)
}

func runExportTask(task SubmissionExportTask, date time.Time) {
	ctx := context.Background()

	folder := exportFolderForTask(task)
	if _, err := os.Stat(folder); os.IsNotExist(err) {
		if err := os.MkdirAll(folder, os.ModePerm); err != nil {
			slog.Error("Error creating export path", slog.String("path", folder), slog.String("error", err.Error()))
			return
		}
		slog.Info("Created export path", slog.String("path", folder))
	}

	collection, err := collectionsDBService.GetCollectionByID(ctx, task.InstanceID, task.CollectionID)
	if err != nil {
		slog.Error("failed to get collection", slog.String("task", task.Name), slog.String("collectionID", task.CollectionID), slog.String("error", err.Error()))
		return
	}
	parser, err := exporter.NewSubmissionParser(collection)
	if err != nil {
		slog.Error("failed to prepare export", slog.String("task", task.Name), slog.String("error", err.Error()))
		return
	}

	filename := filepath.Join(folder, exporter.ExportFileName(date, task.Name, task.ExportFormat))
	count := 0
	err = exporter.WriteExportFile(filename, func(w io.Writer) error {
		se, err := exporter.NewSubmissionExporter(parser, w, task.ExportFormat)
		if err != nil {
			return err
		}
		if err := collectionsDBService.FindAndExecuteOnSubmissions(
			ctx,
			task.InstanceID,
			collection.ID,
			types.SubmissionMode(task.Mode),
			false,
			func(dbService *collectionsDB.CollectionsDBService, s *types.Submission, instanceID string, args ...interface{}) error {
				return se.WriteSubmission(s)
			},
		); err != nil {
			return err
		}
		count = se.Count()
		return se.Finish()
	})
	if err != nil {
		slog.Error("failed to export submissions", slog.String("task", task.Name), slog.String("path", filename), slog.String("error", err.Error()))
		return
	}
	slog.Info("Submissions exported", slog.String("task", task.Name), slog.String("path", filename), slog.Int("count", count))
}
