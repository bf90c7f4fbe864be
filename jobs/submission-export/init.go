package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/exporter"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/db"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/utils"
	"gopkg.in/yaml.v2"

	collectionsDB "github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/db/collections"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_COLLECTIONS_DB_USERNAME = "COLLECTIONS_DB_USERNAME"
	ENV_COLLECTIONS_DB_PASSWORD = "COLLECTIONS_DB_PASSWORD"
)

type SubmissionExportTask struct {
	Name         string `json:"name" yaml:"name"` // used in the file name, must be URL safe
	InstanceID   string `json:"instance_id" yaml:"instance_id"`
	CollectionID string `json:"collection_id" yaml:"collection_id"`
	Mode         string `json:"mode" yaml:"mode"`                   // TEST, LIVE or empty for both
	ExportFormat string `json:"export_format" yaml:"export_format"` // csv or json
	ExportPath   string `json:"export_path" yaml:"export_path"`     // optional, defaults to export_path/instance_id/name
}

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		CollectionsDB db.DBConfigYaml `json:"collections_db" yaml:"collections_db"`
	} `json:"db_configs" yaml:"db_configs"`

	ExportPath string `json:"export_path" yaml:"export_path"`

	SubmissionExports struct {
		Retention   string                 `json:"retention" yaml:"retention"` // e.g. 30d
		ExportTasks []SubmissionExportTask `json:"export_tasks" yaml:"export_tasks"`
	} `json:"submission_exports" yaml:"submission_exports"`
}

var conf config

var (
	collectionsDBService *collectionsDB.CollectionsDBService
	retention            time.Duration
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(conf.Logging)

	// Override secrets from environment variables
	secretsOverride()

	if conf.ExportPath == "" {
		err := fmt.Errorf("export path must be set to define where to store the export files")
		slog.Error("Error reading config", slog.String("error", err.Error()))
		panic(err)
	}

	retention, err = utils.ParseDurationString(conf.SubmissionExports.Retention)
	if err != nil || retention <= 0 {
		err := fmt.Errorf("retention must be a positive duration, got '%s'", conf.SubmissionExports.Retention)
		slog.Error("Error reading config", slog.String("error", err.Error()))
		panic(err)
	}

	for i, task := range conf.SubmissionExports.ExportTasks {
		if err := validateTask(task); err != nil {
			slog.Error("Error reading config", slog.Int("task", i), slog.String("error", err.Error()))
			panic(err)
		}
	}

	// init db
	initDBs()
}

func validateTask(task SubmissionExportTask) error {
	if task.Name == "" || !utils.IsURLSafe(task.Name) {
		return fmt.Errorf("task name '%s' must be set and URL safe", task.Name)
	}
	if task.InstanceID == "" || task.CollectionID == "" {
		return fmt.Errorf("task '%s': instance_id and collection_id are required", task.Name)
	}
	switch types.SubmissionMode(task.Mode) {
	case "", types.SUBMISSION_MODE_TEST, types.SUBMISSION_MODE_LIVE:
	default:
		return fmt.Errorf("task '%s': unknown mode '%s'", task.Name, task.Mode)
	}
	if task.ExportFormat != exporter.FORMAT_CSV && task.ExportFormat != exporter.FORMAT_JSON {
		return fmt.Errorf("task '%s': unsupported export format '%s'", task.Name, task.ExportFormat)
	}
	return nil
}

func secretsOverride() {
	// Override secrets from environment variables

	if dbUsername := os.Getenv(ENV_COLLECTIONS_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.CollectionsDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_COLLECTIONS_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.CollectionsDB.Password = dbPassword
	}

	for i, task := range conf.SubmissionExports.ExportTasks {
		if exportPath := os.Getenv(utils.GenerateExportPathEnvVarName(task.Name)); exportPath != "" {
			conf.SubmissionExports.ExportTasks[i].ExportPath = exportPath
		}
	}
}

func initDBs() {
	instanceIDs := getInstanceIDs()

	var err error
	collectionsDBService, err = collectionsDB.NewCollectionsDBService(db.DBConfigFromYamlObj(conf.DBConfigs.CollectionsDB, instanceIDs))
	if err != nil {
		slog.Error("Error connecting to Collections DB", slog.String("error", err.Error()))
		panic(err)
	}
}

func getInstanceIDs() []string {
	instanceIDs := []string{}
	for _, task := range conf.SubmissionExports.ExportTasks {
		if !utils.ContainsString(instanceIDs, task.InstanceID) {
			instanceIDs = append(instanceIDs, task.InstanceID)
		}
	}
	return instanceIDs
}
