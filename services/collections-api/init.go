package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/apihelpers"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/schema"
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

	ENV_COLLECTION_USER_JWT_SIGN_KEY = "COLLECTION_USER_JWT_SIGN_KEY"
)

type Config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`
	} `json:"gin_config" yaml:"gin_config"`

	CollectionUserJWTConfig struct {
		SignKey string `json:"sign_key" yaml:"sign_key"`
	} `json:"collection_user_jwt_config" yaml:"collection_user_jwt_config"`

	AllowedInstanceIDs []string `json:"allowed_instance_ids" yaml:"allowed_instance_ids"`

	// DB configs
	DBConfigs struct {
		CollectionsDB db.DBConfigYaml `json:"collections_db" yaml:"collections_db"`
	} `json:"db_configs" yaml:"db_configs"`

	CollectionsConfig schema.EditorConfig `json:"collections_config" yaml:"collections_config"`
}

var (
	collectionsDBService *collectionsDB.CollectionsDBService
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

	if conf.CollectionUserJWTConfig.SignKey == "" {
		slog.Error("JWT sign key not set - configure " + ENV_COLLECTION_USER_JWT_SIGN_KEY)
		panic("JWT sign key not set")
	}

	// Init DBs
	initDBs()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	collections.Init(collectionsDBService, conf.CollectionsConfig)
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_COLLECTIONS_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.CollectionsDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_COLLECTIONS_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.CollectionsDB.Password = dbPassword
	}

	if signKey := os.Getenv(ENV_COLLECTION_USER_JWT_SIGN_KEY); signKey != "" {
		conf.CollectionUserJWTConfig.SignKey = signKey
	}
}

func initDBs() {
	var err error
	collectionsDBService, err = collectionsDB.NewCollectionsDBService(db.DBConfigFromYamlObj(conf.DBConfigs.CollectionsDB, conf.AllowedInstanceIDs))
	if err != nil {
		slog.Error("Error connecting to Collections DB", slog.String("error", err.Error()))
		panic(err)
	}
}
