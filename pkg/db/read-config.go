package db

import (
	"fmt"
	"log/slog"
)

// DBConfigFromYamlObj builds the connection config from the yaml section of a DB. Credentials
// are expected to be set already, either in the file or from the environment.
func DBConfigFromYamlObj(yamlObj DBConfigYaml, instanceIDs []string) DBConfig {
	if yamlObj.ConnectionStr == "" {
		slog.Error("couldn't read DB connection string")
		panic("couldn't read DB connection string")
	}

	URI := fmt.Sprintf(`mongodb%s://%s`, yamlObj.ConnectionPrefix, yamlObj.ConnectionStr)
	if yamlObj.Username != "" || yamlObj.Password != "" {
		URI = fmt.Sprintf(`mongodb%s://%s:%s@%s`, yamlObj.ConnectionPrefix, yamlObj.Username, yamlObj.Password, yamlObj.ConnectionStr)
	}

	timeout := yamlObj.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	maxPoolSize := yamlObj.MaxPoolSize
	if maxPoolSize <= 0 {
		maxPoolSize = DEFAULT_MAX_POOL_SIZE
	}

	return DBConfig{
		URI:              URI,
		Timeout:          timeout,
		IdleConnTimeout:  yamlObj.IdleConnTimeout,
		MaxPoolSize:      uint64(maxPoolSize),
		NoCursorTimeout:  yamlObj.UseNoCursorTimeout,
		DBNamePrefix:     yamlObj.DBNamePrefix,
		InstanceIDs:      instanceIDs,
		RunIndexCreation: yamlObj.RunIndexCreation,
	}
}
