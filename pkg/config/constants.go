package config

const EnvPrefix = "printly"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	// SQLiteDevDSN backs the PRINTLY_USE_SQLITE flag when no DSN is given.
	SQLiteDevDSN = "file:printly.db?cache=shared"
)

const (
	EnvDBDSN  = "PRINTLY_DB_DSN"
	EnvDBHost = "PRINTLY_DB_HOST"
	EnvDBUser = "PRINTLY_DB_USER"
	EnvDBName = "PRINTLY_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
