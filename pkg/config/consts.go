package config

const (
	// EnvPrefix is intentionally empty; every field carries a fully
	// qualified CURBSIDE_* env tag.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CURBSIDE_DB_DSN"
	EnvDBHost = "CURBSIDE_DB_HOST"
	EnvDBUser = "CURBSIDE_DB_USER"
	EnvDBName = "CURBSIDE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
