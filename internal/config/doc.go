// Package config loads the dashboard configuration.
//
// Sources, highest precedence first:
//
//	1. Environment variables prefixed with UNIDASH_ (a .env file in the
//	   working directory is loaded into the environment first)
//	2. config.yaml (working directory, configs/, or next to the executable;
//	   UNIDASH_CONFIG_FILE overrides the search)
//	3. Struct tag defaults
//
// Example:
//
//	UNIDASH_SERVER_PORT=9000
//	UNIDASH_DATASET_PATH=data/university_student_dashboard_data.csv
//	UNIDASH_LOGGING_LEVEL=debug
//
// Paths are resolved against the executable directory, never the working
// directory, except for dataset paths that already exist relative to it.
package config
