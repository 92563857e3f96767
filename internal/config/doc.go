// Package config loads the dashboard configuration.
//
// Values are layered, later sources winning:
//
//	1. Default()
//	2. a YAML file: $ALLOCDASH_CONFIG, ./config.yaml or ./configs/config.yaml
//	3. environment variables prefixed ALLOCDASH_ (a .env file is honored)
//
// Nested fields join their names with underscores:
//
//	ALLOCDASH_SERVER_PORT=9090
//	ALLOCDASH_DATA_STRESS_WORKBOOK=s3://risk-reports/stress_test_totE7X.xlsx
//	ALLOCDASH_DATA_RELOAD_SCHEDULE="0 0 6 * * MON-FRI"
//	ALLOCDASH_SECURITY_ALLOWED_ORIGINS=https://dash.example.com,http://localhost:3000
package config
