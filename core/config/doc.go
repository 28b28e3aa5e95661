// Package config provides configuration management for the schema manager.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file, with defaults taken from `default` struct tags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - PocketBase: remote URL, superuser credentials and call timeout
//   - Schema: definition and adjustment paths, reserved fields, webhook secret, snapshot prefix
//   - Storage: S3/MinIO credentials and the snapshot bucket
//   - Database: optional run history connection (MySQL or SQLite)
//   - Log: Logging level and format
//
// Keys map to SECTION_KEY environment variables (POCKETBASE_URL -> pocketbase.url). The
// variable names used by the site's own .env (PUBLIC_POCKETBASE_URL, WEBHOOK_SECRET, ...)
// are accepted as aliases.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.PocketBase.URL)
package config
