package pocketbase

// Config holds configuration for the remote PocketBase instance.
type Config struct {
	// URL is the base URL of the instance, without the /api suffix.
	URL string `mapstructure:"url" default:"http://127.0.0.1:8090"`
	// AdminEmail is the superuser identity used to authenticate.
	AdminEmail string `mapstructure:"admin_email" default:""`
	// AdminPassword is the superuser password.
	AdminPassword string `mapstructure:"admin_password" default:""`
	// TimeoutSeconds bounds every remote call.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
