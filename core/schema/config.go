package schema

// Config holds configuration for where definitions live and how they are applied.
type Config struct {
	// DefinitionsPath is the JSON file holding the target definition.
	DefinitionsPath string `mapstructure:"definitions_path" default:"assets/schema_definitions.json"`
	// AdjustmentsPath is the JSON file holding additive adjustments for the ensure command.
	AdjustmentsPath string `mapstructure:"adjustments_path" default:"assets/schema_adjustments.json"`
	// SettingsPath is the JSON file sent to the remote settings endpoint before an apply.
	// A missing file skips the step.
	SettingsPath string `mapstructure:"settings_path" default:"assets/system_settings.json"`
	// ReservedFields lists field names never removed by omission (comma separated in env).
	ReservedFields []string `mapstructure:"reserved_fields" default:"id,created,updated"`
	// SnapshotPrefix is the object prefix snapshots are uploaded under.
	SnapshotPrefix string `mapstructure:"snapshot_prefix" default:"snapshots"`
	// WebhookSecret replaces the secret placeholder in rules before they are written.
	WebhookSecret string `mapstructure:"webhook_secret" default:""`
	// SnapshotKeep is how many uploaded snapshots are kept; 0 keeps all.
	SnapshotKeep int `mapstructure:"snapshot_keep" default:"20"`
}
