// internal/config/settings.go
package config

import "github.com/spf13/viper"

// SettingType represents the type of a setting
type SettingType string

const (
	// String type for string settings
	String SettingType = "string"
	// Bool type for boolean settings
	Bool SettingType = "bool"
	// Int type for integer settings
	Int SettingType = "int"
)

// Setting defines a configuration setting
type Setting struct {
	// Name is the name of the setting
	Name string
	// Short is a short description of the setting
	Short string
	// Type is the type of the setting
	Type SettingType
	// Default is the default value of the setting
	Default interface{}
	// Env is the environment variable name for the setting
	Env string
	// Required indicates whether the setting is required
	Required bool
}

// SettingList is a list of settings
type SettingList []Setting

// PopulateViperDefaults sets default values for all settings in Viper
func (sl SettingList) PopulateViperDefaults(v *viper.Viper) {
	for _, s := range sl {
		v.SetDefault(s.Name, s.Default)
	}
}

// Settings defines all application settings
var Settings = SettingList{
	// Server settings
	{
		Name:    "SERVER_ADDR",
		Short:   "Address on which the server listens",
		Type:    String,
		Default: ":8000",
		Env:     "SERVER_ADDR",
	},
	{
		Name:    "METRICS_ADDR",
		Short:   "Address on which the metrics server listens",
		Type:    String,
		Default: ":9090",
		Env:     "METRICS_ADDR",
	},
	{
		Name:    "SHUTDOWN_TIMEOUT",
		Short:   "Maximum time to wait for graceful shutdown",
		Type:    String,
		Default: "30s",
		Env:     "SHUTDOWN_TIMEOUT",
	},

	// TLS settings
	{
		Name:    "TLS_ENABLED",
		Short:   "Enable TLS for the server",
		Type:    Bool,
		Default: false,
		Env:     "TLS_ENABLED",
	},
	{
		Name:    "TLS_CERT_PATH",
		Short:   "Path to TLS certificate file",
		Type:    String,
		Default: "",
		Env:     "TLS_CERT_PATH",
	},
	{
		Name:    "TLS_KEY_PATH",
		Short:   "Path to TLS key file",
		Type:    String,
		Default: "",
		Env:     "TLS_KEY_PATH",
	},

	// Upstream settings
	{
		Name:     "UPSTREAM_URL",
		Short:    "URL of the upstream service",
		Type:     String,
		Default:  "",
		Env:      "UPSTREAM_URL",
		Required: true,
	},
	{
		Name:    "UPSTREAM_TIMEOUT",
		Short:   "Timeout for upstream requests",
		Type:    String,
		Default: "30s",
		Env:     "UPSTREAM_TIMEOUT",
	},

	// Token codec settings
	{
		Name:    "TOKEN_CODEC",
		Short:   "Credential codec to use (jwt, oidc)",
		Type:    String,
		Default: "jwt",
		Env:     "TOKEN_CODEC",
	},
	{
		Name:    "TOKEN_SECRET",
		Short:   "JWT signing secret",
		Type:    String,
		Default: "",
		Env:     "TOKEN_SECRET",
	},
	{
		Name:    "TOKEN_EXPIRES_IN",
		Short:   "Default credential lifetime in seconds (0 = no expiry)",
		Type:    Int,
		Default: 1209600,
		Env:     "TOKEN_EXPIRES_IN",
	},
	{
		Name:    "TOKEN_OIDC_ISSUER",
		Short:   "OIDC issuer URL",
		Type:    String,
		Default: "",
		Env:     "TOKEN_OIDC_ISSUER",
	},
	{
		Name:    "TOKEN_OIDC_CLIENT_ID",
		Short:   "OIDC client ID",
		Type:    String,
		Default: "",
		Env:     "TOKEN_OIDC_CLIENT_ID",
	},

	// ACL settings
	{
		Name:    "ACL_PATH",
		Short:   "Path to the ACL declarations file",
		Type:    String,
		Default: "",
		Env:     "ACL_PATH",
	},

	// Observability
	{
		Name:    "LOG_LEVEL",
		Short:   "Logging level",
		Type:    String,
		Default: "info",
		Env:     "LOG_LEVEL",
	},
}
