package config

// Rewrite defaults.
const (
	DefaultRoot             = "src"
	DefaultAlias            = "@/"
	DefaultExtension        = ".ts"
	DefaultMatchBareImports = false
)

// Walk defaults.
const (
	DefaultSkipVendor  = false
	DefaultMaxFileSize = ""
)

// DefaultResolvedExtensions are the extensions a resolved alias target may
// already carry; they are also the ones stripped from relative imports.
var DefaultResolvedExtensions = []string{".ts", ".js"} //nolint:gochecknoglobals // immutable default.

// DefaultExtensions are the file name suffixes the walker rewrites.
var DefaultExtensions = []string{".ts", ".js", ".tsx"} //nolint:gochecknoglobals // immutable default.

// Resolver defaults.
const (
	DefaultCacheSize = 1024
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = LogFormatText
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)
