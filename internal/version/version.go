// internal/version/version.go
package version

// Version is stamped at release time; "dev" otherwise.
var Version = "dev"
