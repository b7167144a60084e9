// Package catalog loads the collector's source configuration.
//
// A configuration maps a logical source name to a list of rules, each naming a
// directory and a glob pattern:
//
//	{"dirs": {"app1": [{"path": "/var/log/app1", "filename": "*.log"}]}}
//
// The "dirs" wrapper is optional. A rule whose filename is exactly "core"
// marks its directory as a core dump location. The catalog performs no file
// system access beyond reading the configuration file itself.
package catalog
