// Package secret resolves secret references in configuration values.
//
// A value may be, or contain, a reference of the form
//
//	secretref:<provider>:<ref>
//
// e.g. DATABASE_URL=secretref:file:/run/secrets/database_url. Built-in
// providers read files (FileProvider) and environment variables
// (EnvProvider). ${VAR} placeholders are expanded first and must be set.
package secret
