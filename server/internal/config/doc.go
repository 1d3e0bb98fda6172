// Package config loads the storelens configuration from config.yaml.
//
// Config fields:
//   - Server.HTTPPort        — port for the form, API and /metrics (default 8080)
//   - Server.LogLevel        — debug | info | warn | error (default info)
//   - Server.MaxUploadBytes  — request body bound for analyze calls (default 32 MiB)
//   - Server.Staging         — optional on-disk staging of uploads (path, ttl)
//   - Analysis.TopN          — length of the top expired list (default 3)
//   - Analysis.Timezone      — zone for dates without an offset (default UTC)
//   - Analysis.DateLayouts   — override for the accepted date layouts
//   - Rules                  — threshold rules and webhook targets
//
// Load(path) applies defaults, then the YAML file, then STORELENS_*
// environment overrides, then validates.
//
// Watch(ctx, path, onChange) uses fsnotify to detect edits and hands the
// re-validated Config to onChange; a bad edit keeps the previous config.
package config
