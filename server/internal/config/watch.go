package config

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/fsnotify/fsnotify"
)

// Config sections reported by Changed.
const (
	SectionLogLevel = "log_level"
	SectionServer   = "server"
	SectionAnalysis = "analysis"
	SectionRules    = "rules"
)

// Changed lists the sections that differ between prev and next. The log
// level is reported apart from the rest of the server section because it
// is the only server setting applied without a restart. A nil prev counts
// as every section changed.
func Changed(prev, next *Config) []string {
	if prev == nil {
		return []string{SectionLogLevel, SectionServer, SectionAnalysis, SectionRules}
	}
	var out []string
	if prev.Server.LogLevel != next.Server.LogLevel {
		out = append(out, SectionLogLevel)
	}
	ps, ns := prev.Server, next.Server
	ps.LogLevel, ns.LogLevel = "", ""
	if !reflect.DeepEqual(ps, ns) {
		out = append(out, SectionServer)
	}
	if !reflect.DeepEqual(prev.Analysis, next.Analysis) {
		out = append(out, SectionAnalysis)
	}
	if !reflect.DeepEqual(prev.Rules, next.Rules) {
		out = append(out, SectionRules)
	}
	return out
}

// Watch monitors path and calls onChange with the newly loaded Config
// whenever a write changes its content. Saves that leave every section
// as it was are ignored. It runs until ctx is cancelled.
//
// A reload that fails (invalid YAML, a rule that does not parse) is logged
// and the previous config stays active. Server and analysis settings other
// than the log level are read once at startup; changes to them are logged
// as needing a restart but still passed to onChange.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	current, err := Load(path)
	if err != nil {
		slog.Warn("config: initial load for watch failed", "path", path, "err", err)
	}

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts as a write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

			next, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}

			sections := Changed(current, next)
			if len(sections) == 0 {
				slog.Debug("config: file saved without changes", "path", path)
				continue
			}
			current = next

			slog.Info("config: reloaded",
				"path", path,
				"changed", sections,
				"log_level", next.Server.LogLevel,
				"rules", len(next.Rules.Rules),
				"webhooks", len(next.Rules.Webhooks),
			)
			for _, s := range sections {
				if s == SectionServer || s == SectionAnalysis {
					slog.Warn("config: section changed, restart to apply", "section", s)
				}
			}
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
