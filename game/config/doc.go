// Package config provides preset management for the Gobblets server.
//
// Presets are JSON or YAML files in a single directory. The file name
// without its extension is the config ID used to create sessions, so
// configs/blitz.yaml is loaded as "blitz". A preset looks like:
//
//	name: Blitz
//	description: One minute per player
//	time_limit: "1:00"
//	stack_preview: true
//	players: [White, Black]
//
// time_limit accepts "M:SS", a Go duration such as "90s", or
// "No time limit". Every preset is checked with engine.ValidateGameConfig
// before it is cached; invalid files are skipped by ListConfigs.
//
// The default preset is "classic". When it is missing the first valid
// preset in the directory is used, and an empty directory falls back to
// engine.DefaultConfig.
package config
