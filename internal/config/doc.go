// Package config loads, normalizes, and validates karaoke configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// KARAOKE_API_TOKEN and HF_TOKEN. The Config type centralizes every knob the
// daemon and CLI need: output/work directories, encoder defaults, subtitle
// layout defaults, worker pool sizing, and notification sinks.
//
// Style names are validated by the subtitles package at job submission so this
// package stays free of domain imports.
package config
