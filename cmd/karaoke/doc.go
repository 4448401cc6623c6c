// Command karaoke is the command-line client for the karaoke renderer.
//
// The render and subtitles commands work locally without a daemon. Job
// commands (submit, jobs, show, cancel, delete) talk to karaoked over its
// HTTP API; styles and ratios fall back to the built-in catalogs when no
// daemon answers.
package main
