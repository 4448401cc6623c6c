// Package render plans and runs the ffmpeg invocation that burns a karaoke
// track into a video.
//
// Build is pure: given probe metadata, the subtitle path and a Config it
// derives the logical orientation, any upscale needed to reach the minimum
// resolution, an optional centered aspect crop, the deterministic uniqueness
// parameters and the final argument vector. Runner executes a Plan with a
// per-invocation timeout and classifies failures into the services markers.
package render
