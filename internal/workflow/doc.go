// Package workflow runs batch karaoke render jobs.
//
// A Manager accepts submissions (an ordered list of source videos plus
// render options), persists them through the queue package, and feeds them
// to a bounded pool of workers. Each worker owns one job at a time and walks
// its files sequentially in submission order: load word timings (from a
// transcript file or WhisperX), lay out and synthesize the ASS track, build
// the ffmpeg render plan and run it. One file's failure is recorded on its
// FileRecord and never aborts the rest of the batch; a job only fails on
// job-level setup errors.
//
// Job state lives in the JobStore behind one mutex per job so status queries
// never wait on an encode. Every transition is published to per-job
// subscribers and to the EventHub, whose sequence numbers let late clients
// catch up; Get remains the source of truth.
package workflow
