// Package subtitles turns laid-out word lines into an ASS karaoke track.
//
// Each layout block becomes one Dialogue cue whose words carry \k timing
// tags, so a libass renderer sweeps the highlight color across the text in
// sync with speech. The package also owns the closed set of style templates
// and the RGB color model that is converted to ASS &HAABBGGRR only when a
// track is written.
package subtitles
