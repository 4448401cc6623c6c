package render

import (
	"bytes"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Progress is one parsed ffmpeg stats update.
type Progress struct {
	Percent  float64
	Position time.Duration
	Speed    float64
}

var (
	statsTimePattern  = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	statsSpeedPattern = regexp.MustCompile(`speed=\s*([0-9.]+)x`)
)

// ParseStatsLine extracts position and speed from an ffmpeg stats line.
func ParseStatsLine(line string, total time.Duration) (Progress, bool) {
	m := statsTimePattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.ParseFloat(m[3], 64)
	pos := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds*float64(time.Second))
	p := Progress{Position: pos, Percent: -1}
	if total > 0 {
		p.Percent = min(100, float64(pos)/float64(total)*100)
	}
	if s := statsSpeedPattern.FindStringSubmatch(line); s != nil {
		p.Speed, _ = strconv.ParseFloat(s[1], 64)
	}
	return p, true
}

// stderrCapture keeps the full stderr stream and reports stats lines, which
// ffmpeg terminates with carriage returns.
type stderrCapture struct {
	mu       sync.Mutex
	all      bytes.Buffer
	pending  []byte
	total    time.Duration
	progress func(Progress)
}

func (c *stderrCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all.Write(p)
	if c.progress == nil {
		return len(p), nil
	}
	c.pending = append(c.pending, p...)
	for {
		idx := bytes.IndexAny(c.pending, "\r\n")
		if idx < 0 {
			break
		}
		line := string(c.pending[:idx])
		c.pending = c.pending[idx+1:]
		if update, ok := ParseStatsLine(line, c.total); ok {
			c.progress(update)
		}
	}
	return len(p), nil
}

func (c *stderrCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.all.String()
}
