package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := min(int64(chunkSize), remaining)
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteScript writes an executable /bin/sh script named name into dir and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return target
}

// FFprobeJSON is a minimal ffprobe document for a landscape clip with audio.
const FFprobeJSON = `{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":1920,"height":1080},{"index":1,"codec_type":"audio","codec_name":"aac","channels":2}],"format":{"duration":"4.0","size":"1024"}}`

// WriteFFprobeStub writes an ffprobe stub that prints document for any input.
func WriteFFprobeStub(t testing.TB, dir, document string) string {
	t.Helper()
	return WriteScript(t, dir, "ffprobe", "cat <<'JSON'\n"+document+"\nJSON\n")
}

// WriteFFmpegStub writes an ffmpeg stub that creates its last argument. When
// failMarker is non-empty, inputs whose path contains it exit 1 with a libass
// style error instead.
func WriteFFmpegStub(t testing.TB, dir, failMarker string) string {
	t.Helper()
	body := `input=""
prev=""
for arg; do
  if [ "$prev" = "-i" ]; then input="$arg"; fi
  prev="$arg"
  last="$arg"
done
`
	if failMarker != "" {
		body += `case "$input" in
  *` + failMarker + `*) echo "[Parsed_ass_0] failed to render" >&2; exit 1 ;;
esac
`
	}
	body += `printf 'frame=1 time=00:00:04.00 speed=1.0x\n' >&2
printf 'video' > "$last"
`
	return WriteScript(t, dir, "ffmpeg", body)
}
