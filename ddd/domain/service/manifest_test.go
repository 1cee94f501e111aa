package service_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"video-service/ddd/domain/service"
	"video-service/ddd/domain/vo"
)

func TestWriteKeyInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.info")

	if err := service.WriteKeyInfo(path, "/api/video/key/k1", "/keys/k1.key"); err != nil {
		t.Fatalf("WriteKeyInfo: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read key info: %v", err)
	}
	// A third line would be read back by the engine as an explicit IV and
	// stamped into the published sub-manifests.
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "/api/video/key/k1" {
		t.Fatalf("line 1: %q", lines[0])
	}
	if lines[1] != "/keys/k1.key" {
		t.Fatalf("line 2: %q", lines[1])
	}

	uri, keyPath, err := service.ParseKeyInfo(string(raw))
	if err != nil {
		t.Fatalf("ParseKeyInfo: %v", err)
	}
	if uri != "/api/video/key/k1" || keyPath != "/keys/k1.key" {
		t.Fatalf("ParseKeyInfo: got %q %q", uri, keyPath)
	}
}

func TestWriteKeyInfoFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.info")
	if err := service.WriteKeyInfo(path, "u", "p"); err != nil {
		t.Fatalf("WriteKeyInfo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
}

func TestBuildMasterManifest(t *testing.T) {
	qualities := vo.SelectQualities(1920, 1080)
	master := service.BuildMasterManifest(qualities)

	if !strings.HasPrefix(master, "#EXTM3U\n#EXT-X-VERSION:3\n") {
		t.Fatalf("missing header:\n%s", master)
	}
	if got := strings.Count(master, "#EXT-X-STREAM-INF:"); got != 3 {
		t.Fatalf("expected 3 stream-inf lines, got %d", got)
	}
	if !strings.Contains(master, "#EXT-X-STREAM-INF:BANDWIDTH=2128000,RESOLUTION=1280x720\n720p/index.m3u8\n") {
		t.Fatalf("720p variant wrong:\n%s", master)
	}
	if !strings.Contains(master, "BANDWIDTH=896000,RESOLUTION=854x480") {
		t.Fatalf("480p variant wrong:\n%s", master)
	}
	if !strings.Contains(master, "BANDWIDTH=4660000,RESOLUTION=1920x1080") {
		t.Fatalf("1080p variant wrong:\n%s", master)
	}
}

func TestRewriteSegmentReferences(t *testing.T) {
	sub := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-KEY:METHOD=AES-128,URI=\"/api/video/key/k1\",IV=0x0",
		"#EXTINF:6.0,",
		"segment_000.ts",
		"#EXTINF:4.0,",
		"segment_001.ts",
		"#EXT-X-ENDLIST",
		"",
	}, "\n")

	out := service.RewriteSegmentReferences(sub, "/api/video/segment/a1/720p/")
	if !strings.Contains(out, "/api/video/segment/a1/720p/segment_000.ts") {
		t.Fatalf("segment not rewritten:\n%s", out)
	}
	if !strings.Contains(out, "/api/video/segment/a1/720p/segment_001.ts") {
		t.Fatalf("second segment not rewritten:\n%s", out)
	}
	if !strings.Contains(out, "#EXT-X-KEY:METHOD=AES-128,URI=\"/api/video/key/k1\",IV=0x0") {
		t.Fatalf("key directive must stay untouched:\n%s", out)
	}
	if !strings.Contains(out, "#EXTINF:6.0,") {
		t.Fatalf("extinf line changed:\n%s", out)
	}
}

func TestRewriteVariantReferences(t *testing.T) {
	master := service.BuildMasterManifest(vo.SelectQualities(1920, 1080))
	out := service.RewriteVariantReferences(master, "/api/video/stream/a1")
	for _, name := range []string{"480p", "720p", "1080p"} {
		if !strings.Contains(out, "/api/video/stream/a1/"+name+"/index.m3u8") {
			t.Fatalf("variant %s not rewritten:\n%s", name, out)
		}
	}
	if strings.Contains(out, "\n480p/index.m3u8") {
		t.Fatalf("relative variant reference survived:\n%s", out)
	}
}

func TestRewriteKeyURI(t *testing.T) {
	sub := "#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"/api/video/key/old\",IV=0xabc\nsegment_000.ts\n"
	out := service.RewriteKeyURI(sub, "https://cdn.example.com/key/new")
	if !strings.Contains(out, `URI="https://cdn.example.com/key/new"`) {
		t.Fatalf("key uri not swapped:\n%s", out)
	}
	if !strings.Contains(out, ",IV=0xabc") {
		t.Fatalf("iv attribute lost:\n%s", out)
	}
}

func TestSegmentNamePattern(t *testing.T) {
	valid := []string{"segment_000.ts", "segment_1.ts", "segment_12345.ts"}
	for _, name := range valid {
		if !service.SegmentNameRe.MatchString(name) {
			t.Errorf("%q should match", name)
		}
	}
	invalid := []string{
		"segment_000.ts.bak",
		"../key.info",
		"segment_..ts",
		"segment_000.TS",
		"index.m3u8",
		"segment_000.ts/..",
		"asegment_000.ts",
	}
	for _, name := range invalid {
		if service.SegmentNameRe.MatchString(name) {
			t.Errorf("%q should not match", name)
		}
	}
}
