package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteEncoderStub writes an executable that mimics the encoder command line:
// it records its arguments and writes a small file to the final argument.
// A lone -version probe prints a banner and is not recorded.
// Invocations that pass one of failSizes exit with status 1 instead.
func WriteEncoderStub(t testing.TB, dir string, failSizes ...string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("if [ \"$1\" = \"-version\" ]; then echo 'ffmpeg version stub'; exit 0; fi\n")
	b.WriteString("printf '%s\\n' \"$*\" >> \"$0.calls\"\n")
	b.WriteString("for last; do :; done\n")
	if len(failSizes) > 0 {
		b.WriteString("for arg; do\n  case \"$arg\" in\n")
		for _, size := range failSizes {
			b.WriteString("    " + size + ") echo \"stub encoder: cannot encode $arg\" >&2; exit 1;;\n")
		}
		b.WriteString("  esac\ndone\n")
	}
	b.WriteString("printf 'encoded by stub\\n' > \"$last\"\n")

	target := filepath.Join(dir, "ffmpeg-stub")
	if err := os.WriteFile(target, []byte(b.String()), 0o755); err != nil {
		t.Fatalf("write encoder stub: %v", err)
	}
	return target
}

// WriteScript writes an executable shell script with body to path.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}

// EncoderCalls returns the argument lines recorded by an encoder stub.
func EncoderCalls(t testing.TB, binary string) []string {
	t.Helper()

	data, err := os.ReadFile(binary + ".calls")
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read encoder calls: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}
