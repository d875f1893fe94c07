package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"github.com/bolasblack/dirsync/internal/util"
)

func TestPrintFingerprints(t *testing.T) {
	env := util.NewTestEnv()
	if err := afero.WriteFile(env.Fs, "/a.txt", []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(env.Fs, "/empty", nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := printFingerprints(env, &out, []string{"/a.txt", "/empty"}); err != nil {
		t.Fatalf("printFingerprints() error = %v", err)
	}

	want := "5d41402abc4b2a76b9719d911017c592  /a.txt\n" +
		"d41d8cd98f00b204e9800998ecf8427e  /empty\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestPrintFingerprints_UnreadableFile(t *testing.T) {
	env := util.NewTestEnv()
	if err := afero.WriteFile(env.Fs, "/a.txt", []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := printFingerprints(env, &out, []string{"/missing", "/a.txt"})
	if err == nil || err.Error() != "1 file could not be read" {
		t.Errorf("error = %v", err)
	}
	if out.String() != "5d41402abc4b2a76b9719d911017c592  /a.txt\n" {
		t.Errorf("readable files should still be printed, got %q", out.String())
	}
}
