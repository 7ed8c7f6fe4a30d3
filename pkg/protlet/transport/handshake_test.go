package transport

import (
	"bytes"
	"testing"

	"github.com/go-protlet/protlet/pkg/protlet/types"
)

func TestHandshake_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	self := types.NewIdentity("alice")
	if err := sendHandshake(&buf, self, "1.2.3"); err != nil {
		t.Fatalf("sendHandshake: %v", err)
	}
	id, version, err := readHandshake(&buf)
	if err != nil {
		t.Fatalf("readHandshake: %v", err)
	}
	if !id.Equal(self) {
		t.Fatalf("got identity %s, want %s", id, self)
	}
	if version != "1.2.3" {
		t.Fatalf("got version %q, want %q", version, "1.2.3")
	}
}

func TestCheckVersion(t *testing.T) {
	cases := []struct {
		local, remote string
		wantErr       bool
	}{
		{"1.0.0", "1.4.2", false},
		{"1.0.0", "2.0.0", true},
		{"2.3.1", "2.0.0", false},
		{"not-a-version", "1.0.0", true},
	}
	for _, c := range cases {
		err := checkVersion(c.local, c.remote)
		if (err != nil) != c.wantErr {
			t.Errorf("checkVersion(%q, %q): err=%v, wantErr=%v", c.local, c.remote, err, c.wantErr)
		}
	}
}
