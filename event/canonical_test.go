package event

import (
	"bytes"
	stdsha "crypto/sha256"
	"strings"
	"testing"

	"lukechampine.com/frand"

	"nostrbird.lol/kind"
	"nostrbird.lol/tag"
	"nostrbird.lol/tags"
	"nostrbird.lol/timestamp"
)

func fixture() *T {
	return &T{
		PubKey:    bytes.Repeat([]byte{0xab}, 32),
		CreatedAt: timestamp.FromUnix(1672068534),
		Kind:      kind.TextNote,
		Tags:      tags.New(),
		Content:   []byte("Hello, nostr!\n\"quoted\"\t\\"),
	}
}

func TestToCanonical(t *testing.T) {
	ev := fixture()
	want := `[0,"` + strings.Repeat("ab", 32) + `",1672068534,1,[],"Hello, nostr!\n\"quoted\"\t\\"]`
	if got := string(ev.ToCanonical(nil)); got != want {
		t.Fatalf("canonical mismatch\ngot  %s\nwant %s", got, want)
	}
	h := stdsha.Sum256([]byte(want))
	if !bytes.Equal(ev.GetIDBytes(), h[:]) {
		t.Fatal("id is not the sha256 of the canonical form")
	}
	ev.Tags = tags.New(tag.New("t", "nostr"), tag.New("p"))
	want = `[0,"` + strings.Repeat("ab", 32) + `",1672068534,1,[["t","nostr"],["p"]],"Hello, nostr!\n\"quoted\"\t\\"]`
	if got := string(ev.ToCanonical(nil)); got != want {
		t.Fatalf("canonical mismatch with tags\ngot  %s\nwant %s", got, want)
	}
}

func TestIDDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		ev := fixture()
		ev.Content = frand.Bytes(frand.Intn(280))
		ev.CreatedAt = timestamp.FromUnix(int64(frand.Uint64n(1 << 40)))
		a, b := ev.GetIDBytes(), ev.GetIDBytes()
		if !bytes.Equal(a, b) {
			t.Fatal("id not deterministic")
		}
	}
}

func TestIDChangesWithEachField(t *testing.T) {
	base := fixture().GetIDBytes()
	mutations := map[string]func(ev *T){
		"content":    func(ev *T) { ev.Content = append(ev.Content, '!') },
		"created_at": func(ev *T) { ev.CreatedAt = timestamp.FromUnix(1672068535) },
		"kind":       func(ev *T) { ev.Kind = kind.ProfileMetadata },
		"pubkey":     func(ev *T) { ev.PubKey = bytes.Repeat([]byte{0xac}, 32) },
		"tags":       func(ev *T) { ev.Tags = tags.New(tag.New("t", "x")) },
	}
	for name, mutate := range mutations {
		ev := fixture()
		mutate(ev)
		if bytes.Equal(base, ev.GetIDBytes()) {
			t.Errorf("changing %s did not change the id", name)
		}
	}
}
