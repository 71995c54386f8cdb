package reconcile

import (
	"strings"
	"testing"

	"stampbot/internal/airtable"
)

func TestEligible(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		f    airtable.CardFields
		want bool
	}{
		{name: "allocated unposted", f: airtable.CardFields{Allocated: true}, want: true},
		{name: "already posted", f: airtable.CardFields{Allocated: true, Posted: true}, want: false},
		{name: "not allocated", f: airtable.CardFields{}, want: false},
		{name: "posted only", f: airtable.CardFields{Posted: true}, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.f); got != tt.want {
				t.Fatalf("Eligible(%+v) = %v, want %v", tt.f, got, tt.want)
			}
		})
	}
}

func TestComposeStampAnnouncement(t *testing.T) {
	t.Parallel()
	got := Compose(airtable.CardFields{ExperienceName: "Alpha", ImageURL: "https://img/1"})
	if len(got) != 1 {
		t.Fatalf("payloads = %d, want 1", len(got))
	}
	p := got[0]
	if p.Kind != KindPhoto || p.URL != "https://img/1" {
		t.Fatalf("payload = %+v", p)
	}
	if p.Text != "The stamp for <b>Alpha</b> is available to claim!" {
		t.Fatalf("caption = %q", p.Text)
	}
}

func TestComposeOwnershipVariants(t *testing.T) {
	t.Parallel()

	base := airtable.CardFields{ExperienceName: "Alpha", CardHolder: "Bea"}

	asText := Compose(base)
	if len(asText) != 1 || asText[0].Kind != KindText {
		t.Fatalf("expected one text payload, got %+v", asText)
	}
	if asText[0].Text != "<b>Bea</b> is the owner of the NFC card for <b>Alpha</b>." {
		t.Fatalf("text = %q", asText[0].Text)
	}

	withPhoto := base
	withPhoto.CardPhotoURL = "https://img/card"
	asPhoto := Compose(withPhoto)
	if len(asPhoto) != 1 || asPhoto[0].Kind != KindPhoto || asPhoto[0].URL != "https://img/card" {
		t.Fatalf("expected one photo payload, got %+v", asPhoto)
	}
}

func TestComposeBothPayloadsStampFirst(t *testing.T) {
	t.Parallel()
	got := Compose(airtable.CardFields{
		ExperienceName: "Alpha",
		ImageURL:       "https://img/stamp",
		CardHolder:     "Bea",
		CardPhotoURL:   "https://img/card",
	})
	if len(got) != 2 {
		t.Fatalf("payloads = %d, want 2", len(got))
	}
	if !strings.Contains(got[0].Text, "available to claim") {
		t.Fatalf("first payload must be the stamp announcement: %q", got[0].Text)
	}
	if !strings.Contains(got[1].Text, "owner of the NFC card") {
		t.Fatalf("second payload must be the ownership announcement: %q", got[1].Text)
	}
}

func TestComposeContentlessRecord(t *testing.T) {
	t.Parallel()
	if got := Compose(airtable.CardFields{ExperienceName: "Alpha"}); len(got) != 0 {
		t.Fatalf("expected no payloads, got %+v", got)
	}
	// Missing experienceName suppresses both announcements.
	if got := Compose(airtable.CardFields{ImageURL: "u", CardHolder: "h"}); len(got) != 0 {
		t.Fatalf("expected no payloads, got %+v", got)
	}
}

func TestComposeSanitizesMarkup(t *testing.T) {
	t.Parallel()
	got := Compose(airtable.CardFields{
		ExperienceName: `<script>"A & B"</script>`,
		ImageURL:       "https://img/1",
		CardHolder:     "Eve<i>",
	})
	if len(got) != 2 {
		t.Fatalf("payloads = %d, want 2", len(got))
	}
	for _, p := range got {
		if strings.Contains(p.Text, "<script>") || strings.Contains(p.Text, "<i>") {
			t.Fatalf("unescaped markup leaked into %q", p.Text)
		}
	}
	if !strings.Contains(got[0].Text, "&lt;script&gt;") {
		t.Fatalf("expected escaped name in %q", got[0].Text)
	}
	if !strings.Contains(got[1].Text, "Eve&lt;i&gt;") {
		t.Fatalf("expected escaped holder in %q", got[1].Text)
	}
}
