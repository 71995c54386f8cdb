package reconcile

import (
	"fmt"

	"stampbot/internal/airtable"
	"stampbot/pkg/tghtml"
)

type PayloadKind string

const (
	KindText  PayloadKind = "text"
	KindPhoto PayloadKind = "photo"
)

// Payload is one composed notification, ready for dispatch. Text carries
// pre-rendered Telegram HTML; URL is set for photo payloads only.
type Payload struct {
	Kind PayloadKind
	URL  string
	Text string
}

// Eligible reports whether a card is due for notification: allocated but not
// yet posted. posted is the sole de-duplication key.
func Eligible(f airtable.CardFields) bool {
	return f.Allocated && !f.Posted
}

// Compose maps an eligible card to its notifications (0, 1 or 2). The stamp
// announcement always precedes the ownership announcement. Pure; no I/O.
func Compose(f airtable.CardFields) []Payload {
	var out []Payload

	if f.ExperienceName != "" && f.ImageURL != "" {
		out = append(out, Payload{
			Kind: KindPhoto,
			URL:  f.ImageURL,
			Text: fmt.Sprintf("The stamp for %s is available to claim!", tghtml.B(f.ExperienceName)),
		})
	}

	if f.ExperienceName != "" && f.CardHolder != "" {
		text := fmt.Sprintf("%s is the owner of the NFC card for %s.",
			tghtml.B(f.CardHolder), tghtml.B(f.ExperienceName))
		if f.CardPhotoURL != "" {
			out = append(out, Payload{Kind: KindPhoto, URL: f.CardPhotoURL, Text: text})
		} else {
			out = append(out, Payload{Kind: KindText, Text: text})
		}
	}

	return out
}
