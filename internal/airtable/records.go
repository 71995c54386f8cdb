package airtable

// CardFields is the typed projection of one card record. The raw Airtable
// fields map is parsed into this struct exactly once, at the scan boundary.
// Absent fields decode to zero values; Airtable omits unchecked checkboxes
// entirely, so a missing boolean means false.
type CardFields struct {
	ExperienceName string `json:"experienceName,omitempty"`
	PubKeyHex      string `json:"pubKeyHex,omitempty"`
	ImageURL       string `json:"imageUrl,omitempty"`
	Allocated      bool   `json:"allocated,omitempty"`
	Posted         bool   `json:"posted,omitempty"`
	CardPhotoURL   string `json:"cardPhotoUrl,omitempty"`
	CardHolder     string `json:"cardHolder,omitempty"`
}

// Projection lists the fields requested from the card table. Keep in sync
// with CardFields; pubKeyHex is carried for downstream consumers even though
// the reconciler itself never reads it.
var Projection = []string{
	"experienceName",
	"pubKeyHex",
	"imageUrl",
	"allocated",
	"posted",
	"cardPhotoUrl",
	"cardHolder",
}

// Record is one row of the card table, keyed by Airtable's opaque record id.
type Record struct {
	ID     string     `json:"id"`
	Fields CardFields `json:"fields"`
}
