package extractor

import (
	"net/url"
	"strings"
)

// Repairer corrects OCR look-alike confusions for one issuer. Corrections are
// confined to the path of URLs on the issuer's hosts and to certificate ids
// attributed to the issuer; domains are never rewritten.
type Repairer interface {
	Issuer() string
	MatchHost(host string) bool
	RepairURL(u *url.URL)
	RepairID(id string) string
}

func DefaultRepairers() []Repairer {
	return []Repairer{NewUdemyRepairer()}
}

// UdemyRepairer fixes ude.my short links and UC- certificate codes. Both are
// lowercase hex-like codes in which OCR commonly reads "1" as "l" and "0" as
// "O".
type UdemyRepairer struct {
	shortHosts []string
	path       *strings.Replacer
	code       *strings.Replacer
}

func NewUdemyRepairer() *UdemyRepairer {
	return &UdemyRepairer{
		shortHosts: []string{"ude.my"},
		path:       strings.NewReplacer("l", "1", "O", "0"),
		code:       strings.NewReplacer("l", "1", "I", "1", "O", "0", "o", "0"),
	}
}

func (u *UdemyRepairer) Issuer() string { return "Udemy" }

func (u *UdemyRepairer) MatchHost(host string) bool {
	for _, h := range u.shortHosts {
		if host == h {
			return true
		}
	}
	return false
}

func (u *UdemyRepairer) RepairURL(target *url.URL) {
	target.Path = u.path.Replace(target.Path)
	target.RawPath = ""
}

func (u *UdemyRepairer) RepairID(id string) string {
	const prefix = "UC-"
	if !strings.HasPrefix(strings.ToUpper(id), prefix) {
		return id
	}
	return prefix + u.code.Replace(id[len(prefix):])
}
