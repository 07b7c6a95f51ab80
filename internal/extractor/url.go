package extractor

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRe = regexp.MustCompile(`(?i)(?:https?://|www\.|ude\.my/|coursera\.org/)\S+`)

const urlTrailing = ".,;:!?)]}>\"'"

func (e *Extractor) findURL(text string) string {
	raw := urlRe.FindString(text)
	if raw == "" {
		return ""
	}
	raw = strings.TrimRight(raw, urlTrailing)
	return e.repairURL(raw)
}

func (e *Extractor) repairURL(raw string) string {
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, r := range e.repairers {
		if r.MatchHost(host) {
			r.RepairURL(u)
			return u.String()
		}
	}
	return raw
}

func (e *Extractor) repairID(issuer, id string) string {
	if id == "" || issuer == "" {
		return id
	}
	for _, r := range e.repairers {
		if strings.EqualFold(r.Issuer(), issuer) {
			return r.RepairID(id)
		}
	}
	return id
}
