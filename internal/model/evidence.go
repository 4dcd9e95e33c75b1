package model

import (
	"net/url"
	"strings"
)

type EvidenceLevel string

const (
	EvidenceHigh     EvidenceLevel = "high"
	EvidenceModerate EvidenceLevel = "moderate"
	EvidenceLow      EvidenceLevel = "low"
)

var reputableHosts = []string{
	"who.int",
	"cdc.gov",
	"nhs.uk",
	"aap.org",
	"healthychildren.org",
	"nih.gov",
}

// Evidence is a display-only heuristic. It plays no part in validation.
type Evidence struct {
	Level      EvidenceLevel `json:"level"`
	TrustScore int           `json:"trust_score"`
}

// EvidenceFor scores citations: 20 per citation plus 10 per reputable source, capped at 100.
func EvidenceFor(citations []Citation) Evidence {
	score := 0
	for _, c := range citations {
		score += 20
		if reputable(c.URL) {
			score += 10
		}
	}
	if score > 100 {
		score = 100
	}

	level := EvidenceLow
	switch {
	case score >= 70:
		level = EvidenceHigh
	case score >= 40:
		level = EvidenceModerate
	}
	return Evidence{Level: level, TrustScore: score}
}

func reputable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range reputableHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
