package models

// Claim is what the extractor read off a certificate. Empty fields are absent.
type Claim struct {
	CandidateName string `json:"candidateName,omitempty"`
	CertificateID string `json:"certificateId,omitempty"`
	IssuerName    string `json:"issuerName,omitempty"`
	IssuerURL     string `json:"issuerUrl,omitempty"`
}

type TrustEntry struct {
	OrganizationName string `json:"organizationName"`
	VerificationURL  string `json:"verificationUrl"`
}

type Meta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Canonical   string `json:"canonical,omitempty"`
}

type Content struct {
	Text      string `json:"text,omitempty"`
	WordCount int    `json:"wordCount,omitempty"`
	Language  string `json:"language,omitempty"`
}

type Page struct {
	Meta    Meta    `json:"meta"`
	Content Content `json:"content"`
}

// PageClass labels a raw response body before text extraction.
type PageClass struct {
	Label  string            `json:"label"`
	Reason map[string]string `json:"reason,omitempty"`
}

type FetchStatus string

const (
	FetchOK       FetchStatus = "ok"
	FetchNotFound FetchStatus = "not_found"
	FetchBlocked  FetchStatus = "blocked"
	FetchFailed   FetchStatus = "failed"
)

type FetchResult struct {
	URL        string      `json:"url"`
	FinalURL   string      `json:"finalUrl,omitempty"`
	Content    string      `json:"content,omitempty"`
	Cached     bool        `json:"cached"`
	Status     FetchStatus `json:"status"`
	StatusCode int         `json:"statusCode,omitempty"`
	Strategy   string      `json:"strategy,omitempty"`
	FetchMs    int64       `json:"fetchMs"`
	Err        string      `json:"error,omitempty"`
}

// HasContent reports whether the fetch produced page text.
func (r FetchResult) HasContent() bool { return r.Status == FetchOK && r.Content != "" }

type MatchOutcome struct {
	IsMatch    bool    `json:"isMatch"`
	Similarity float64 `json:"similarity"`
}

type Outcome string

const (
	OutcomeVerified          Outcome = "VERIFIED"
	OutcomeSoftPass          Outcome = "SOFT_PASS"
	OutcomeMismatch          Outcome = "MISMATCH"
	OutcomeNotFound          Outcome = "NOT_FOUND"
	OutcomeExhausted         Outcome = "EXHAUSTED"
	OutcomeRejectedNoName    Outcome = "REJECTED_NO_NAME"
	OutcomeRejectedNoURLs    Outcome = "REJECTED_NO_URLS"
	OutcomeRejectedUntrusted Outcome = "REJECTED_UNTRUSTED"
)

type Verdict struct {
	IsVerified    bool    `json:"isVerified"`
	TrustedDomain bool    `json:"trustedDomain"`
	Message       string  `json:"message"`
	Outcome       Outcome `json:"outcome"`
	Similarity    float64 `json:"similarity,omitempty"`
	URL           string  `json:"url,omitempty"`
	URLsTried     int     `json:"urlsTried"`
}

type ForensicsResult struct {
	ManipulationScore float64  `json:"manipulationScore"`
	IsHighRisk        bool     `json:"isHighRisk"`
	Status            string   `json:"status"`
	Details           []string `json:"details,omitempty"`
}

type Extraction struct {
	Claim
	RawTextSnippet string   `json:"rawTextSnippet,omitempty"`
	Issues         []string `json:"issues,omitempty"`
}

const (
	FinalVerified   = "VERIFIED"
	FinalFlagged    = "FLAGGED"
	FinalUnverified = "UNVERIFIED"
)

type AnalysisResult struct {
	RequestID    string          `json:"requestId"`
	Filename     string          `json:"filename,omitempty"`
	FinalVerdict string          `json:"finalVerdict"`
	Forensics    ForensicsResult `json:"forensics"`
	Extraction   Extraction      `json:"extraction"`
	Verification Verdict         `json:"verification"`
}
