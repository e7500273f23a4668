package webhook

// FindingsFile is the JSON document available for download at a verified
// payload's findings URL, until the payload's "validUntil" time.
type FindingsFile struct {
	Findings []Finding `json:"findings"`
}

// Finding is a single detected instance of sensitive data. Its structure is
// defined by Nightfall; fields that this app doesn't display are omitted.
type Finding struct {
	Finding         string   `json:"finding,omitempty"`
	RedactedFinding string   `json:"redactedFinding,omitempty"`
	BeforeContext   string   `json:"beforeContext,omitempty"`
	AfterContext    string   `json:"afterContext,omitempty"`
	Detector        Detector `json:"detector"`
	Confidence      string   `json:"confidence"`
	Location        Location `json:"location"`
}

type Detector struct {
	Name string `json:"name"`
	UUID string `json:"uuid,omitempty"`
}

type Location struct {
	ByteRange      *Range `json:"byteRange,omitempty"`
	CodepointRange *Range `json:"codepointRange,omitempty"`
}

type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Display returns the redacted form of the finding when redaction was
// configured for the scan, and the raw match otherwise.
func (f Finding) Display() string {
	if f.RedactedFinding != "" {
		return f.RedactedFinding
	}
	return f.Finding
}
