package lof

import (
	"strconv"
	"strings"
)

const (
	BiotypeProteinCoding = "protein_coding"
)

// Position is a 1-based index into a transcript's exons or introns.
type Position struct {
	Index int `json:"index" yaml:"index"`
	Total int `json:"total" yaml:"total"`
}

// Exon is a 1-based inclusive genomic interval.
type Exon struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// Intron is a 1-based inclusive genomic interval.
type Intron struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// Size returns the intron length in bases.
func (i Intron) Size() int64 {
	return i.End - i.Start + 1
}

// Transcript holds the structural facts the pipeline reads. Exons and
// Introns are in transcript order (5' to 3'); intron i lies between exon i
// and exon i+1.
type Transcript struct {
	ID            string   `json:"id" yaml:"id"`
	Biotype       string   `json:"biotype" yaml:"biotype"`
	Chrom         string   `json:"chrom" yaml:"chrom"`
	Strand        int8     `json:"strand" yaml:"strand"`
	CodingStart   int64    `json:"coding_start" yaml:"coding_start"`
	CodingEnd     int64    `json:"coding_end" yaml:"coding_end"`
	CDSLength     int64    `json:"cds_length" yaml:"cds_length"`
	StartComplete bool     `json:"start_complete" yaml:"start_complete"`
	EndComplete   bool     `json:"end_complete" yaml:"end_complete"`
	Exons         []Exon   `json:"exons,omitempty" yaml:"exons,omitempty"`
	Introns       []Intron `json:"introns,omitempty" yaml:"introns,omitempty"`
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == -1
}

// SiteFeatures is a precomputed feature vector for one candidate splice site.
type SiteFeatures struct {
	Type     string             `json:"type" yaml:"type"`
	Position int64              `json:"position" yaml:"position"`
	Features map[string]float64 `json:"features" yaml:"features"`
}

// Handles carries collaborator inputs the pipeline passes through untouched.
type Handles struct {
	SpliceSite   *SiteFeatures  `json:"splice_site,omitempty" yaml:"splice_site,omitempty"`
	Alternatives []SiteFeatures `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	DeNovoDonor  *SiteFeatures  `json:"denovo_donor,omitempty" yaml:"denovo_donor,omitempty"`
}

// Annotation is one variant-transcript-allele pair to classify.
type Annotation struct {
	Transcript   *Transcript `json:"transcript" yaml:"transcript"`
	Consequences []string    `json:"consequences" yaml:"consequences"`
	RefAllele    string      `json:"ref" yaml:"ref"`
	Allele       string      `json:"allele" yaml:"allele"`
	Start        int64       `json:"start" yaml:"start"`
	End          int64       `json:"end" yaml:"end"`
	CDSEnd       int64       `json:"cds_end,omitempty" yaml:"cds_end,omitempty"`
	Exon         *Position   `json:"exon,omitempty" yaml:"exon,omitempty"`
	Intron       *Position   `json:"intron,omitempty" yaml:"intron,omitempty"`
	Handles      Handles     `json:"handles,omitempty" yaml:"handles,omitempty"`
}

// HasConsequence reports whether term is among the annotation's consequences.
func (a *Annotation) HasConsequence(term string) bool {
	for _, c := range a.Consequences {
		if c == term {
			return true
		}
	}
	return false
}

// Confidence is the LoF call confidence. The only transition after HC is
// set is the downgrade to LC.
type Confidence int

const (
	Unset Confidence = iota
	LC
	HC
)

func (c Confidence) String() string {
	switch c {
	case LC:
		return "LC"
	case HC:
		return "HC"
	default:
		return ""
	}
}

// Downgrade returns LC for HC and leaves every other value unchanged.
func (c Confidence) Downgrade() Confidence {
	if c == HC {
		return LC
	}
	return c
}

// Result is the outcome of one classification.
type Result struct {
	Confidence Confidence
	Filters    []string
	Flags      []string
	Info       []string
}

func (r *Result) addFilter(tag string) { r.Filters = append(r.Filters, tag) }
func (r *Result) addFlag(tag string)   { r.Flags = append(r.Flags, tag) }

func (r *Result) addInfo(key string, val any) {
	r.Info = append(r.Info, key+":"+formatValue(val))
}

func (r *Result) addInfoTag(tag string) { r.Info = append(r.Info, tag) }

// IsEmpty returns true when nothing was recorded.
func (r *Result) IsEmpty() bool {
	return r.Confidence == Unset && len(r.Filters) == 0 && len(r.Flags) == 0 && len(r.Info) == 0
}

// Record is the serialized form of a Result.
type Record struct {
	Confidence string `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Filter     string `json:"filter" yaml:"filter"`
	Flags      string `json:"flags" yaml:"flags"`
	Info       string `json:"info" yaml:"info"`
}

// Record joins the result lists in insertion order.
func (r *Result) Record() Record {
	return Record{
		Confidence: r.Confidence.String(),
		Filter:     strings.Join(r.Filters, ","),
		Flags:      strings.Join(r.Flags, ","),
		Info:       strings.Join(r.Info, ","),
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return ""
	}
}
