// Package checkstyle runs the Checkstyle audit pipeline: fetch the
// submitted sources, execute the analyzer, parse its XML output and
// render an HTML report.
package checkstyle

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Violation severities as emitted by Checkstyle.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Violation is a single finding.
type Violation struct {
	Line     int    `xml:"line,attr" json:"line"`
	Column   int    `xml:"column,attr" json:"column,omitempty"`
	Severity string `xml:"severity,attr" json:"severity"`
	Message  string `xml:"message,attr" json:"message"`
	Source   string `xml:"source,attr" json:"source"`
}

// Rule returns the short rule name from the fully qualified source.
func (v Violation) Rule() string {
	if i := strings.LastIndex(v.Source, "."); i >= 0 {
		return v.Source[i+1:]
	}
	return v.Source
}

// FileReport groups the findings of one source file.
type FileReport struct {
	Name       string      `xml:"name,attr" json:"name"`
	Violations []Violation `xml:"error" json:"violations"`
}

// Result is a parsed Checkstyle run.
type Result struct {
	XMLName xml.Name     `xml:"checkstyle" json:"-"`
	Version string       `xml:"version,attr" json:"version"`
	Files   []FileReport `xml:"file" json:"files"`
}

// Counts tallies findings by severity.
func (r Result) Counts() (errors, warnings, infos int) {
	for _, f := range r.Files {
		for _, v := range f.Violations {
			switch v.Severity {
			case SeverityError:
				errors++
			case SeverityWarning:
				warnings++
			default:
				infos++
			}
		}
	}
	return errors, warnings, infos
}

// TotalViolations returns the finding count across all files.
func (r Result) TotalViolations() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Violations)
	}
	return n
}

// ParseXML decodes Checkstyle's XML output.
func ParseXML(data []byte) (Result, error) {
	var res Result
	if err := xml.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("checkstyle: parse output: %w", err)
	}
	return res, nil
}
