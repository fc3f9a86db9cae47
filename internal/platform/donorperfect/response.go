package donorperfect

import (
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
)

type Field struct {
	Name   string `xml:"name,attr"`
	ID     string `xml:"id,attr"`
	Value  string `xml:"value,attr"`
	Reason string `xml:"reason,attr"`
}

type Record struct {
	Fields []Field `xml:"field"`
}

// Get returns the value of the named field, matching either the name or id attribute.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if strings.EqualFold(f.Name, name) || strings.EqualFold(f.ID, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Result is the decoded XML body of an API call.
type Result struct {
	XMLName xml.Name
	Records []Record `xml:"record"`
	Fields  []Field  `xml:"field"`
	Errors  []string `xml:"error"`
}

func (r *Result) HasRecords() bool {
	return r != nil && len(r.Records) > 0
}

// rejection returns the error reason when the body is an API error indicator.
func (r *Result) rejection() (string, bool) {
	for _, f := range r.Fields {
		if f.Value == "false" {
			if f.Reason == "" {
				return "Unknown error", true
			}
			return f.Reason, true
		}
	}
	if len(r.Errors) > 0 {
		return strings.TrimSpace(r.Errors[0]), true
	}
	if r.XMLName.Local == "error" {
		return "Unknown error", true
	}
	return "", false
}

// ID extracts a numeric id from the first record, preferring the named field and
// falling back to the first field of the record.
func (r *Result) ID(name string) (int64, bool) {
	if !r.HasRecords() || len(r.Records[0].Fields) == 0 {
		return 0, false
	}
	raw, ok := r.Records[0].Get(name)
	if !ok {
		raw = r.Records[0].Fields[0].Value
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseResult(action string, body []byte) (*Result, error) {
	var res Result
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false
	if err := dec.Decode(&res); err != nil {
		return nil, newError(ErrProtocol, action, "failed to parse XML: "+truncate(string(body), 200), err)
	}
	if reason, rejected := res.rejection(); rejected {
		return nil, newError(ErrRejected, action, reason, nil)
	}
	return &res, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
