// Package email defines the parsed email record consumed by the chunking
// pipeline and loads records from the JSON emitted by the MSG extraction
// step. The extractor is a separate tool; its output is treated as untrusted
// and parsed tolerantly (missing fields, string-or-number dates, mixed-type
// entity arrays must not fail a load).
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Address is a sender or recipient. Either field may be empty.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Attachment describes a file attached to an email.
type Attachment struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Record is a fully parsed email. It is immutable for the duration of a
// chunking call.
type Record struct {
	ID           string              `json:"id"`
	SourceFile   string              `json:"source_file,omitempty"`
	Subject      string              `json:"subject"`
	Sender       Address             `json:"sender"`
	To           []Address           `json:"to,omitempty"`
	CC           []Address           `json:"cc,omitempty"`
	SentDate     time.Time           `json:"sent_date,omitempty"`
	ReceivedDate time.Time           `json:"received_date,omitempty"`
	Attachments  []Attachment        `json:"attachments,omitempty"`
	Body         string              `json:"body,omitempty"`
	HTMLBody     string              `json:"html_body,omitempty"`
	CleanedText  string              `json:"cleaned_text,omitempty"`
	ExtractedText string             `json:"extracted_text,omitempty"`
	Entities     map[string][]string `json:"entities,omitempty"`
}

// Display returns the human-facing form of an address: "Name <email>" when
// both are present and differ, otherwise whichever is available.
func (a Address) Display() string {
	name := strings.TrimSpace(a.Name)
	addr := strings.TrimSpace(a.Email)
	switch {
	case name != "" && addr != "" && !strings.EqualFold(name, addr):
		return fmt.Sprintf("%s <%s>", name, addr)
	case addr != "":
		return addr
	default:
		return name
	}
}

// NormalizedID strips a trailing .msg extension from the record's source
// identity. Chunk IDs are derived from this value.
func (r *Record) NormalizedID() string {
	id := r.ID
	if id == "" {
		id = filepath.Base(r.SourceFile)
	}
	if id == "" {
		id = "email"
	}
	return strings.TrimSuffix(strings.TrimSuffix(id, ".msg"), ".MSG")
}

// LoadRecord reads one JSON email record from disk.
func LoadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading record: %w", err)
	}
	rec, err := ParseRecord(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if rec.SourceFile == "" {
		rec.SourceFile = filepath.Base(path)
	}
	return rec, nil
}

// ParseRecord parses a JSON email record. gjson keeps this tolerant of the
// extractor's loose output: absent fields yield zero values, dates may be
// RFC3339 strings or unix milliseconds, entity values may mix types.
func ParseRecord(data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)

	rec := &Record{
		ID:            root.Get("id").String(),
		SourceFile:    root.Get("source_file").String(),
		Subject:       root.Get("subject").String(),
		Body:          root.Get("body").String(),
		HTMLBody:      root.Get("html_body").String(),
		CleanedText:   root.Get("cleaned_text").String(),
		ExtractedText: root.Get("extracted_text").String(),
		Sender:        parseAddress(root.Get("sender")),
		SentDate:      parseDate(root.Get("sent_date")),
		ReceivedDate:  parseDate(root.Get("received_date")),
	}

	for _, v := range root.Get("to").Array() {
		rec.To = append(rec.To, parseAddress(v))
	}
	for _, v := range root.Get("cc").Array() {
		rec.CC = append(rec.CC, parseAddress(v))
	}
	for _, v := range root.Get("attachments").Array() {
		att := Attachment{
			FileName: v.Get("file_name").String(),
			MimeType: v.Get("mime_type").String(),
			Size:     v.Get("size").Int(),
		}
		if att.FileName == "" {
			// Some extractor versions emit plain filename strings.
			att.FileName = v.String()
		}
		if att.FileName != "" {
			rec.Attachments = append(rec.Attachments, att)
		}
	}

	entities := root.Get("entities")
	if entities.IsObject() {
		rec.Entities = make(map[string][]string)
		entities.ForEach(func(key, value gjson.Result) bool {
			for _, item := range value.Array() {
				if s := item.String(); s != "" {
					rec.Entities[key.String()] = append(rec.Entities[key.String()], s)
				}
			}
			return true
		})
	}

	if rec.ID == "" && rec.SourceFile == "" && rec.Subject == "" &&
		rec.Body == "" && rec.HTMLBody == "" {
		return nil, fmt.Errorf("record has no identifying fields")
	}

	return rec, nil
}

func parseAddress(v gjson.Result) Address {
	if v.Type == gjson.String {
		// Bare "Name <addr@host>" or "addr@host" string.
		s := strings.TrimSpace(v.String())
		if open := strings.LastIndex(s, "<"); open >= 0 && strings.HasSuffix(s, ">") {
			return Address{
				Name:  strings.TrimSpace(s[:open]),
				Email: strings.TrimSpace(s[open+1 : len(s)-1]),
			}
		}
		if strings.Contains(s, "@") {
			return Address{Email: s}
		}
		return Address{Name: s}
	}
	return Address{
		Name:  v.Get("name").String(),
		Email: v.Get("email").String(),
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

func parseDate(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		ms := v.Int()
		if ms <= 0 {
			return time.Time{}
		}
		return time.UnixMilli(ms).UTC()
	case gjson.String:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return time.Time{}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}
