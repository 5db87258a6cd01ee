package email

import (
	"testing"
	"time"
)

func TestParseRecord_FullRecord(t *testing.T) {
	data := []byte(`{
		"id": "q3-review.msg",
		"subject": "Q3 Review",
		"sender": {"name": "Alice Smith", "email": "alice@example.com"},
		"to": [{"name": "Bob", "email": "bob@example.com"}, "carol@example.com"],
		"sent_date": "2024-09-12T14:30:00Z",
		"received_date": 1726151400000,
		"attachments": [{"file_name": "budget.xlsx", "size": 2048}, "notes.txt"],
		"body": "Hello there.",
		"entities": {"email": ["alice@example.com", 42]}
	}`)

	rec, err := ParseRecord(data)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}

	if rec.NormalizedID() != "q3-review" {
		t.Errorf("NormalizedID = %q", rec.NormalizedID())
	}
	if rec.Sender.Name != "Alice Smith" || rec.Sender.Email != "alice@example.com" {
		t.Errorf("sender = %+v", rec.Sender)
	}
	if len(rec.To) != 2 || rec.To[1].Email != "carol@example.com" {
		t.Errorf("to = %+v", rec.To)
	}
	if want := time.Date(2024, 9, 12, 14, 30, 0, 0, time.UTC); !rec.SentDate.Equal(want) {
		t.Errorf("sent_date = %v, want %v", rec.SentDate, want)
	}
	if rec.ReceivedDate.IsZero() {
		t.Error("received_date (unix ms) not parsed")
	}
	if len(rec.Attachments) != 2 || rec.Attachments[1].FileName != "notes.txt" {
		t.Errorf("attachments = %+v", rec.Attachments)
	}
	// Non-string entity values are dropped, not fatal.
	if got := rec.Entities["email"]; len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("entities = %+v", rec.Entities)
	}
}

func TestParseRecord_Errors(t *testing.T) {
	if _, err := ParseRecord([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := ParseRecord([]byte(`{"unknown": true}`)); err == nil {
		t.Error("expected error for record with no identifying fields")
	}
}

func TestParseAddress_BareStrings(t *testing.T) {
	cases := []struct {
		in      string
		display string
	}{
		{`{"sender": "Alice Smith <alice@example.com>", "subject": "x"}`, "Alice Smith <alice@example.com>"},
		{`{"sender": "alice@example.com", "subject": "x"}`, "alice@example.com"},
		{`{"sender": "Alice Smith", "subject": "x"}`, "Alice Smith"},
	}
	for _, tc := range cases {
		rec, err := ParseRecord([]byte(tc.in))
		if err != nil {
			t.Fatalf("ParseRecord(%s): %v", tc.in, err)
		}
		if got := rec.Sender.Display(); got != tc.display {
			t.Errorf("Display = %q, want %q", got, tc.display)
		}
	}
}

func TestNormalizedID_Fallbacks(t *testing.T) {
	cases := []struct {
		rec  Record
		want string
	}{
		{Record{ID: "report.msg"}, "report"},
		{Record{ID: "REPORT.MSG"}, "REPORT"},
		{Record{SourceFile: "dir/inner/mail.msg"}, "mail"},
		{Record{}, "email"},
	}
	for _, tc := range cases {
		if got := tc.rec.NormalizedID(); got != tc.want {
			t.Errorf("NormalizedID(%+v) = %q, want %q", tc.rec, got, tc.want)
		}
	}
}

func TestResolveContent_Precedence(t *testing.T) {
	rec := &Record{
		CleanedText:   "cleaned",
		ExtractedText: "extracted",
		Body:          "body",
		HTMLBody:      "<p>html</p>",
	}
	if got := ResolveContent(rec); got != "cleaned" {
		t.Errorf("got %q, want cleaned text first", got)
	}

	rec.CleanedText = "  "
	if got := ResolveContent(rec); got != "extracted" {
		t.Errorf("got %q, want extracted text second", got)
	}

	rec.ExtractedText = ""
	if got := ResolveContent(rec); got != "body" {
		t.Errorf("got %q, want plain body third", got)
	}

	rec.Body = ""
	if got := Preprocess(ResolveContent(rec)); got != "html" {
		t.Errorf("got %q, want stripped HTML last", got)
	}

	if got := ResolveContent(&Record{}); got != "" {
		t.Errorf("empty record resolved to %q", got)
	}
}

func TestStripHTML(t *testing.T) {
	in := `<html><style>p { color: red }</style><p>First &amp; second.</p>Line one<br/>Line two</html>`
	got := Preprocess(StripHTML(in))
	want := "First & second.\nLine one\nLine two"
	if got != want {
		t.Errorf("StripHTML = %q, want %q", got, want)
	}
}

func TestPreprocess(t *testing.T) {
	in := "First line.  \r\n\r\n\r\n\r\nSecond \t line   here.\r"
	want := "First line.\n\nSecond line here."
	if got := Preprocess(in); got != want {
		t.Errorf("Preprocess = %q, want %q", got, want)
	}
}
