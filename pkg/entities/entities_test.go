package entities

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	text := `Contact alice@example.com or call +48 123 456 789 before 2024-09-12.
The invoice for $1,250.00 is at https://billing.example.com/inv/42.
CC bob@example.com and alice@example.com again.`

	got := Extract(text)

	if want := []string{"alice@example.com", "bob@example.com"}; !reflect.DeepEqual(got["email"], want) {
		t.Fatalf("email = %v, want %v", got["email"], want)
	}
	if len(got["phone"]) != 1 {
		t.Fatalf("phone = %v, want one match", got["phone"])
	}
	if want := []string{"2024-09-12"}; !reflect.DeepEqual(got["date"], want) {
		t.Fatalf("date = %v, want %v", got["date"], want)
	}
	if want := []string{"$1,250.00"}; !reflect.DeepEqual(got["money"], want) {
		t.Fatalf("money = %v, want %v", got["money"], want)
	}
	if want := []string{"https://billing.example.com/inv/42"}; !reflect.DeepEqual(got["url"], want) {
		t.Fatalf("url = %v, want %v", got["url"], want)
	}
}

func TestExtractEmpty(t *testing.T) {
	got := Extract("   ")
	if len(got) != 0 {
		t.Fatalf("got %v, want empty map", got)
	}
}

func TestMerge(t *testing.T) {
	dst := map[string][]string{"email": {"a@example.com"}}
	src := map[string][]string{
		"email": {"a@example.com", "b@example.com"},
		"url":   {"https://example.com"},
	}

	got := Merge(dst, src)
	if want := []string{"a@example.com", "b@example.com"}; !reflect.DeepEqual(got["email"], want) {
		t.Fatalf("email = %v, want %v", got["email"], want)
	}
	if len(got["url"]) != 1 {
		t.Fatalf("url = %v", got["url"])
	}

	if got := Merge(nil, src); len(got["email"]) != 2 {
		t.Fatalf("nil dst merge = %v", got)
	}
}
