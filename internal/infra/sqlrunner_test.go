package infra

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestExtractMarker(t *testing.T) {
	query := "\n--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db\nselect 1;\n"
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker error: %v", err)
	}
	if marker != "4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db" {
		t.Fatalf("unexpected marker %q", marker)
	}
	if strings.TrimSpace(body) != "select 1;" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestExtractMarkerRejectsMissingMarker(t *testing.T) {
	cases := map[string]error{
		"":                     errEmptyQuery,
		"select 1":             errMissingMarker,
		"--sql not-a-uuid\nx":  errMissingMarker,
		"--sql 4F55A9B7-4E9F-4E45-A3B3-5A532D21D9DB\nx": errMissingMarker,
	}
	for query, want := range cases {
		if _, _, err := extractMarker(query); !errors.Is(err, want) {
			t.Fatalf("extractMarker(%q) = %v, want %v", query, err, want)
		}
	}
}

func TestErrorRowReturnsError(t *testing.T) {
	r := &SQLRunner{}
	row := r.QueryRow(context.Background(), "select 1")
	var v int
	if err := row.Scan(&v); !errors.Is(err, errMissingMarker) {
		t.Fatalf("expected marker error, got %v", err)
	}
}
