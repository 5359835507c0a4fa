package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestDocument_EmbeddingInput(t *testing.T) {
	d := Document{Question: "How do I join?", Text: "Register in the form."}
	if got := d.EmbeddingInput(); got != "How do I join? Register in the form." {
		t.Errorf("EmbeddingInput() = %q", got)
	}

	empty := Document{}
	if got := empty.EmbeddingInput(); got != " " {
		t.Errorf("EmbeddingInput() of empty doc = %q, want single space", got)
	}
}

func TestDuplicateIDs(t *testing.T) {
	docs := []Document{{ID: "b"}, {ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "a"}}
	got := DuplicateIDs(docs)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("DuplicateIDs() = %v", got)
	}
	if DuplicateIDs([]Document{{ID: "x"}}) != nil {
		t.Error("expected no duplicates")
	}
}

func TestStageError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStageError(ErrNetwork, cause)

	if !errors.Is(err, ErrNetwork) {
		t.Error("expected ErrNetwork")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause")
	}
	if errors.Is(err, ErrParse) {
		t.Error("unexpected ErrParse")
	}
	if NewStageError(ErrNetwork, nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestIngestionError(t *testing.T) {
	cause := errors.New("boom")
	err := error(&IngestionError{Position: 2, DocumentID: "abc", Step: "embed", Err: cause})

	if !errors.Is(err, ErrIngestion) || !errors.Is(err, cause) {
		t.Errorf("errors.Is failed for %v", err)
	}
	want := `ingestion error: document 2 (id "abc"): embed: boom`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var ie *IngestionError
	if !errors.As(err, &ie) || ie.Position != 2 {
		t.Errorf("errors.As failed: %+v", ie)
	}
}

func TestCountMismatchError(t *testing.T) {
	err := error(&CountMismatchError{Written: 3, Indexed: 2})
	if !errors.Is(err, ErrCountMismatch) {
		t.Error("expected ErrCountMismatch")
	}
}
