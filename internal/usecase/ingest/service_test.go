package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/faqindex/internal/db/elastic"
	"github.com/kailas-cloud/faqindex/internal/db/elastic/elastictest"
	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/domain/schema"
	docrepo "github.com/kailas-cloud/faqindex/internal/repository/document"
	indexrepo "github.com/kailas-cloud/faqindex/internal/repository/index"
)

// lengthModel returns [len(text), 0] and records every input.
type lengthModel struct {
	inputs []string
	failAt int // 1-based call number that fails; 0 = never
}

func (m *lengthModel) Encode(_ context.Context, text string) ([]float32, error) {
	m.inputs = append(m.inputs, text)
	if m.failAt > 0 && len(m.inputs) == m.failAt {
		return nil, errors.New("model failure")
	}
	return []float32{float32(len(text)), 0}, nil
}

// memSink keeps written documents in order.
type memSink struct {
	docs   []domain.Document
	failAt int
	calls  int
}

func (s *memSink) Write(_ context.Context, _ string, doc *domain.Document) (string, error) {
	s.calls++
	if s.failAt > 0 && s.calls == s.failAt {
		return "", errors.New("engine rejected document")
	}
	s.docs = append(s.docs, *doc)
	return fmt.Sprintf("k%d", s.calls), nil
}

func threeDocs() []domain.Document {
	return []domain.Document{
		{ID: "1", Course: "c", Section: "s", Question: "Q1", Text: "T1"},
		{ID: "2", Course: "c", Section: "s", Question: "Q2", Text: "T2"},
		{ID: "3", Course: "c", Section: "s", Question: "Q3", Text: "T3"},
	}
}

func TestIndexDocuments_ThreeDocuments(t *testing.T) {
	sink := &memSink{}
	model := &lengthModel{}
	docs := threeDocs()

	n, err := New(sink).IndexDocuments(context.Background(), "faq", docs, model)
	if err != nil {
		t.Fatalf("IndexDocuments: %v", err)
	}
	if n != 3 {
		t.Fatalf("written = %d, want 3", n)
	}

	wantInputs := []string{"Q1 T1", "Q2 T2", "Q3 T3"}
	for i, want := range wantInputs {
		if model.inputs[i] != want {
			t.Errorf("input %d = %q, want %q", i, model.inputs[i], want)
		}
	}

	for i, doc := range sink.docs {
		if doc.ID != docs[i].ID {
			t.Errorf("write order: got %s at %d", doc.ID, i)
		}
		if len(doc.QuestionTextVector) != 2 || doc.QuestionTextVector[0] != 5 || doc.QuestionTextVector[1] != 0 {
			t.Errorf("doc %s vector = %v, want [5 0]", doc.ID, doc.QuestionTextVector)
		}
	}

	// the vector is attached to the caller's documents in place
	if !docs[0].HasVector() {
		t.Error("expected vector set on input document")
	}
}

func TestIndexDocuments_ConcatenationContract(t *testing.T) {
	docs := []domain.Document{
		{ID: "a", Question: "", Text: ""},
		{ID: "b", Question: "How?", Text: ""},
		{ID: "c", Question: "", Text: "Because."},
		{ID: "d", Question: "Can I join late?", Text: "Yes, you can."},
	}
	model := &lengthModel{}

	if _, err := New(&memSink{}).IndexDocuments(context.Background(), "faq", docs, model); err != nil {
		t.Fatal(err)
	}
	for i := range docs {
		want := float32(len(docs[i].Question) + 1 + len(docs[i].Text))
		if docs[i].QuestionTextVector[0] != want {
			t.Errorf("doc %s: vector[0] = %v, want %v", docs[i].ID, docs[i].QuestionTextVector[0], want)
		}
	}
}

func TestIndexDocuments_Empty(t *testing.T) {
	sink := &memSink{}
	n, err := New(sink).IndexDocuments(context.Background(), "faq", nil, &lengthModel{})
	if err != nil || n != 0 || sink.calls != 0 {
		t.Fatalf("n=%d err=%v calls=%d", n, err, sink.calls)
	}
}

func TestIndexDocuments_EmbedFailureAborts(t *testing.T) {
	sink := &memSink{}
	model := &lengthModel{failAt: 2}

	n, err := New(sink).IndexDocuments(context.Background(), "faq", threeDocs(), model)

	var ingErr *domain.IngestionError
	if !errors.As(err, &ingErr) {
		t.Fatalf("expected IngestionError, got %v", err)
	}
	if !errors.Is(err, domain.ErrIngestion) {
		t.Fatal("expected ErrIngestion in chain")
	}
	if ingErr.Position != 2 || ingErr.DocumentID != "2" || ingErr.Step != StepEmbed {
		t.Errorf("error = %+v", ingErr)
	}
	if n != 1 || len(sink.docs) != 1 {
		t.Errorf("written = %d, sink = %d; want 1", n, len(sink.docs))
	}
	if len(model.inputs) != 2 {
		t.Errorf("document 3 must not be embedded, inputs = %v", model.inputs)
	}
}

func TestIndexDocuments_WriteFailureAborts(t *testing.T) {
	sink := &memSink{failAt: 3}

	n, err := New(sink).IndexDocuments(context.Background(), "faq", threeDocs(), &lengthModel{})

	var ingErr *domain.IngestionError
	if !errors.As(err, &ingErr) || ingErr.Position != 3 || ingErr.Step != StepWrite {
		t.Fatalf("expected write failure at 3, got %v", err)
	}
	if n != 2 {
		t.Errorf("written = %d, want 2", n)
	}
}

func TestIndexDocuments_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &memSink{}
	_, err := New(sink).IndexDocuments(ctx, "faq", threeDocs(), &lengthModel{})
	if !errors.Is(err, context.Canceled) || !errors.Is(err, domain.ErrIngestion) {
		t.Fatalf("expected cancelled ingestion error, got %v", err)
	}
	if sink.calls != 0 {
		t.Errorf("no writes expected, got %d", sink.calls)
	}
}

func TestIndexDocuments_Deterministic(t *testing.T) {
	a, b := threeDocs(), threeDocs()
	if _, err := New(&memSink{}).IndexDocuments(context.Background(), "faq", a, &lengthModel{}); err != nil {
		t.Fatal(err)
	}
	if _, err := New(&memSink{}).IndexDocuments(context.Background(), "faq", b, &lengthModel{}); err != nil {
		t.Fatal(err)
	}
	for i := range a {
		for j := range a[i].QuestionTextVector {
			if a[i].QuestionTextVector[j] != b[i].QuestionTextVector[j] {
				t.Fatalf("doc %d differs between runs", i)
			}
		}
	}
}

// elasticPipeline provisions a 2-dim index on a fake cluster and returns the writer.
func elasticPipeline(t *testing.T) (*elastictest.Server, *elastic.Store, *docrepo.Repo) {
	t.Helper()
	srv := elastictest.NewServer()
	t.Cleanup(srv.Close)

	store, err := elastic.NewStore(elastic.Config{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := indexrepo.New(store).Setup(context.Background(), "faq", schema.KnowledgeBase(2)); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return srv, store, docrepo.New(store, 2)
}

func TestIndexDocuments_CountInvariant(t *testing.T) {
	_, store, writer := elasticPipeline(t)
	ctx := context.Background()

	docs := make([]domain.Document, 25)
	for i := range docs {
		docs[i] = domain.Document{ID: fmt.Sprintf("d%02d", i), Question: "q", Text: fmt.Sprint(i)}
	}
	// duplicate ids are written as separate documents
	docs[24].ID = docs[0].ID

	n, err := New(writer).WithProgressEvery(10).IndexDocuments(ctx, "faq", docs, &lengthModel{})
	if err != nil {
		t.Fatalf("IndexDocuments: %v", err)
	}
	if err := writer.Refresh(ctx, "faq"); err != nil {
		t.Fatal(err)
	}
	count, err := store.Count(ctx, "faq")
	if err != nil {
		t.Fatal(err)
	}
	if count != int64(n) || n != len(docs) {
		t.Fatalf("count = %d, written = %d, input = %d", count, n, len(docs))
	}
}

func TestIndexDocuments_EngineFailureLeavesPrefix(t *testing.T) {
	srv, store, writer := elasticPipeline(t)
	srv.FailIndexAt = 4
	ctx := context.Background()

	docs := make([]domain.Document, 6)
	for i := range docs {
		docs[i] = domain.Document{ID: fmt.Sprint(i + 1), Question: "q", Text: "t"}
	}

	n, err := New(writer).IndexDocuments(ctx, "faq", docs, &lengthModel{})
	var ingErr *domain.IngestionError
	if !errors.As(err, &ingErr) || ingErr.Position != 4 {
		t.Fatalf("expected failure at document 4, got %v", err)
	}

	count, cerr := store.Count(ctx, "faq")
	if cerr != nil {
		t.Fatal(cerr)
	}
	if n != 3 || count != 3 {
		t.Fatalf("written = %d, count = %d; want 3", n, count)
	}
	stored := srv.Index("faq").Docs
	for i, d := range stored {
		if d["id"] != docs[i].ID {
			t.Errorf("stored %d = %v, want id %s", i, d["id"], docs[i].ID)
		}
	}
}

func TestIndexDocuments_WrongModelSizeRejectedBeforeWrite(t *testing.T) {
	srv, _, _ := elasticPipeline(t)
	store, err := elastic.NewStore(elastic.Config{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	writer := docrepo.New(store, 3)

	_, err = New(writer).IndexDocuments(context.Background(), "faq", threeDocs(), &lengthModel{})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if len(srv.Index("faq").Docs) != 0 {
		t.Fatal("nothing should have been written")
	}
}
