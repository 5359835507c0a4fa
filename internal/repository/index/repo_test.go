package index

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kailas-cloud/faqindex/internal/db"
	"github.com/kailas-cloud/faqindex/internal/db/elastic"
	"github.com/kailas-cloud/faqindex/internal/db/elastic/elastictest"
	"github.com/kailas-cloud/faqindex/internal/domain"
	"github.com/kailas-cloud/faqindex/internal/domain/schema"
)

func newElastic(t *testing.T) (*elastic.Store, *elastictest.Server) {
	t.Helper()
	srv := elastictest.NewServer()
	t.Cleanup(srv.Close)
	s, err := elastic.NewStore(elastic.Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s, srv
}

func sortedKnowledgeBase(dims int) []schema.Field {
	return []schema.Field{
		{Name: "course", Type: schema.Keyword},
		{Name: "id", Type: schema.Keyword},
		{Name: "question", Type: schema.Text},
		{Name: "question_text_vector", Type: schema.DenseVector, Dims: dims, Similarity: schema.Cosine, Indexed: true},
		{Name: "section", Type: schema.Text},
		{Name: "text", Type: schema.Text},
	}
}

func TestSetup_CreatesDeclaredFields(t *testing.T) {
	store, _ := newElastic(t)
	p := New(store)
	ctx := context.Background()

	if err := p.Setup(ctx, "course-questions", schema.KnowledgeBase(384)); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	fields, err := p.Fields(ctx, "course-questions")
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	if want := sortedKnowledgeBase(384); !reflect.DeepEqual(fields, want) {
		t.Fatalf("fields = %+v\nwant %+v", fields, want)
	}
}

func TestSetup_Idempotent(t *testing.T) {
	store, srv := newElastic(t)
	p := New(store)
	ctx := context.Background()

	if err := p.Setup(ctx, "course-questions", schema.KnowledgeBase(384)); err != nil {
		t.Fatalf("first Setup: %v", err)
	}
	first, err := p.Fields(ctx, "course-questions")
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Setup(ctx, "course-questions", schema.KnowledgeBase(384)); err != nil {
		t.Fatalf("second Setup: %v", err)
	}
	second, err := p.Fields(ctx, "course-questions")
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("mapping changed between runs:\n%+v\n%+v", first, second)
	}
	if n := len(srv.Index("course-questions").Docs); n != 0 {
		t.Fatalf("expected empty index, got %d documents", n)
	}
}

func TestSetup_DestroysPreviousDocuments(t *testing.T) {
	store, srv := newElastic(t)
	srv.AddIndex("course-questions", 948)

	if err := New(store).Setup(context.Background(), "course-questions", schema.KnowledgeBase(384)); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	n, err := store.Count(context.Background(), "course-questions")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("Count = %d, want 0", n)
	}
}

func TestSetup_DeleteBeforeCreate(t *testing.T) {
	ms := &mockStore{supportsTextSearch: true}

	if err := New(ms).Setup(context.Background(), "faq", schema.KnowledgeBase(384)); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if got := strings.Join(ms.calls, ","); got != "ping,drop,create" {
		t.Fatalf("calls = %s", got)
	}
}

func TestSetup_MissingIndexIsNotAnError(t *testing.T) {
	ms := &mockStore{
		supportsTextSearch: true,
		dropIndexFn: func(_ context.Context, _ string) error {
			return db.ErrIndexNotFound
		},
	}

	if err := New(ms).Setup(context.Background(), "faq", schema.KnowledgeBase(384)); err != nil {
		t.Fatalf("Setup: %v", err)
	}
}

func TestSetup_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		store *mockStore
		sch   schema.Schema
		calls string
	}{
		{
			name:  "unreachable",
			store: &mockStore{pingFn: func(context.Context) error { return boom }},
			sch:   schema.KnowledgeBase(384),
			calls: "ping",
		},
		{
			name:  "delete fails",
			store: &mockStore{dropIndexFn: func(context.Context, string) error { return boom }},
			sch:   schema.KnowledgeBase(384),
			calls: "ping,drop",
		},
		{
			name:  "create rejected",
			store: &mockStore{createIndexFn: func(context.Context, *db.IndexDefinition) error { return boom }},
			sch:   schema.KnowledgeBase(384),
			calls: "ping,drop,create",
		},
		{
			name:  "invalid schema",
			store: &mockStore{},
			sch:   schema.KnowledgeBase(0),
			calls: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.store).Setup(context.Background(), "faq", tt.sch)
			if !errors.Is(err, domain.ErrIndexProvision) {
				t.Fatalf("expected ErrIndexProvision, got %v", err)
			}
			if got := strings.Join(tt.store.calls, ","); got != tt.calls {
				t.Fatalf("calls = %q, want %q", got, tt.calls)
			}
		})
	}
}

func TestSetup_EngineRejectsSchema(t *testing.T) {
	store, _ := newElastic(t)

	err := New(store).Setup(context.Background(), "faq", schema.KnowledgeBase(100000))
	if !errors.Is(err, domain.ErrIndexProvision) {
		t.Fatalf("expected ErrIndexProvision, got %v", err)
	}
}

func TestBuildIndex_TextDowngradedWithoutTextSearch(t *testing.T) {
	def, err := buildIndex("faq", schema.KnowledgeBase(384), false, HNSWConfig{M: 16, EFConstruct: 200})
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range def.Fields {
		if f.Type == db.IndexFieldText {
			t.Errorf("field %s should be a tag without text search", f.Name)
		}
	}
	vec := def.Fields[len(def.Fields)-1]
	if vec.VectorDim != 384 || vec.VectorDistance != db.DistanceCosine || vec.VectorM != 16 || !vec.VectorIndexed {
		t.Errorf("vector field = %+v", vec)
	}
	if def.Shards != 1 || def.Replicas != 0 {
		t.Errorf("shards/replicas = %d/%d", def.Shards, def.Replicas)
	}
}

func TestFields_Unsupported(t *testing.T) {
	_, err := New(&mockStore{}).Fields(context.Background(), "faq")
	if !errors.Is(err, ErrFieldsUnsupported) {
		t.Fatalf("expected ErrFieldsUnsupported, got %v", err)
	}
}

func TestWithHNSW(t *testing.T) {
	p := New(&mockStore{}).WithHNSW(HNSWConfig{M: 64})
	if p.hnsw.M != 64 || p.hnsw.EFConstruct != 200 {
		t.Errorf("hnsw = %+v", p.hnsw)
	}
}

func TestExists(t *testing.T) {
	store, _ := newElastic(t)
	p := New(store)
	ctx := context.Background()

	ok, err := p.Exists(ctx, "course-questions")
	if err != nil || ok {
		t.Fatalf("before Setup: ok=%v err=%v", ok, err)
	}
	if err := p.Setup(ctx, "course-questions", schema.KnowledgeBase(384)); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	ok, err = p.Exists(ctx, "course-questions")
	if err != nil || !ok {
		t.Fatalf("after Setup: ok=%v err=%v", ok, err)
	}
}

func TestExists_EngineError(t *testing.T) {
	p := New(&mockStore{indexExistsFn: func(context.Context, string) (bool, error) {
		return false, errors.New("connection reset")
	}})

	if _, err := p.Exists(context.Background(), "faq"); err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected wrapped engine error, got %v", err)
	}
}
