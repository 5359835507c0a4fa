package domain

import "sort"

// VectorField is the document attribute that carries the embedding.
const VectorField = "question_text_vector"

// Document is a single FAQ record as published by the course repository.
// QuestionTextVector is empty until the ingestion driver embeds the document.
type Document struct {
	ID                 string    `json:"id"`
	Course             string    `json:"course"`
	Section            string    `json:"section"`
	Question           string    `json:"question"`
	Text               string    `json:"text"`
	QuestionTextVector []float32 `json:"question_text_vector,omitempty"`
}

// EmbeddingInput returns the text the document is embedded from.
// Query-time embeddings use the same rule, so it must stay question + " " + text.
func (d *Document) EmbeddingInput() string {
	return d.Question + " " + d.Text
}

// HasVector reports whether the derived vector field has been set.
func (d *Document) HasVector() bool { return len(d.QuestionTextVector) > 0 }

// DuplicateIDs returns the ids that occur more than once, sorted.
func DuplicateIDs(docs []Document) []string {
	seen := make(map[string]int, len(docs))
	for i := range docs {
		seen[docs[i].ID]++
	}
	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}
