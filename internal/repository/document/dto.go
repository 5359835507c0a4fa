package document

import "github.com/kailas-cloud/faqindex/internal/domain"

// jsonDoc is the stored shape of a knowledge base document.
// The id field is a plain attribute: engine keys are assigned on write.
type jsonDoc struct {
	Text               string    `json:"text"`
	Section            string    `json:"section"`
	Question           string    `json:"question"`
	Course             string    `json:"course"`
	ID                 string    `json:"id"`
	QuestionTextVector []float32 `json:"question_text_vector"`
}

func buildJSONDoc(doc *domain.Document) jsonDoc {
	return jsonDoc{
		Text:               doc.Text,
		Section:            doc.Section,
		Question:           doc.Question,
		Course:             doc.Course,
		ID:                 doc.ID,
		QuestionTextVector: doc.QuestionTextVector,
	}
}
