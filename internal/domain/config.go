package domain

// VectorConfig holds vectorization settings of the knowledge base index.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
}

// DefaultVectorConfig returns the defaults tuned for multi-qa-MiniLM-L6-cos-v1.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "multi-qa-MiniLM-L6-cos-v1",
		Dimensions:     384,
		DistanceMetric: "cosine",
	}
}
