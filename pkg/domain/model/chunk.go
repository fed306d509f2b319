package model

import "github.com/m-mizutani/bumprisk/pkg/domain/types"

// Chunk is one indexed slice of a log file. It is immutable once inserted.
type Chunk struct {
	Content    string
	Collection types.CollectionName
	Embedding  []float32
}

// ScoredChunk is a chunk returned by a similarity search
type ScoredChunk struct {
	Chunk
	Score float32
}
