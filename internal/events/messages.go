// Package events publishes run lifecycle notifications on NATS so
// other tools can follow processing progress. Publishing is optional;
// a nil publisher drops everything silently.
package events

// Subjects for run lifecycle messages.
const (
	SubjectRunStarted   = "minuted.run.started"
	SubjectRunChunk     = "minuted.run.chunk"
	SubjectRunMerge     = "minuted.run.merge"
	SubjectRunCompleted = "minuted.run.completed"
)

// RunStarted announces that a recording entered the pipeline.
type RunStarted struct {
	RunID         string  `json:"run_id"`
	AudioPath     string  `json:"audio_path"`
	AudioDuration float64 `json:"audio_duration_s"`
	WindowCount   int     `json:"window_count"`
}

// ChunkTranscribed reports one transcribed window.
type ChunkTranscribed struct {
	RunID      string  `json:"run_id"`
	ChunkIndex int     `json:"chunk_index"`
	StartTime  float64 `json:"start_time_s"`
	EndTime    float64 `json:"end_time_s"`
	TextLength int     `json:"text_length"`
	Failed     bool    `json:"failed,omitempty"`
}

// ChunkMerged reports one merge step and its contribution.
type ChunkMerged struct {
	RunID             string `json:"run_id"`
	ChunkIndex        int    `json:"chunk_index"`
	UniqueLength      int    `json:"unique_length"`
	AccumulatedLength int    `json:"accumulated_length"`
}

// RunCompleted carries the final run statistics.
type RunCompleted struct {
	RunID            string  `json:"run_id"`
	ChunkCount       int     `json:"chunk_count"`
	WordCount        int     `json:"word_count"`
	TranscriptLength int     `json:"transcript_length"`
	ElapsedSeconds   float64 `json:"elapsed_s"`
}
