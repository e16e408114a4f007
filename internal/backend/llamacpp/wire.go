package llamacpp

// completionRequest is the body of POST /completion.
type completionRequest struct {
	Prompt        string   `json:"prompt"`
	Grammar       string   `json:"grammar,omitempty"`
	CachePrompt   bool     `json:"cache_prompt"`
	NPredict      *int     `json:"n_predict,omitempty"`
	Stop          []string `json:"stop,omitempty"`
	Temperature   float64  `json:"temperature"`
	TopK          int      `json:"top_k"`
	TopP          float64  `json:"top_p"`
	MinP          float64  `json:"min_p"`
	RepeatPenalty float64  `json:"repeat_penalty"`
	RepeatLastN   int      `json:"repeat_last_n"`
	Seed          int64    `json:"seed"`
	Stream        bool     `json:"stream"`
}

type completionResponse struct {
	Content         string  `json:"content"`
	StopType        string  `json:"stop_type"`
	StoppingWord    string  `json:"stopping_word"`
	TokensCached    int     `json:"tokens_cached"`
	TokensEvaluated int     `json:"tokens_evaluated"`
	Truncated       bool    `json:"truncated"`
	Timings         timings `json:"timings"`
}

type timings struct {
	PromptN            int     `json:"prompt_n"`
	PromptMS           float64 `json:"prompt_ms"`
	PredictedN         int     `json:"predicted_n"`
	PredictedMS        float64 `json:"predicted_ms"`
	PredictedPerSecond float64 `json:"predicted_per_second"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

const (
	stopTypeEOS   = "eos"
	stopTypeLimit = "limit"
	stopTypeWord  = "word"
)
