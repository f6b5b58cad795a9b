package bedrock

// titanRequest is the Titan text InvokeModel body.
type titanRequest struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig textGenerationConfig `json:"textGenerationConfig"`
}

type textGenerationConfig struct {
	MaxTokenCount int      `json:"maxTokenCount"`
	StopSequences []string `json:"stopSequences"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"topP"`
}

// titanResponse is the Titan text InvokeModel response.
type titanResponse struct {
	InputTextTokenCount int           `json:"inputTextTokenCount"`
	Results             []titanResult `json:"results"`
}

type titanResult struct {
	TokenCount       int     `json:"tokenCount"`
	OutputText       *string `json:"outputText"`
	CompletionReason string  `json:"completionReason"`
}
