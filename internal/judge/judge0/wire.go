package judge0

// Wire types of the batch submission API.

type submissionRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
}

type batchRequest struct {
	Submissions []submissionRequest `json:"submissions"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type statusPayload struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionDetails struct {
	Token         string        `json:"token"`
	Status        statusPayload `json:"status"`
	Stdout        *string       `json:"stdout"`
	Stderr        *string       `json:"stderr"`
	CompileOutput *string       `json:"compile_output"`
	Time          *string       `json:"time"`
	Memory        *int64        `json:"memory"`
}

type batchResponse struct {
	Submissions []submissionDetails `json:"submissions"`
}
