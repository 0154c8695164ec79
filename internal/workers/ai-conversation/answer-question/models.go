// internal/workers/ai-conversation/answer-question/models.go
package answerquestion

type Input struct {
	Question   string `json:"question"`
	TimeWindow string `json:"timeWindow,omitempty"`
}

type Output struct {
	Answer     string `json:"answer"`
	Outcome    string `json:"outcome"`
	Metric     string `json:"metric"`
	TimeWindow string `json:"timeWindow"`
	CowID      string `json:"cowId,omitempty"`
	RowCount   int    `json:"rowCount"`
}
