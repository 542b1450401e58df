package model

// Judge status ids. Anything above JudgeStatusProcessing is terminal.
const (
	JudgeStatusInQueue    = 1
	JudgeStatusProcessing = 2
	JudgeStatusAccepted   = 3
)

type JudgeStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Terminal is the only completion predicate: the judge will not change the result again.
func (s JudgeStatus) Terminal() bool {
	return s.ID > JudgeStatusProcessing
}

type ExecutionRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Stdin    string `json:"stdin"`
}

// ExecutionResult is the normalized judge outcome returned to the browser.
type ExecutionResult struct {
	Stdout        string      `json:"stdout"`
	Stderr        string      `json:"stderr"`
	CompileOutput string      `json:"compile_output"`
	Message       string      `json:"message"`
	Status        JudgeStatus `json:"status"`
	Time          *string     `json:"time"`   // seconds, two decimals
	Memory        *int64      `json:"memory"` // kilobytes
}

// PreferredOutput picks the output stored with a submission:
// stdout, else stderr, else compile output, else message, else "".
func PreferredOutput(r *ExecutionResult) string {
	if r == nil {
		return ""
	}
	for _, s := range []string{r.Stdout, r.Stderr, r.CompileOutput, r.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}
