package model

import (
	"sort"
	"strings"
)

// Language maps a user-facing language key to the judge's execution environment.
type Language struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	JudgeID int    `json:"judge_id"`
}

var supportedLanguages = map[string]Language{
	"python": {Key: "python", Name: "Python (3.8.1)", JudgeID: 71},
	"java":   {Key: "java", Name: "Java (OpenJDK 13.0.1)", JudgeID: 62},
	"c":      {Key: "c", Name: "C (GCC 9.2.0)", JudgeID: 50},
}

// ResolveLanguage looks a key up case-insensitively.
func ResolveLanguage(key string) (Language, bool) {
	lang, ok := supportedLanguages[strings.ToLower(strings.TrimSpace(key))]
	return lang, ok
}

// SupportedLanguageKeys returns the registry keys in sorted order.
func SupportedLanguageKeys() []string {
	keys := make([]string, 0, len(supportedLanguages))
	for k := range supportedLanguages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
