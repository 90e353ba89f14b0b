package logging

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPII masks every email address embedded in s.
func RedactPII(s string) string {
	return emailRegex.ReplaceAllStringFunc(s, RedactEmail)
}

// redactHook masks addresses in the message, string fields and errors
// before the entry is formatted. Uploaded spreadsheets are full of them.
type redactHook struct{}

func (redactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (redactHook) Fire(e *logrus.Entry) error {
	e.Message = RedactPII(e.Message)
	for k, v := range e.Data {
		switch val := v.(type) {
		case string:
			e.Data[k] = RedactPII(val)
		case error:
			e.Data[k] = RedactPII(val.Error())
		}
	}
	return nil
}
