package errors

import (
	stdErrors "errors"
	"strings"
)

// Dump flattens an error chain for structured logging.
type Dump struct {
	Code       Code
	TopMessage string
	Chain      []string
}

// DumpError walks the unwrap chain and collects every message, so log lines
// keep the wrapped store/driver errors that the public envelope hides.
func DumpError(err error) Dump {
	dump := Dump{Code: CodeInternal}
	if err == nil {
		return dump
	}

	if typed := As(err); typed != nil {
		dump.Code = typed.Code()
	}
	dump.TopMessage = err.Error()

	for current := err; current != nil; current = stdErrors.Unwrap(current) {
		msg := strings.TrimSpace(current.Error())
		if msg == "" {
			continue
		}
		if n := len(dump.Chain); n > 0 && dump.Chain[n-1] == msg {
			continue
		}
		dump.Chain = append(dump.Chain, msg)
	}
	return dump
}
