package logging

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are added to every record logged with a context carrying them.
type LogFields struct {
	PassID    string // correlation id of the running pass
	Callsign  string
	Component string // e.g. "flightwatch.pipeline"
}

// WithLogFields enriches ctx with fields. Non-empty values override ones
// already present.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields stored in ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, newer LogFields) LogFields {
	result := existing
	if newer.PassID != "" {
		result.PassID = newer.PassID
	}
	if newer.Callsign != "" {
		result.Callsign = newer.Callsign
	}
	if newer.Component != "" {
		result.Component = newer.Component
	}
	return result
}
