package log

import (
	"sort"

	"cuotas/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldSubcomponent   = "subcomponent"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldError          = "error"
	FieldOperation      = "operation"
	FieldUserID         = "user_id"
	FieldRole           = "role"
	FieldMemberID       = "member_id"
	FieldPeriodKey      = "period"
	FieldContributionID = "contribution_id"
	FieldExpenseID      = "expense_id"
	FieldAmountCents    = "amount_cents"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentService   = "service"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentAuth      = "auth"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpPay      = "pay"
	OpExport   = "export"
	OpSignIn   = "sign_in"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSession records who acted; anonymous sessions add nothing.
func (f LogFields) WithSession(s core.Session) LogFields {
	if s.UserID != "" {
		f[FieldUserID] = s.UserID
		f[FieldRole] = string(s.Role)
	}
	return f
}

func (f LogFields) WithMember(id string) LogFields {
	if id != "" {
		f[FieldMemberID] = id
	}
	return f
}

func (f LogFields) WithAmount(m core.Money) LogFields {
	f[FieldAmountCents] = m.Cents
	return f
}

// ToSlice converts LogFields to key/value pairs for slog, sorted by key.
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
