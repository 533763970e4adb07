package trace

// Payload fields that must not leave the process unmasked. Terminal messages
// carry the citizen's national ID and names next to the measurement.
var sensitiveFields = map[string]bool{
	"citiz":   true,
	"nameTH":  true,
	"nameEN":  true,
	"brith":   true,
	"id_card": true,
}

// Redact masks sensitive fields in a payload snapshot, recursing into nested
// documents. The input is not modified.
func Redact(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return nil
	}

	redacted := make(map[string]interface{}, len(payload))
	for key, value := range payload {
		if sensitiveFields[key] {
			redacted[key] = mask(value)
			continue
		}
		if nested, ok := value.(map[string]interface{}); ok {
			redacted[key] = Redact(nested)
			continue
		}
		redacted[key] = value
	}
	return redacted
}

// mask keeps the last three digits of numeric identifiers so operators can
// still correlate events; everything else is fully masked.
func mask(v interface{}) string {
	s, ok := v.(string)
	if !ok || len(s) <= 3 || !digitsOnly(s) {
		return "***"
	}
	masked := make([]byte, len(s)-3)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + s[len(s)-3:]
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
