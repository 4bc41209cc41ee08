package types

// SendInput is the provider-agnostic description of one outbound reminder
// message. TemplateID selects a provider-side dynamic template; Payload holds
// the substitution data. Body generation is the provider's concern.
type SendInput struct {
	ToAddress  string
	TemplateID string
	Payload    map[string]any
}
