package engine

import "strings"

// Params carries the provider's webhook parameters for one request. Its
// lifetime is exactly one request/response pair; nothing about the call is
// cached between webhooks.
type Params map[string]string

// Get returns the first non-empty value among the given keys.
func (p Params) Get(keys ...string) string {
	for _, k := range keys {
		if v := p[k]; v != "" {
			return v
		}
	}
	return ""
}

// From is the caller's number. Providers send it as From or Caller.
func (p Params) From() string { return p.Get("From", "Caller") }

// To is the called number. Providers send it as To or Called.
func (p Params) To() string { return p.Get("To", "Called") }

// CallSID identifies the provider-side call leg.
func (p Params) CallSID() string { return p.Get("CallSid") }

// Digits is the DTMF input collected by a gather.
func (p Params) Digits() string { return p.Get("Digits") }

// SpeechResult is the transcript collected by a speech gather.
func (p Params) SpeechResult() string { return p.Get("SpeechResult") }

// RecordingURL points at a completed recording.
func (p Params) RecordingURL() string { return p.Get("RecordingUrl") }

// Direction is "inbound" unless the provider says otherwise.
func (p Params) Direction() string {
	if d := p.Get("Direction"); d != "" {
		return d
	}
	return "inbound"
}

// DigitsOnly strips everything but digits from a number, for contact matching
// and area-code extraction.
func DigitsOnly(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// AreaCode extracts the US/Canada area code from a number, "" when the number
// is too short or not in 10/11-digit form.
func AreaCode(number string) string {
	digits := DigitsOnly(number)
	switch {
	case len(digits) == 11 && digits[0] == '1':
		return digits[1:4]
	case len(digits) == 10:
		return digits[:3]
	}
	return ""
}
