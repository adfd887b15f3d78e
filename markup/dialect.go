package markup

import (
	"encoding/xml"
	"fmt"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// Dialect renders a Response in one provider's markup language. Both dialects
// share the verb vocabulary; they differ in synthesis defaults and in which
// gather attributes the provider understands.
type Dialect interface {
	Name() string
	ContentType() string
	Render(r *Response) (string, error)
}

// ForProvider maps a tenant's configured provider to its dialect. SignalWire
// is the default provider, so unknown values get the cXML dialect.
func ForProvider(provider string) Dialect {
	if provider == "twilio" {
		return TwiML()
	}
	return CXML()
}

// TwiML returns the Twilio dialect.
func TwiML() Dialect {
	return dialect{
		name:            "twiml",
		defaultVoice:    "alice",
		defaultLanguage: "en-US",
		speechCapable:   true,
	}
}

// CXML returns the SignalWire dialect. SignalWire's markup is verb-compatible
// with TwiML but ignores Twilio's speech-model tuning attributes, so the
// renderer drops them.
func CXML() Dialect {
	return dialect{
		name:            "cxml",
		defaultVoice:    "alice",
		defaultLanguage: "en-US",
		speechCapable:   false,
	}
}

type dialect struct {
	name            string
	defaultVoice    string
	defaultLanguage string
	speechCapable   bool
}

func (d dialect) Name() string { return d.name }

func (d dialect) ContentType() string { return "text/xml" }

func (d dialect) Render(r *Response) (string, error) {
	normalized := Response{Verbs: d.normalize(r.Verbs)}

	body, err := xml.Marshal(&normalized)
	if err != nil {
		return "", fmt.Errorf("render %s response: %w", d.name, err)
	}

	return xmlHeader + string(body), nil
}

// normalize applies dialect defaults and strips unsupported attributes,
// recursing into nested verb lists. Verbs are values, so edits stay local.
func (d dialect) normalize(verbs []Verb) []Verb {
	out := make([]Verb, 0, len(verbs))
	for _, v := range verbs {
		switch t := v.(type) {
		case Say:
			if t.Voice == "" {
				t.Voice = d.defaultVoice
			}
			if t.Language == "" {
				t.Language = d.defaultLanguage
			}
			out = append(out, t)
		case Gather:
			if !d.speechCapable {
				t.Hints = ""
				t.SpeechModel = ""
			}
			t.Verbs = d.normalize(t.Verbs)
			out = append(out, t)
		case Dial:
			t.Verbs = d.normalize(t.Verbs)
			out = append(out, t)
		default:
			out = append(out, v)
		}
	}
	return out
}
