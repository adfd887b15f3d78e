// Package markup models provider call-control responses as a typed verb tree
// and renders them in the dialect of the tenant's telephony provider.
package markup

import "encoding/xml"

// Verb is one call-control instruction inside a Response.
type Verb interface {
	isVerb()
}

// Response is the root element returned to the provider.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []Verb
}

// New builds a response from the given verbs.
func New(verbs ...Verb) *Response {
	return &Response{Verbs: verbs}
}

// Add appends verbs and returns the response for chaining.
func (r *Response) Add(verbs ...Verb) *Response {
	r.Verbs = append(r.Verbs, verbs...)
	return r
}

// Say speaks synthesized text to the caller.
type Say struct {
	XMLName  xml.Name `xml:"Say"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

// Play plays an audio file. A zero Loop means play forever, so the attribute
// is a pointer to distinguish unset from zero.
type Play struct {
	XMLName xml.Name `xml:"Play"`
	Loop    *int     `xml:"loop,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

// Gather collects digits or speech and posts them to the action URL.
type Gather struct {
	XMLName     xml.Name `xml:"Gather"`
	Input       string   `xml:"input,attr,omitempty"` // "dtmf", "speech"
	NumDigits   int      `xml:"numDigits,attr,omitempty"`
	Timeout     int      `xml:"timeout,attr,omitempty"`
	FinishOnKey string   `xml:"finishOnKey,attr,omitempty"`
	Action      string   `xml:"action,attr,omitempty"`
	Method      string   `xml:"method,attr,omitempty"`
	Hints       string   `xml:"hints,attr,omitempty"`       // Twilio only
	SpeechModel string   `xml:"speechModel,attr,omitempty"` // Twilio only
	Verbs       []Verb
}

// Dial bridges the caller to one or more destinations.
type Dial struct {
	XMLName  xml.Name `xml:"Dial"`
	Timeout  int      `xml:"timeout,attr,omitempty"`
	Record   string   `xml:"record,attr,omitempty"`
	CallerID string   `xml:"callerId,attr,omitempty"`
	URL      string   `xml:"url,attr,omitempty"` // whisper announcement
	Verbs    []Verb
}

// Number is a dial target phone number.
type Number struct {
	XMLName xml.Name `xml:"Number"`
	Value   string   `xml:",chardata"`
}

// Conference is a named dial-in room.
type Conference struct {
	XMLName xml.Name `xml:"Conference"`
	Muted   bool     `xml:"muted,attr,omitempty"`
	Record  string   `xml:"record,attr,omitempty"`
	Beep    string   `xml:"beep,attr,omitempty"` // omit for provider default (on)
	Name    string   `xml:",chardata"`
}

// Enqueue places the caller into a named queue. The action URL fires when
// the caller leaves the queue.
type Enqueue struct {
	XMLName       xml.Name `xml:"Enqueue"`
	WaitURL       string   `xml:"waitUrl,attr,omitempty"`
	WaitURLMethod string   `xml:"waitUrlMethod,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Queue         string   `xml:",chardata"`
}

// Record records the caller.
type Record struct {
	XMLName            xml.Name `xml:"Record"`
	MaxLength          int      `xml:"maxLength,attr,omitempty"`
	Action             string   `xml:"action,attr,omitempty"`
	Transcribe         bool     `xml:"transcribe,attr,omitempty"`
	TranscribeCallback string   `xml:"transcribeCallback,attr,omitempty"`
	PlayBeep           *bool    `xml:"playBeep,attr,omitempty"`
}

// Redirect transfers control to another markup URL.
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

func (Say) isVerb()        {}
func (Play) isVerb()       {}
func (Gather) isVerb()     {}
func (Dial) isVerb()       {}
func (Number) isVerb()     {}
func (Conference) isVerb() {}
func (Enqueue) isVerb()    {}
func (Record) isVerb()     {}
func (Redirect) isVerb()   {}
func (Hangup) isVerb()     {}

// Loop returns a pointer for Play.Loop; Loop(0) requests infinite looping.
func Loop(n int) *int { return &n }

// Bool returns a pointer for optional boolean attributes.
func Bool(b bool) *bool { return &b }

// SpeakText is a convenience for a one-verb spoken response.
func SpeakText(text string) *Response {
	return New(Say{Text: text})
}

// SpeakAndHangup is the standard terminal failure shape: speak, then hang up.
func SpeakAndHangup(text string) *Response {
	return New(Say{Text: text}, Hangup{})
}
