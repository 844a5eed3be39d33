package shapes

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Message roles understood by the Shapes chat completions endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part types that may appear inside multi-part message content.
const (
	PartTypeText     = "text"
	PartTypeAudioURL = "audio_url"
)

// Request is a single chat completion call.
type Request struct {
	Model    string
	Messages []Message
	// VoiceMode asks voice personas to answer with audio.
	VoiceMode bool
	// Headers are added to the outbound HTTP request for this call only.
	Headers map[string]string
}

type wireRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	VoiceMode bool      `json:"voice_mode,omitempty"`
}

// Message is one chat message. Content is either plain text or a list of parts.
type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
	// AudioURL is only populated on responses; some voice personas put the
	// generated audio here instead of inside the content.
	AudioURL string `json:"-"`
}

// TextMessage builds a message with plain string content.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: TextContent(text)}
}

// AudioMessage builds a user message whose single part references uploaded audio.
func AudioMessage(url string) Message {
	return Message{Role: RoleUser, Content: PartsContent(AudioPart(url))}
}

// UnmarshalJSON tolerates the different shapes personas use for audio_url.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role     string          `json:"role"`
		Content  Content         `json:"content"`
		AudioURL json.RawMessage `json:"audio_url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Role = raw.Role
	m.Content = raw.Content
	m.AudioURL = decodeURLValue(raw.AudioURL)
	return nil
}

// Content is a tagged union: Text when IsParts is false, Parts otherwise.
type Content struct {
	Text    string
	Parts   []Part
	IsParts bool
}

// TextContent wraps a plain string.
func TextContent(text string) Content {
	return Content{Text: text}
}

// PartsContent wraps an ordered list of typed parts.
func PartsContent(parts ...Part) Content {
	return Content{Parts: parts, IsParts: true}
}

// PlainText returns the textual view of the content. Text parts are joined
// with a single space.
func (c Content) PlainText() string {
	if !c.IsParts {
		return c.Text
	}

	texts := make([]string, 0, len(c.Parts))
	for _, part := range c.Parts {
		if part.Type == PartTypeText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, " ")
}

// MarshalJSON encodes the union back into the wire representation.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsParts {
		parts := c.Parts
		if parts == nil {
			parts = []Part{}
		}
		return json.Marshal(parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a string, a list of parts, or null. Anything else is
// treated as empty text rather than failing the whole payload.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = Content{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &c.Text)
	case '[':
		var parts []Part
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		c.Parts = parts
		c.IsParts = true
	}
	return nil
}

// Part is one element of multi-part content.
type Part struct {
	Type     string
	Text     string
	AudioURL string
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// AudioPart builds an audio_url part.
func AudioPart(url string) Part {
	return Part{Type: PartTypeAudioURL, AudioURL: url}
}

type audioURLField struct {
	URL string `json:"url"`
}

// MarshalJSON emits the OpenAI-style typed part.
func (p Part) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PartTypeAudioURL:
		return json.Marshal(struct {
			Type     string        `json:"type"`
			AudioURL audioURLField `json:"audio_url"`
		}{Type: p.Type, AudioURL: audioURLField{URL: p.AudioURL}})
	default:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{Type: p.Type, Text: p.Text})
	}
}

// UnmarshalJSON reads a typed part, keeping unknown part types with their type only.
func (p *Part) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string          `json:"type"`
		Text     string          `json:"text"`
		AudioURL json.RawMessage `json:"audio_url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Non-object parts carry nothing usable.
		*p = Part{}
		return nil
	}

	*p = Part{
		Type:     raw.Type,
		Text:     raw.Text,
		AudioURL: decodeURLValue(raw.AudioURL),
	}
	return nil
}

// decodeURLValue reads either "https://..." or {"url": "https://..."}.
func decodeURLValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct
	}

	var nested audioURLField
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested.URL
	}
	return ""
}

// Response is a chat completion payload. Payload keeps every field the
// upstream sent so callers can pass it through untouched.
type Response struct {
	Payload map[string]any
	Choices []Choice
}

// Choice is one completion choice.
type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

// FirstMessage returns choices[0].message, if any.
func (r *Response) FirstMessage() (Message, bool) {
	if r == nil || len(r.Choices) == 0 {
		return Message{}, false
	}
	return r.Choices[0].Message, true
}

// decodeResponse parses the body twice: once generically for pass-through and
// once into the typed view. A typed decode failure leaves Choices empty.
func decodeResponse(body []byte) (*Response, error) {
	payload := map[string]any{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	var typed struct {
		Choices []Choice `json:"choices"`
	}
	if err := json.Unmarshal(body, &typed); err != nil {
		typed.Choices = nil
	}

	return &Response{Payload: payload, Choices: typed.Choices}, nil
}
