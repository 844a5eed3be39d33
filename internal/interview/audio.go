package interview

import (
	"regexp"
	"strings"

	"github.com/noah-isme/interview-sim-api/pkg/shapes"
)

// AudioStrategy inspects a response message and returns an audio URL when it
// recognises one.
type AudioStrategy struct {
	Name    string
	resolve func(shapes.Message) (string, bool)
}

// Resolve applies the strategy alone.
func (s AudioStrategy) Resolve(message shapes.Message) (string, bool) {
	return s.resolve(message)
}

var (
	vendorAudioPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https?://(?:files\.)?shapes\.inc/[a-zA-Z0-9_-]+\.(mp3|wav|ogg)`),
		regexp.MustCompile(`https?://[a-zA-Z0-9_-]+\.blob\.core\.windows\.net/[a-zA-Z0-9_-]+/[a-zA-Z0-9_-]+\.(mp3|wav|ogg)`),
	}
	anyAudioPattern = regexp.MustCompile(`https?://[^\s]+\.(mp3|wav|ogg)`)
)

// AudioStrategies is ordered; resolution stops at the first success.
var AudioStrategies = []AudioStrategy{
	{Name: "content_part", resolve: audioFromParts},
	{Name: "vendor_url", resolve: audioFromVendorURL},
	{Name: "bare_url", resolve: audioFromBareContent},
	{Name: "message_field", resolve: audioFromMessageField},
	{Name: "embedded_url", resolve: audioFromEmbeddedURL},
}

// ResolveAudio finds a playable audio URL in the first choice of resp.
// An empty result means no audio is available; it is not an error.
func ResolveAudio(resp *shapes.Response) (string, string) {
	message, ok := resp.FirstMessage()
	if !ok {
		return "", ""
	}

	for _, strategy := range AudioStrategies {
		if url, found := strategy.Resolve(message); found {
			return url, strategy.Name
		}
	}
	return "", ""
}

func audioFromParts(message shapes.Message) (string, bool) {
	if !message.Content.IsParts {
		return "", false
	}
	for _, part := range message.Content.Parts {
		if part.Type == shapes.PartTypeAudioURL && part.AudioURL != "" {
			return part.AudioURL, true
		}
	}
	return "", false
}

func audioFromVendorURL(message shapes.Message) (string, bool) {
	if message.Content.IsParts {
		return "", false
	}
	for _, pattern := range vendorAudioPatterns {
		if match := pattern.FindString(message.Content.Text); match != "" {
			return match, true
		}
	}
	return "", false
}

// audioFromBareContent treats the whole content as the URL when it mentions
// the shapes domain and an audio extension without matching the strict form.
func audioFromBareContent(message shapes.Message) (string, bool) {
	if message.Content.IsParts {
		return "", false
	}
	text := message.Content.Text
	if !strings.Contains(text, "shapes.inc") {
		return "", false
	}
	if !strings.Contains(text, ".mp3") && !strings.Contains(text, ".wav") {
		return "", false
	}
	return strings.TrimSpace(text), true
}

func audioFromMessageField(message shapes.Message) (string, bool) {
	if message.AudioURL == "" {
		return "", false
	}
	return message.AudioURL, true
}

func audioFromEmbeddedURL(message shapes.Message) (string, bool) {
	if message.Content.IsParts {
		return "", false
	}
	if match := anyAudioPattern.FindString(message.Content.Text); match != "" {
		return match, true
	}
	return "", false
}
