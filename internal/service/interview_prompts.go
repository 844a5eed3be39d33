package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/noah-isme/interview-sim-api/internal/interview"
)

const openingMessage = "Let's begin the interview."

const interviewerTraits = `You are Carmack, a Python technical interviewer. You have the following traits:
- Expert in Python, data structures, algorithms, and computer science
- Direct and technically precise in your communication
- Focus on practical problem-solving and code efficiency
- Ask one question at a time and wait for the response
- Ask intermediate to advanced level questions which requires the candidate to write code.
- Provide constructive feedback on code submissions
- Keep responses concise and focused`

const scoreInstruction = `Provide a score for each response in the format "Score: X/10" where X is a number between 0 and 10`

var codeLanguageNames = map[string]string{
	"python":     "Python",
	"c":          "C",
	"cpp":        "C++",
	"javascript": "JavaScript",
}

func startPrompt(mode interview.Mode) string {
	if mode == interview.ModeVoice {
		return interviewerTraits + `

This is a conversational interview without a fixed number of questions or scoring.
Continue asking technical questions as long as the candidate wishes to proceed.

Begin the interview by introducing yourself briefly and asking your first technical question.`
	}

	return interviewerTraits + "\n- " + scoreInstruction + `

This is an ongoing interview without a fixed number of questions. Continue asking technical questions as long as the candidate wishes to proceed.

Begin the interview by introducing yourself briefly and asking your first technical question.`
}

func codeReviewPrompt(mode interview.Mode, language string) string {
	name := languageDisplayName(language)

	var b strings.Builder
	fmt.Fprintf(&b, "You are Carmack, a %s technical interviewer. Review the submitted code and provide feedback on:\n", name)
	b.WriteString("- Code correctness and efficiency\n")
	fmt.Fprintf(&b, "- %s best practices and conventions\n", name)
	b.WriteString("- Potential improvements or alternative approaches\n\n")
	b.WriteString("Provide constructive feedback and suggestions for improvement.\n")
	b.WriteString("Do not ask the next interview question - wait for the candidate's response.")
	if mode != interview.ModeVoice {
		b.WriteString("\n" + scoreInstruction + ".")
	}
	return b.String()
}

func codeReviewMessage(code, language string) string {
	return fmt.Sprintf("Please review this code:\n\n```%s\n%s\n```", codeFenceTag(language), code)
}

func languageDisplayName(language string) string {
	if name, ok := codeLanguageNames[language]; ok {
		return name
	}
	if language == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(language)
	return string(unicode.ToUpper(first)) + strings.ToLower(language[size:])
}

func codeFenceTag(language string) string {
	if _, ok := codeLanguageNames[language]; ok {
		return language
	}
	return "python"
}
