package pipeline

import (
	"bytes"
	"fmt"
	"text/template"

	"cam_backend/internal/leads/domain"
)

// MessageRenderer resolves a step's template name into a personalized body.
type MessageRenderer interface {
	Render(templateName string, lead domain.Lead) (string, error)
}

// TemplateRenderer renders from a named library of text/template strings.
// Leads are the template context, so bodies may reference {{.FirstName}},
// {{.Company}}, {{.Industry}} and the other lead fields.
type TemplateRenderer struct {
	templates map[string]*template.Template
}

// NewTemplateRenderer parses the given library. Keys are step template names.
func NewTemplateRenderer(library map[string]string) (*TemplateRenderer, error) {
	templates := make(map[string]*template.Template, len(library))
	for name, body := range library {
		parsed, err := template.New(name).Parse(body)
		if err != nil {
			return nil, fmt.Errorf("parse template %q: %w", name, err)
		}
		templates[name] = parsed
	}
	return &TemplateRenderer{templates: templates}, nil
}

func (r *TemplateRenderer) Render(templateName string, lead domain.Lead) (string, error) {
	parsed, ok := r.templates[templateName]
	if !ok {
		return "", fmt.Errorf("unknown message template %q", templateName)
	}
	var buf bytes.Buffer
	if err := parsed.Execute(&buf, lead); err != nil {
		return "", fmt.Errorf("render template %q: %w", templateName, err)
	}
	return buf.String(), nil
}

// DefaultTemplateLibrary covers every template name the embedded sequences
// reference. Deployments override bodies without touching the cadence file.
func DefaultTemplateLibrary() map[string]string {
	return map[string]string{
		"hot_intro":           "Hi {{.FirstName}},\n\nNoticed {{.Company}} is growing fast. We help {{.Industry}} teams like yours cut acquisition costs. Worth a quick chat this week?",
		"hot_followup":        "Hi {{.FirstName}},\n\nFloating this back up. Happy to share how similar {{.Industry}} companies approached it.",
		"hot_breakup":         "Hi {{.FirstName}},\n\nClosing the loop here. If the timing is wrong, just say so and I'll check back next quarter.",
		"warm_intro":          "Hi {{.FirstName}},\n\nHad an idea for {{.Company}} after looking at what peers in {{.Industry}} are doing. Open to hearing it?",
		"warm_followup":       "Hi {{.FirstName}},\n\nFollowing up on my last note. The idea takes five minutes to explain.",
		"warm_social_touch":   "Enjoyed your recent post. The point about {{.Industry}} challenges matches what we hear from customers.",
		"warm_breakup":        "Hi {{.FirstName}},\n\nLast note from me. If this ever becomes relevant for {{.Company}}, my door is open.",
		"cool_value_1":        "Hi {{.FirstName}},\n\nSharing a resource on how {{.Industry}} teams handle acquisition. No ask, just useful.",
		"cool_value_2":        "Hi {{.FirstName}},\n\nA pattern we keep seeing with {{.Industry}} companies of your size, in case it helps.",
		"cool_social_touch":   "Your take on the state of {{.Industry}} resonated. Following along.",
		"cool_case_study":     "Hi {{.FirstName}},\n\nA case study from a company a lot like {{.Company}}. Thought of you reading it.",
		"cool_checkin":        "Hi {{.FirstName}},\n\nChecking in. Anything changed on your side since my last note?",
		"cool_breakup":        "Hi {{.FirstName}},\n\nI'll stop here unless I hear otherwise. Thanks for the inbox space.",
		"cold_value_1":        "Hi {{.FirstName}},\n\nSomething useful for teams in {{.Industry}}, no strings attached.",
		"cold_value_2":        "Hi {{.FirstName}},\n\nA benchmark of how {{.Industry}} companies stack up. {{.Company}} might find it interesting.",
		"cold_social_touch":   "Good thread on {{.Industry}}. Adding you to the short list of people worth reading.",
		"cold_value_3":        "Hi {{.FirstName}},\n\nThree trends we're tracking in {{.Industry}} right now.",
		"cold_soft_ask":       "Hi {{.FirstName}},\n\nIf any of what I've sent landed, would a fifteen minute chat be worth it?",
		"cold_social_touch_2": "Still enjoying your posts. The {{.Industry}} angle is underrated.",
		"cold_value_4":        "Hi {{.FirstName}},\n\nLast useful thing from me, promise. Hope it helps {{.Company}}.",
		"cold_breakup":        "Hi {{.FirstName}},\n\nClosing your file for now. Reach out anytime.",
	}
}

// RenderSubject renders an inline subject template against the lead.
func RenderSubject(subject string, lead domain.Lead) (string, error) {
	if subject == "" {
		return "", nil
	}
	parsed, err := template.New("subject").Parse(subject)
	if err != nil {
		return "", fmt.Errorf("parse subject: %w", err)
	}
	var buf bytes.Buffer
	if err := parsed.Execute(&buf, lead); err != nil {
		return "", fmt.Errorf("render subject: %w", err)
	}
	return buf.String(), nil
}
