package types

import "fmt"

// EmailTemplate is a subject and body pair.
type EmailTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// LinkedInTemplate is a short connection message.
type LinkedInTemplate struct {
	Message string `json:"message"`
}

// PhoneScript is a call outline.
type PhoneScript struct {
	Opening          string   `json:"opening"`
	Introduction     string   `json:"introduction"`
	ValueProposition string   `json:"value_proposition"`
	Questions        []string `json:"questions"`
	NextSteps        string   `json:"next_steps"`
}

// OutreachTemplates holds one template per contact channel.
type OutreachTemplates struct {
	Email    EmailTemplate    `json:"email"`
	LinkedIn LinkedInTemplate `json:"linkedin"`
	Phone    PhoneScript      `json:"phone"`
}

// FallbackOutreach builds generic templates addressed to the candidate.
func FallbackOutreach(name, jobTitle string) OutreachTemplates {
	return OutreachTemplates{
		Email: EmailTemplate{
			Subject: fmt.Sprintf("Opportunity for %s - %s", name, jobTitle),
			Body: fmt.Sprintf("Hi %s,\n\nI came across your profile and think your background could be a great fit for a %s role we are hiring for. "+
				"Would you be open to a short call to discuss the opportunity?\n\nBest regards", name, jobTitle),
		},
		LinkedIn: LinkedInTemplate{
			Message: fmt.Sprintf("Hi %s, I noticed your background and thought you might be interested in a %s opportunity. Would you be open to a brief conversation?", name, jobTitle),
		},
		Phone: PhoneScript{
			Opening:          fmt.Sprintf("Hi %s, this is [Your Name] from [Company].", name),
			Introduction:     fmt.Sprintf("I'm reaching out about a %s position that matches your experience.", jobTitle),
			ValueProposition: "The team is growing and your background lines up well with what they need.",
			Questions: []string{
				"Are you currently open to new opportunities?",
				"What are you looking for in your next role?",
			},
			NextSteps: "If this sounds interesting, I'd like to set up a longer conversation with the hiring manager.",
		},
	}
}

// FillFrom replaces every empty field of t with the value from fallback.
func (t OutreachTemplates) FillFrom(fallback OutreachTemplates) OutreachTemplates {
	t.Email.Subject = firstNonEmpty(t.Email.Subject, fallback.Email.Subject)
	t.Email.Body = firstNonEmpty(t.Email.Body, fallback.Email.Body)
	t.LinkedIn.Message = firstNonEmpty(t.LinkedIn.Message, fallback.LinkedIn.Message)
	t.Phone.Opening = firstNonEmpty(t.Phone.Opening, fallback.Phone.Opening)
	t.Phone.Introduction = firstNonEmpty(t.Phone.Introduction, fallback.Phone.Introduction)
	t.Phone.ValueProposition = firstNonEmpty(t.Phone.ValueProposition, fallback.Phone.ValueProposition)
	t.Phone.NextSteps = firstNonEmpty(t.Phone.NextSteps, fallback.Phone.NextSteps)

	questions := make([]string, 0, len(t.Phone.Questions))
	for _, q := range t.Phone.Questions {
		if q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		questions = append(questions, fallback.Phone.Questions...)
	}
	t.Phone.Questions = questions
	return t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
