package usecase

import (
	"strings"

	"podcast-agent/internal/domain"
	"podcast-agent/internal/language"
)

// ContextWindowTurns is the number of most recent turns a prompt carries.
const ContextWindowTurns = 5

// TurnRequest is the conversation state a persona answers to.
type TurnRequest struct {
	Context     []domain.TurnRecord
	Topic       string
	Tone        string
	Counterpart string
	Opening     bool
}

// promptSet holds the user-instruction templates of one language.
type promptSet struct {
	opening      string
	followUp     string
	guestAnswer  string
	closing      string
	conversation string
	defaultGuest string
}

var englishPrompts = promptSet{
	opening: strings.Join([]string{
		"You are {name} and you're starting a podcast.",
		"{conversation}The topic is: {topic}.",
		"The tone is: {tone}.",
		"Start the podcast and welcome your guest {guest}, then ask a relevant question.",
	}, " "),
	followUp: strings.Join([]string{
		"You are {name} and you're a podcast host.",
		"{conversation}The topic is: {topic}. The tone is: {tone}.",
		"Follow up on the previous answer or move the topic forward with a new question or comment.",
	}, " "),
	guestAnswer: strings.Join([]string{
		"You are {name} and you're a guest on a podcast.",
		"{conversation}The topic is: {topic}. The tone is: {tone}.",
		"Answer the host's previous question or comment.",
		"Respond according to your personality and expertise.",
	}, " "),
	closing: strings.Join([]string{
		"You are {name} and you're closing your podcast.",
		"{conversation}The topic was: {topic}. The tone is: {tone}.",
		"Thank your guest {guest} and say goodbye to the listeners.",
		"Give a brief summary of the main points of the podcast.",
	}, " "),
	conversation: "Conversation so far:\n\n{window}\n",
	defaultGuest: "guest",
}

var hindiPrompts = promptSet{
	opening: strings.Join([]string{
		"आप {name} हैं और एक पॉडकास्ट की शुरुआत कर रहे हैं।",
		"{conversation}विषय है: {topic}।",
		"टोन है: {tone}।",
		"पॉडकास्ट की शुरुआत करें और अपने अतिथि {guest} का स्वागत करें, फिर एक प्रासंगिक प्रश्न पूछें।",
	}, " "),
	followUp: strings.Join([]string{
		"आप {name} हैं और एक पॉडकास्ट होस्ट हैं।",
		"{conversation}विषय है: {topic}। टोन है: {tone}।",
		"पिछले जवाब पर फॉलो-अप करते हुए या विषय को आगे बढ़ाते हुए एक नया प्रश्न या टिप्पणी दें।",
	}, " "),
	guestAnswer: strings.Join([]string{
		"आप {name} हैं और एक पॉडकास्ट में अतिथि हैं।",
		"{conversation}विषय है: {topic}। टोन है: {tone}।",
		"होस्ट के पिछले प्रश्न या टिप्पणी का उत्तर दें।",
		"अपने व्यक्तित्व और विशेषज्ञता के अनुसार जवाब दें।",
	}, " "),
	closing: strings.Join([]string{
		"आप {name} हैं और अपने पॉडकास्ट को समाप्त कर रहे हैं।",
		"{conversation}विषय था: {topic}। टोन है: {tone}।",
		"अतिथि {guest} को धन्यवाद दें और श्रोताओं से विदा लें।",
		"पॉडकास्ट के मुख्य बिंदुओं का संक्षिप्त सारांश दें।",
	}, " "),
	conversation: "अब तक की बातचीत:\n\n{window}\n",
	defaultGuest: "अतिथि",
}

func promptsFor(p domain.Persona) promptSet {
	if language.IsPrimary(p.Language) {
		return hindiPrompts
	}
	return englishPrompts
}

// SystemInstruction describes who the persona is, which language it answers
// in and how its role behaves. It depends only on the persona and registry.
func SystemInstruction(p domain.Persona, registry *language.Registry) string {
	identity := strings.Join([]string{
		"You are " + p.Name + ".",
		"Your personality is: " + p.Personality + ".",
		languageDirective(p.Language, registry),
		"Maintain your unique character traits and speaking style throughout the conversation.",
		"Draw upon the knowledge and experiences that align with your identity.",
		"Your responses should naturally reflect your character without explicitly stating your traits.",
		"Respond as if you genuinely embody this identity.",
	}, " ")
	return identity + "\n\n" + roleDirective(p.Role)
}

func languageDirective(languageName string, registry *language.Registry) string {
	if s, ok := registry.Lookup(languageName); ok {
		return "Always respond in " + languageName + " using " + s.Name + " script."
	}
	return "Always respond in " + languageName + "."
}

func roleDirective(role domain.Role) string {
	if role == domain.RoleHost {
		return strings.Join([]string{
			"As a podcast host, you should ask engaging questions, follow up on interesting points, and guide the conversation naturally.",
			"Be respectful but not afraid to dig deeper into topics.",
			"Keep your questions concise and clear.",
		}, " ")
	}
	return strings.Join([]string{
		"As a podcast guest, you should provide thoughtful and insightful responses.",
		"Share personal anecdotes, opinions, and expertise when appropriate.",
		"Your responses should reflect your character's knowledge, values, and speaking style.",
		"Stay in character.",
	}, " ")
}

// UserInstruction renders the request for the persona's next turn.
func UserInstruction(p domain.Persona, req TurnRequest) string {
	set := promptsFor(p)
	tpl := set.guestAnswer
	if p.Role == domain.RoleHost {
		tpl = set.followUp
		if req.Opening {
			tpl = set.opening
		}
	}
	return render(tpl, set, p.Name, req.Counterpart, req.Topic, req.Tone, req.Context)
}

// ClosingInstruction asks the host to thank the guest, summarize and sign
// off. It is separate from the follow-up template.
func ClosingInstruction(host domain.Persona, req TurnRequest) string {
	set := promptsFor(host)
	return render(set.closing, set, host.Name, req.Counterpart, req.Topic, req.Tone, req.Context)
}

// FormatContextWindow renders the last ContextWindowTurns turns as
// "speaker: text" paragraphs in dialogue order.
func FormatContextWindow(turns []domain.TurnRecord) string {
	if len(turns) > ContextWindowTurns {
		turns = turns[len(turns)-ContextWindowTurns:]
	}
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(turn.Speaker)
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

func render(tpl string, set promptSet, name, guest, topic, tone string, context []domain.TurnRecord) string {
	if strings.TrimSpace(guest) == "" {
		guest = set.defaultGuest
	}
	conversation := ""
	if window := FormatContextWindow(context); window != "" {
		conversation = strings.ReplaceAll(set.conversation, "{window}", window)
	}
	return strings.NewReplacer(
		"{conversation}", conversation,
		"{name}", name,
		"{guest}", guest,
		"{topic}", topic,
		"{tone}", tone,
	).Replace(tpl)
}
