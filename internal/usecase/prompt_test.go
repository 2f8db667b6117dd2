package usecase

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"podcast-agent/internal/domain"
	"podcast-agent/internal/language"
)

func turnsN(n int) []domain.TurnRecord {
	out := make([]domain.TurnRecord, n)
	for i := range out {
		out[i] = domain.TurnRecord{Speaker: fmt.Sprintf("s%d", i+1), Text: fmt.Sprintf("t%d", i+1)}
	}
	return out
}

func TestFormatContextWindow(t *testing.T) {
	require.Empty(t, FormatContextWindow(nil))
	require.Equal(t, "s1: t1\n\ns2: t2\n\n", FormatContextWindow(turnsN(2)))
	require.Equal(t, "s3: t3\n\ns4: t4\n\ns5: t5\n\ns6: t6\n\ns7: t7\n\n", FormatContextWindow(turnsN(7)))
}

func TestSystemInstruction(t *testing.T) {
	reg := language.DefaultRegistry()
	host := domain.Persona{Name: "राहुल", Personality: "warm", Role: domain.RoleHost, Language: "Hindi"}
	guest := domain.Persona{Name: "Ravi", Personality: "calm", Role: domain.RoleGuest, Language: "English"}

	hostSys := SystemInstruction(host, reg)
	require.Equal(t, hostSys, SystemInstruction(host, reg), "pure function of the persona")
	require.True(t, strings.HasPrefix(hostSys, "You are राहुल. Your personality is: warm."))
	require.Contains(t, hostSys, "Always respond in Hindi using Devanagari script.")
	require.Contains(t, hostSys, "As a podcast host")

	guestSys := SystemInstruction(guest, reg)
	require.Contains(t, guestSys, "Always respond in English.")
	require.NotContains(t, guestSys, "script")
	require.Contains(t, guestSys, "As a podcast guest")
	require.Contains(t, guestSys, "Stay in character.")

	asHost := guest
	asHost.Role = domain.RoleHost
	require.NotEqual(t, guestSys, SystemInstruction(asHost, reg))
}

func TestUserInstruction_Variants(t *testing.T) {
	host := domain.Persona{Name: "Asha", Personality: "curious", Role: domain.RoleHost, Language: "English"}
	guest := domain.Persona{Name: "Ravi", Personality: "calm", Role: domain.RoleGuest, Language: "English"}

	opening := UserInstruction(host, TurnRequest{Topic: "Oceans", Tone: "light", Counterpart: "Ravi", Opening: true})
	require.Equal(t, "You are Asha and you're starting a podcast. The topic is: Oceans. The tone is: light. "+
		"Start the podcast and welcome your guest Ravi, then ask a relevant question.", opening)

	ctx := turnsN(2)
	follow := UserInstruction(host, TurnRequest{Context: ctx, Topic: "Oceans", Tone: "light"})
	require.Contains(t, follow, "Conversation so far:\n\ns1: t1\n\ns2: t2\n\n")
	require.Contains(t, follow, "Follow up on the previous answer")

	answer := UserInstruction(guest, TurnRequest{Context: ctx, Topic: "Oceans", Tone: "light", Opening: true})
	require.Contains(t, answer, "You are Ravi and you're a guest on a podcast.")
	require.NotContains(t, answer, "starting a podcast", "the opening flag only applies to hosts")

	require.NotEqual(t, follow, UserInstruction(guest, TurnRequest{Context: ctx, Topic: "Oceans", Tone: "light"}))
}

func TestUserInstruction_PlaceholdersInContextAreNotExpanded(t *testing.T) {
	host := domain.Persona{Name: "Asha", Personality: "curious", Role: domain.RoleHost, Language: "English"}
	ctx := []domain.TurnRecord{{Speaker: "Ravi", Text: "what is {topic}?"}}
	out := UserInstruction(host, TurnRequest{Context: ctx, Topic: "Oceans", Tone: "light"})
	require.Contains(t, out, "Ravi: what is {topic}?")
}

func TestClosingInstruction(t *testing.T) {
	host := domain.Persona{Name: "Asha", Personality: "curious", Role: domain.RoleHost, Language: "English"}
	out := ClosingInstruction(host, TurnRequest{Context: turnsN(1), Topic: "Oceans", Tone: "light", Counterpart: "Ravi"})
	require.Contains(t, out, "Thank your guest Ravi")
	require.Contains(t, out, "The topic was: Oceans.")
	require.Contains(t, out, "s1: t1")

	unnamed := ClosingInstruction(host, TurnRequest{Topic: "Oceans", Tone: "light"})
	require.Contains(t, unnamed, "Thank your guest guest")
}

func TestHindiPersonasGetHindiTemplates(t *testing.T) {
	host := domain.Persona{Name: "राहुल", Personality: "warm", Role: domain.RoleHost, Language: "hindi"}
	opening := UserInstruction(host, TurnRequest{Topic: "क्रिकेट", Tone: "हल्का", Counterpart: "मीरा", Opening: true})
	require.Contains(t, opening, "आप राहुल हैं")
	require.Contains(t, opening, "अतिथि मीरा का स्वागत करें")

	closing := ClosingInstruction(host, TurnRequest{Topic: "क्रिकेट", Tone: "हल्का"})
	require.Contains(t, closing, "अतिथि अतिथि को धन्यवाद दें")
}
