// Package conversation drives the patient chat: symptom intake, scripted
// follow-up questions, doctor recommendations and booking from them.
package conversation

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/medbot/medbot/internal/dataset"
	"github.com/medbot/medbot/internal/domain/triage"
	"github.com/medbot/medbot/internal/platform/metrics"
)

const (
	msgUnknown       = "Sorry, I don't understand. Please describe your symptom clearly."
	msgNotASymptom   = "I couldn't identify the symptom. Try again with clearer description."
	msgNoFollowUps   = "Based on %s, here are recommendations."
	msgAfterFollowUp = "Thanks for details on %s. Here's recommendations based on your symptoms and doctor ratings."
	msgNoDoctors     = "No doctors available for this symptom."
)

// Definitions supplies the per-label responses and follow-up questions.
// *dataset.Dataset satisfies it.
type Definitions interface {
	IsSymptom(tag string) bool
	Intent(tag string) (dataset.Intent, bool)
}

// Machine applies chat commands to a State. It holds no per-conversation
// data and is safe for concurrent use.
type Machine struct {
	classifier triage.Classifier
	defs       Definitions
	pick       func(n int) int
}

func NewMachine(classifier triage.Classifier, defs Definitions) *Machine {
	return &Machine{classifier: classifier, defs: defs, pick: rand.Intn}
}

// Outcome describes how a symptom text was classified.
type Outcome struct {
	Label     triage.Label
	IsSymptom bool
}

// SubmitSymptomText classifies text and starts intake for a recognized
// symptom. Unrecognized text is not an error: the state gets a fallback
// message and waits for another description.
func (m *Machine) SubmitSymptomText(st *State, text string) (Outcome, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Outcome{}, ErrInvalidInput
	}
	if st.AwaitingFollowUp {
		return Outcome{}, ErrFollowUpPending
	}

	label := m.classifier.Classify(triage.Normalize(trimmed))
	st.say(SpeakerUser, trimmed)

	if label == triage.Unknown {
		metrics.Classifications.WithLabelValues(metrics.OutcomeUnknown).Inc()
		st.say(SpeakerBot, msgUnknown)
		st.Phase = PhaseAwaitingInput
		return Outcome{Label: label}, nil
	}

	intent, _ := m.defs.Intent(string(label))
	if resp := m.response(intent); resp != "" {
		st.say(SpeakerBot, resp)
	}

	if !m.defs.IsSymptom(string(label)) {
		metrics.Classifications.WithLabelValues(metrics.OutcomeNonSymptom).Inc()
		st.say(SpeakerBot, msgNotASymptom)
		st.Phase = PhaseAwaitingInput
		return Outcome{Label: label}, nil
	}

	metrics.Classifications.WithLabelValues(metrics.OutcomeSymptom).Inc()
	st.CurrentSymptom = label
	st.FollowUpQuestions = append([]string{}, intent.FollowUp...)
	st.FollowUpIndex = 0
	st.FollowUpAnswers = map[string]string{}

	if len(st.FollowUpQuestions) == 0 {
		m.finalize(st, fmt.Sprintf(msgNoFollowUps, label))
		return Outcome{Label: label, IsSymptom: true}, nil
	}
	st.AwaitingFollowUp = true
	st.Phase = PhaseAskingFollowUp
	st.say(SpeakerBot, st.FollowUpQuestions[0])
	return Outcome{Label: label, IsSymptom: true}, nil
}

// SubmitFollowUpAnswer records answer for the pending question and asks the
// next one, or finalizes the intake after the last.
func (m *Machine) SubmitFollowUpAnswer(st *State, answer string) error {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return ErrInvalidInput
	}
	question, ok := st.PendingQuestion()
	if !ok {
		return ErrNoFollowUpPending
	}

	st.say(SpeakerUser, trimmed)
	st.FollowUpAnswers[question] = trimmed
	st.FollowUpIndex++

	if st.FollowUpIndex < len(st.FollowUpQuestions) {
		st.say(SpeakerBot, st.FollowUpQuestions[st.FollowUpIndex])
		return nil
	}
	m.finalize(st, fmt.Sprintf(msgAfterFollowUp, st.CurrentSymptom))
	return nil
}

// Clear resets st to the initial state.
func (m *Machine) Clear(st *State) {
	*st = NewState()
}

func (m *Machine) finalize(st *State, summary string) {
	st.AwaitingFollowUp = false
	st.say(SpeakerBot, summary)
	st.SymptomsCollected = append(st.SymptomsCollected, st.CurrentSymptom)
	st.CurrentSymptom = ""
	st.Phase = PhaseRecommending
}

func (m *Machine) response(intent dataset.Intent) string {
	if len(intent.Responses) == 0 {
		return ""
	}
	return intent.Responses[m.pick(len(intent.Responses))]
}
