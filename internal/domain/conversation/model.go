package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medbot/medbot/internal/domain/directory"
	"github.com/medbot/medbot/internal/domain/triage"
)

var (
	ErrInvalidInput      = errors.New("message must not be empty")
	ErrFollowUpPending   = errors.New("answer the pending follow-up question first")
	ErrNoFollowUpPending = errors.New("no follow-up question is pending")
	ErrSessionNotFound   = errors.New("chat session not found")
	ErrSessionForbidden  = errors.New("chat session belongs to another patient")
)

// Phase is the position of a conversation in the intake flow.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseAwaitingInput  Phase = "awaiting_input"
	PhaseAskingFollowUp Phase = "asking_follow_up"
	PhaseRecommending   Phase = "recommending"
)

type Speaker string

const (
	SpeakerUser Speaker = "user"
	SpeakerBot  Speaker = "bot"
)

type ChatTurn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// State is one patient's conversation. FollowUpIndex stays within
// [0, len(FollowUpQuestions)].
type State struct {
	Phase             Phase             `json:"phase"`
	CurrentSymptom    triage.Label      `json:"current_symptom,omitempty"`
	FollowUpQuestions []string          `json:"follow_up_questions"`
	FollowUpIndex     int               `json:"follow_up_index"`
	FollowUpAnswers   map[string]string `json:"follow_up_answers"`
	AwaitingFollowUp  bool              `json:"awaiting_follow_up"`
	SymptomsCollected []triage.Label    `json:"symptoms_collected"`
	ChatHistory       []ChatTurn        `json:"chat_history"`
}

func NewState() State {
	return State{
		Phase:             PhaseIdle,
		FollowUpQuestions: []string{},
		FollowUpAnswers:   map[string]string{},
		SymptomsCollected: []triage.Label{},
		ChatHistory:       []ChatTurn{},
	}
}

// PendingQuestion returns the follow-up question awaiting an answer.
func (s *State) PendingQuestion() (string, bool) {
	if !s.AwaitingFollowUp || s.FollowUpIndex >= len(s.FollowUpQuestions) {
		return "", false
	}
	return s.FollowUpQuestions[s.FollowUpIndex], true
}

// LatestSymptom returns the most recently completed symptom.
func (s *State) LatestSymptom() (triage.Label, bool) {
	if len(s.SymptomsCollected) == 0 {
		return "", false
	}
	return s.SymptomsCollected[len(s.SymptomsCollected)-1], true
}

func (s *State) Clone() State {
	out := *s
	out.FollowUpQuestions = append([]string{}, s.FollowUpQuestions...)
	out.SymptomsCollected = append([]triage.Label{}, s.SymptomsCollected...)
	out.ChatHistory = append([]ChatTurn{}, s.ChatHistory...)
	out.FollowUpAnswers = make(map[string]string, len(s.FollowUpAnswers))
	for q, a := range s.FollowUpAnswers {
		out.FollowUpAnswers[q] = a
	}
	return out
}

func (s *State) say(speaker Speaker, text string) {
	s.ChatHistory = append(s.ChatHistory, ChatTurn{Speaker: speaker, Text: text})
}

// Session is a conversation owned by one patient.
type Session struct {
	ID        uuid.UUID
	PatientID string
	CreatedAt time.Time
	UpdatedAt time.Time

	mu    sync.Mutex
	state State
}

// Recommendations is the doctor list offered for the latest symptom.
type Recommendations struct {
	Symptom triage.Label       `json:"symptom"`
	Doctors []directory.Doctor `json:"doctors"`
	Message string             `json:"message,omitempty"`
}

// View is a snapshot of a session returned to callers. Reply holds the turns
// produced by the call that returned it.
type View struct {
	SessionID       uuid.UUID        `json:"session_id"`
	PatientID       string           `json:"patient_id"`
	State           State            `json:"state"`
	Reply           []ChatTurn       `json:"reply,omitempty"`
	PendingQuestion string           `json:"pending_question,omitempty"`
	Recommendations *Recommendations `json:"recommendations,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}
