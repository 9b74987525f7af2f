package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"adaptive-assessment-service/internal/app"
	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/engine"
	"github.com/gorilla/websocket"
)

// WSHandler drives one adaptive session per websocket connection: questions
// are pushed to the client, answers come back as messages, and timeouts or
// standings changes arrive asynchronously.
type WSHandler struct {
	service  *app.AssessmentService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AssessmentService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

// questionPayload never carries the correct answer.
type questionPayload struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Remaining  int      `json:"remaining"`
}

type answerResult struct {
	QuestionID    string  `json:"questionId"`
	Correct       bool    `json:"correct"`
	TookMillis    int64   `json:"tookMillis"`
	SkillEstimate float64 `json:"skillEstimate"`
	Status        string  `json:"status"`
}

type attemptSummary struct {
	AttemptID     string   `json:"attemptId"`
	Status        string   `json:"status"`
	RawScore      int      `json:"rawScore"`
	WeightedScore float64  `json:"weightedScore"`
	Flagged       []string `json:"flagged"`
	HardestMissed string   `json:"hardestMissed,omitempty"`
	Rank          int      `json:"rank,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the session until it terminates or
// the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	learnerID := r.URL.Query().Get("learnerId")
	if quizID == "" || learnerID == "" {
		http.Error(w, "missing quizId or learnerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sess, err := h.service.StartSession(r.Context(), quizID, learnerID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancelEvents := sess.Subscribe()
	defer cancelEvents()
	standings, cancelStandings := h.service.Leaderboard().Subscribe()
	defer cancelStandings()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pushDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Async pushes: standings updates and the timeout resolution, which has
	// no foreground request to reply to.
	go func() {
		defer close(pushDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if ev.Kind != engine.EventTimedOut {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: "timedOut", Payload: h.summarize(context.Background(), sess.ID(), ev.Status)}:
				case <-closeSignals:
					return
				}
			case snapshot, ok := <-standings:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "standings", Payload: snapshot}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if q, ok := sess.CurrentQuestion(); ok {
		send <- outboundMessage[any]{Type: "question", Payload: h.questionFor(sess, q)}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			res, status, err := h.service.SubmitAnswer(r.Context(), sess.ID(), payload.Answer)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID:    res.Question.ID,
				Correct:       res.Correct,
				TookMillis:    res.Took.Milliseconds(),
				SkillEstimate: sess.SkillEstimate(),
				Status:        status.String(),
			}}
			if status.Terminal() {
				send <- outboundMessage[any]{Type: "completed", Payload: h.summarize(r.Context(), sess.ID(), status)}
			} else if q, ok := sess.CurrentQuestion(); ok {
				send <- outboundMessage[any]{Type: "question", Payload: h.questionFor(sess, q)}
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-pushDone
	close(send)
	<-writerDone
}

func (h *WSHandler) questionFor(sess *engine.Session, q domain.Question) questionPayload {
	return questionPayload{
		ID:         q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Category:   q.Category,
		Difficulty: q.Difficulty.String(),
		Remaining:  sess.QuestionsRemaining(),
	}
}

func (h *WSHandler) summarize(ctx context.Context, sessionID string, status engine.Status) any {
	rec, err := h.service.SaveAttempt(ctx, sessionID)
	if err != nil {
		return errorPayload{Message: err.Error()}
	}
	summary := attemptSummary{
		AttemptID:     rec.ID(),
		Status:        status.String(),
		RawScore:      rec.RawScore(),
		WeightedScore: rec.WeightedScore(),
		Flagged:       rec.Flagged(),
	}
	if hardest, ok := rec.HardestMissed(); ok {
		summary.HardestMissed = hardest.ID
	}
	if rank, err := h.service.Leaderboard().Rank(rec.LearnerID()); err == nil {
		summary.Rank = rank
	}
	return summary
}
