package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/hafbjorn109/wiperino/internal/domain"
)

// Broadcast is one outbound frame in its two renderings. Overlay is nil
// when overlay members receive the participant rendering unchanged.
type Broadcast struct {
	Data    any
	Overlay any
}

// Encode renders the participant and overlay payloads.
func (b Broadcast) Encode() (data, overlay []byte, err error) {
	data, err = json.Marshal(b.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode broadcast: %w", err)
	}
	if b.Overlay == nil {
		return data, data, nil
	}
	overlay, err = json.Marshal(b.Overlay)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode overlay broadcast: %w", err)
	}
	return data, overlay, nil
}

// Counter frames.

type CountUpdateFrame struct {
	Type      Tag    `json:"type"`
	SegmentID int64  `json:"segment_id"`
	Count     int    `json:"count"`
	User      string `json:"user,omitempty"`
}

type CounterSegmentFrame struct {
	Type        Tag    `json:"type"`
	SegmentID   int64  `json:"segment_id"`
	SegmentName string `json:"segment_name"`
	Count       int    `json:"count"`
	IsFinished  bool   `json:"is_finished"`
	User        string `json:"user,omitempty"`
}

type SegmentFinishedFrame struct {
	Type      Tag    `json:"type"`
	SegmentID int64  `json:"segment_id"`
	User      string `json:"user,omitempty"`
}

type RunFinishedFrame struct {
	Type Tag    `json:"type"`
	User string `json:"user,omitempty"`
}

func CountUpdated(e CountUpdate, user string) Broadcast {
	f := CountUpdateFrame{Type: TagCountUpdate, SegmentID: e.SegmentID, Count: e.Count}
	overlay := f
	f.User = user
	return Broadcast{Data: f, Overlay: overlay}
}

func CounterSegmentStarted(e CounterNewSegment, user string) Broadcast {
	f := CounterSegmentFrame{
		Type:        TagNewSegment,
		SegmentID:   e.SegmentID,
		SegmentName: e.SegmentName,
		Count:       e.Count,
		IsFinished:  e.IsFinished,
	}
	overlay := f
	f.User = user
	return Broadcast{Data: f, Overlay: overlay}
}

func SegmentClosed(e SegmentFinished, user string) Broadcast {
	f := SegmentFinishedFrame{Type: TagSegmentFinished, SegmentID: e.SegmentID}
	overlay := f
	f.User = user
	return Broadcast{Data: f, Overlay: overlay}
}

func RunClosed(user string) Broadcast {
	return Broadcast{
		Data:    RunFinishedFrame{Type: TagRunFinished, User: user},
		Overlay: RunFinishedFrame{Type: TagRunFinished},
	}
}

// Timer frames. Start, pause, finish and run_finished share TimerFrame;
// run_finished leaves the segment fields out.

type TimerFrame struct {
	Type        Tag      `json:"type"`
	SegmentID   *int64   `json:"segment_id,omitempty"`
	ElapsedTime *float64 `json:"elapsed_time,omitempty"`
	StartedAt   string   `json:"started_at,omitempty"`
	User        string   `json:"user,omitempty"`
}

type TimerSegmentFrame struct {
	Type        Tag     `json:"type"`
	SegmentID   int64   `json:"segment_id"`
	SegmentName string  `json:"segment_name"`
	ElapsedTime float64 `json:"elapsed_time"`
	IsFinished  bool    `json:"is_finished"`
	User        string  `json:"user,omitempty"`
}

func TimerChanged(evt TimerEvent, user string) Broadcast {
	f := TimerFrame{Type: evt.Tag()}
	switch e := evt.(type) {
	case StartTimer:
		f.SegmentID, f.ElapsedTime, f.StartedAt = &e.SegmentID, &e.ElapsedTime, e.StartedAt
	case PauseTimer:
		f.SegmentID, f.ElapsedTime = &e.SegmentID, &e.ElapsedTime
	case FinishTimer:
		f.SegmentID, f.ElapsedTime = &e.SegmentID, &e.ElapsedTime
	case TimerNewSegment:
		return TimerSegmentStarted(e, user)
	case RunFinished:
	}
	overlay := f
	f.User = user
	return Broadcast{Data: f, Overlay: overlay}
}

func TimerSegmentStarted(e TimerNewSegment, user string) Broadcast {
	f := TimerSegmentFrame{
		Type:        TagNewSegment,
		SegmentID:   e.SegmentID,
		SegmentName: e.SegmentName,
		ElapsedTime: e.ElapsedTime,
		IsFinished:  e.IsFinished,
	}
	overlay := f
	f.User = user
	return Broadcast{Data: f, Overlay: overlay}
}

// Poll frames carry no identity and are identical for every member.

type QuestionPayload struct {
	ID       string         `json:"id"`
	Question string         `json:"question"`
	Answers  []string       `json:"answers"`
	Votes    map[string]int `json:"votes,omitempty"`
}

func NewQuestionPayload(q *domain.Question) QuestionPayload {
	return QuestionPayload{ID: q.ID, Question: q.Question, Answers: q.Answers, Votes: q.Votes}
}

type PublishQuestionFrame struct {
	Type         Tag             `json:"type"`
	QuestionID   string          `json:"question_id"`
	QuestionData QuestionPayload `json:"question_data"`
}

type UnpublishQuestionFrame struct {
	Type Tag `json:"type"`
}

type VoteFrame struct {
	Type       Tag            `json:"type"`
	QuestionID string         `json:"question_id"`
	Votes      map[string]int `json:"votes"`
}

type NewQuestionFrame struct {
	Type     Tag             `json:"type"`
	Question QuestionPayload `json:"question"`
}

type DeleteQuestionFrame struct {
	Type       Tag    `json:"type"`
	QuestionID string `json:"question_id"`
}

func QuestionPublished(q *domain.Question) Broadcast {
	return Broadcast{Data: PublishQuestionFrame{
		Type:         TagPublishQuestion,
		QuestionID:   q.ID,
		QuestionData: NewQuestionPayload(q),
	}}
}

func QuestionUnpublished() Broadcast {
	return Broadcast{Data: UnpublishQuestionFrame{Type: TagUnpublishQuestion}}
}

func VotesChanged(q *domain.Question) Broadcast {
	return Broadcast{Data: VoteFrame{Type: TagVote, QuestionID: q.ID, Votes: q.Votes}}
}

func QuestionAdded(q *domain.Question) Broadcast {
	return Broadcast{Data: NewQuestionFrame{Type: TagNewQuestion, Question: NewQuestionPayload(q)}}
}

func QuestionDeleted(questionID string) Broadcast {
	return Broadcast{Data: DeleteQuestionFrame{Type: TagDeleteQuestion, QuestionID: questionID}}
}
