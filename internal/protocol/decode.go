package protocol

import (
	"encoding/json"
	"errors"

	apperrors "github.com/hafbjorn109/wiperino/internal/platform/errors"
)

const (
	MsgWrongFormat = "wrong format"
	MsgUnknownType = "unknown type"
)

// envelope is the union of every inbound field. Pointers distinguish an
// absent field from its zero value.
type envelope struct {
	Type        *string  `json:"type"`
	SegmentID   *int64   `json:"segment_id"`
	SegmentName *string  `json:"segment_name"`
	Count       *int     `json:"count"`
	IsFinished  *bool    `json:"is_finished"`
	ElapsedTime *float64 `json:"elapsed_time"`
	StartedAt   *string  `json:"started_at"`
	QuestionID  *string  `json:"question_id"`
	Answer      *string  `json:"answer"`
}

func decodeEnvelope(data []byte) (*envelope, Tag, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" && typeErr.Field != "type" {
			return nil, "", apperrors.FieldError(typeErr.Field, "has the wrong type")
		}
		return nil, "", apperrors.ProtocolError(MsgWrongFormat).WithCause(err)
	}
	if env.Type == nil || *env.Type == "" {
		return nil, "", apperrors.ProtocolError(MsgWrongFormat)
	}
	return &env, Tag(*env.Type), nil
}

func unknownType(tag Tag) error {
	return apperrors.ProtocolError(MsgUnknownType).WithContext("type", string(tag))
}

// DecodeCounter decodes and validates a frame sent to a counter room.
func DecodeCounter(data []byte) (CounterEvent, error) {
	env, tag, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	var v validator
	var evt CounterEvent
	switch tag {
	case TagCountUpdate:
		evt = CountUpdate{
			SegmentID: v.id("segment_id", env.SegmentID),
			Count:     v.count("count", env.Count),
		}
	case TagNewSegment:
		evt = CounterNewSegment{
			SegmentID:   v.id("segment_id", env.SegmentID),
			SegmentName: v.text("segment_name", env.SegmentName),
			Count:       v.count("count", env.Count),
			IsFinished:  v.flag("is_finished", env.IsFinished),
		}
	case TagSegmentFinished:
		evt = SegmentFinished{SegmentID: v.id("segment_id", env.SegmentID)}
	case TagRunFinished:
		evt = RunFinished{}
	default:
		return nil, unknownType(tag)
	}

	if v.err != nil {
		return nil, v.err
	}
	return evt, nil
}

// DecodeTimer decodes and validates a frame sent to a timer room.
func DecodeTimer(data []byte) (TimerEvent, error) {
	env, tag, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	var v validator
	var evt TimerEvent
	switch tag {
	case TagStartTimer:
		evt = StartTimer{
			SegmentID:   v.id("segment_id", env.SegmentID),
			ElapsedTime: v.duration("elapsed_time", env.ElapsedTime),
			StartedAt:   v.text("started_at", env.StartedAt),
		}
	case TagPauseTimer:
		evt = PauseTimer{
			SegmentID:   v.id("segment_id", env.SegmentID),
			ElapsedTime: v.duration("elapsed_time", env.ElapsedTime),
		}
	case TagFinishTimer:
		evt = FinishTimer{
			SegmentID:   v.id("segment_id", env.SegmentID),
			ElapsedTime: v.duration("elapsed_time", env.ElapsedTime),
		}
	case TagNewSegment:
		evt = TimerNewSegment{
			SegmentID:   v.id("segment_id", env.SegmentID),
			SegmentName: v.text("segment_name", env.SegmentName),
			ElapsedTime: v.duration("elapsed_time", env.ElapsedTime),
			IsFinished:  v.flag("is_finished", env.IsFinished),
		}
	case TagRunFinished:
		evt = RunFinished{}
	default:
		return nil, unknownType(tag)
	}

	if v.err != nil {
		return nil, v.err
	}
	return evt, nil
}

// DecodePoll decodes and validates a frame sent to a poll room.
func DecodePoll(data []byte) (PollEvent, error) {
	env, tag, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	var v validator
	var evt PollEvent
	switch tag {
	case TagPublishQuestion:
		evt = PublishQuestion{QuestionID: v.text("question_id", env.QuestionID)}
	case TagUnpublishQuestion:
		evt = UnpublishQuestion{}
	case TagVote:
		evt = Vote{
			QuestionID: v.text("question_id", env.QuestionID),
			Answer:     v.text("answer", env.Answer),
		}
	case TagSyncQuestions:
		evt = SyncQuestions{}
	case TagDeleteQuestion:
		evt = DeleteQuestion{QuestionID: v.text("question_id", env.QuestionID)}
	default:
		return nil, unknownType(tag)
	}

	if v.err != nil {
		return nil, v.err
	}
	return evt, nil
}

// CheckFormat reports whether data is a JSON object with a type tag. Used by
// read-only rooms, which reject every frame but still distinguish garbage
// from a well-formed but disallowed event.
func CheckFormat(data []byte) error {
	_, _, err := decodeEnvelope(data)
	return err
}
