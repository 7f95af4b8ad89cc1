package domain

import "errors"

var (
	ErrKeyNotFound      = errors.New("key not found")
	ErrTokenNotFound    = errors.New("token not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrAccountNotFound  = errors.New("account not found")
)
