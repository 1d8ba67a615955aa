package services

import (
	"errors"

	"adeptly/internal/apierr"
)

var (
	ErrSessionNotFound  = apierr.NotFound("session_not_found", errors.New("training session not found"))
	ErrStalePosition    = apierr.Conflict("stale_position", errors.New("problem already answered or not the current problem"))
	ErrSessionCompleted = apierr.Conflict("session_completed", errors.New("training session already completed"))
	ErrInvalidChoice    = apierr.BadRequest("invalid_choice", errors.New("answer must be one of A, B, C, D"))
	ErrTopicNotFound    = apierr.NotFound("topic_not_found", errors.New("topic not found"))
	ErrTopicInUse       = apierr.Conflict("topic_in_use", errors.New("topic is used by existing problems"))
	ErrProblemNotFound  = apierr.NotFound("problem_not_found", errors.New("problem not found"))
	ErrProblemInUse     = apierr.Conflict("problem_in_use", errors.New("problem is part of existing training sessions"))
	ErrUserNotFound     = apierr.NotFound("user_not_found", errors.New("user not found"))
	ErrDiagramNotFound  = apierr.NotFound("diagram_not_found", errors.New("diagram object not found"))
	ErrDiagramsDisabled = apierr.New(503, "diagrams_disabled", errors.New("diagram store is not configured"))
	ErrGraphDisabled    = apierr.New(503, "graph_disabled", errors.New("topic graph is not configured"))
)
