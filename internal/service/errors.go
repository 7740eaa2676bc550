package service

import (
	"errors"
	"net/http"

	"woori-codeshare/internal/infra/upstream"
	"woori-codeshare/internal/repository"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrTransport      = errors.New("transport failure")
	ErrUpstream       = errors.New("upstream failure")
	ErrInternalServer = errors.New("internal server error")
)

// 具体资源的错误，errors.Is 可以匹配到对应的通用错误
var (
	ErrRoomNotFound       = &kindError{msg: "room not found", kind: ErrNotFound}
	ErrSnapshotNotFound   = &kindError{msg: "snapshot not found", kind: ErrNotFound}
	ErrCommentNotFound    = &kindError{msg: "comment not found", kind: ErrNotFound}
	ErrWrongPassword      = &kindError{msg: "wrong room password", kind: ErrUnauthorized}
	ErrCommentNotEditable = &kindError{msg: "only a top-level comment without replies can be edited", kind: ErrConflict}
	ErrNestedReply        = &kindError{msg: "replies cannot be replied to", kind: ErrInvalidInput}
	ErrAlreadyVoted       = &kindError{msg: "already voted on this snapshot", kind: ErrConflict}
	ErrInvalidVoteType    = &kindError{msg: "voteType must be one of POSITIVE, NEUTRAL, NEGATIVE", kind: ErrInvalidInput}
	ErrEmptyCode          = &kindError{msg: "code state is empty", kind: ErrInvalidInput}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string        { return e.msg }
func (e *kindError) Is(target error) bool { return target == e.kind }

// mapUpstreamError 将仓库层（外部后端、Redis、数据库）的错误映射为服务层错误。
// notFound 用于 404 时返回更具体的资源错误。
func mapUpstreamError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	if errors.Is(err, upstream.ErrTransport) {
		return ErrTransport
	}
	var se *upstream.StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return ErrInvalidInput
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrUnauthorized
		case http.StatusNotFound:
			return notFound
		case http.StatusConflict:
			return ErrConflict
		default:
			return ErrUpstream
		}
	}
	return ErrInternalServer
}
