package domain

import "errors"

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrPartyNotFound    = &Error{Kind: KindNotFound, Code: "party_not_found", Message: "파티를 찾을 수 없습니다."}
	ErrNotAMember       = &Error{Kind: KindNotFound, Code: "not_a_member", Message: "참여하지 않은 파티입니다."}
	ErrAlreadyJoined    = &Error{Kind: KindConflict, Code: "already_joined", Message: "이미 참여한 파티입니다."}
	ErrTeamFull         = &Error{Kind: KindConflict, Code: "team_full", Message: "해당 팀이 가득 찼습니다."}
	ErrPartyClosed      = &Error{Kind: KindConflict, Code: "party_closed", Message: "모집이 종료된 파티입니다."}
	ErrNotCreator       = &Error{Kind: KindForbidden, Code: "not_creator", Message: "파티 생성자만 취소할 수 있습니다."}
	ErrMinScoreNotMet   = &Error{Kind: KindForbidden, Code: "min_score_not_met", Message: "최소 점수 조건을 만족하지 않습니다."}
	ErrForbidden        = &Error{Kind: KindForbidden, Code: "forbidden", Message: "권한이 없습니다."}
	ErrInvalidPartyType = &Error{Kind: KindInvalidInput, Code: "invalid_party_type", Message: "알 수 없는 파티 타입입니다."}
	ErrInvalidTeam      = &Error{Kind: KindInvalidInput, Code: "invalid_team", Message: "잘못된 팀 번호입니다."}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput, Code: "invalid_input", Message: "잘못된 요청입니다."}
)

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
