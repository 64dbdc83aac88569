package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"live-app/internal/apperrors"

	"github.com/go-playground/validator/v10"
)

type MessageType string

// Client to server.
const (
	MessageTypeJoinLive           MessageType = "join_live"
	MessageTypeLike               MessageType = "like"
	MessageTypeGift               MessageType = "gift"
	MessageTypeComment            MessageType = "comment"
	MessageTypeInvitePK           MessageType = "invite_pk"
	MessageTypePKResponse         MessageType = "pk_response"
	MessageTypePKStarted          MessageType = "pk_started"
	MessageTypePKScore            MessageType = "pk_score"
	MessageTypePKEnded            MessageType = "pk_ended"
	MessageTypeRequestStats       MessageType = "request_stats"
	MessageTypeHeartbeat          MessageType = "heartbeat"
	MessageTypePlayState          MessageType = "play_state"
	MessageTypeChangeSong         MessageType = "change_song"
	MessageTypeProgressUpdate     MessageType = "progress_update"
	MessageTypeChangeChapter      MessageType = "change_chapter"
	MessageTypePlayRecommendation MessageType = "play_recommendation"
)

// Server to client only.
const (
	MessageTypeStatsUpdate     MessageType = "stats_update"
	MessageTypeUserJoined      MessageType = "user_joined"
	MessageTypeUserLeft        MessageType = "user_left"
	MessageTypePKInviteExpired MessageType = "pk_invite_expired"
	MessageTypeError           MessageType = "error"
)

// ClientMessage is the closed set of messages a client may send.
// Every implementation lives in this file.
type ClientMessage interface {
	Kind() MessageType
	clientMessage()
}

type JoinLive struct {
	UserID    string `json:"userId" validate:"required"`
	Timestamp int64  `json:"timestamp"`
}

type Like struct {
	UserID    string `json:"userId" validate:"required"`
	Timestamp int64  `json:"timestamp"`
}

type Gift struct {
	UserID    string  `json:"userId" validate:"required"`
	GiftID    string  `json:"giftId" validate:"required"`
	GiftName  string  `json:"giftName"`
	GiftPrice FlexInt `json:"giftPrice" validate:"gte=0"`
	Timestamp int64   `json:"timestamp"`
}

type Comment struct {
	UserID    string `json:"userId" validate:"required"`
	Content   string `json:"content" validate:"required,max=500"`
	Timestamp int64  `json:"timestamp"`
}

type InvitePK struct {
	From      string `json:"from"`
	To        string `json:"to" validate:"required"`
	Timestamp int64  `json:"timestamp"`
}

type PKResponse struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Accepted *bool  `json:"accepted" validate:"required"`
}

type PKStarted struct {
	HostID     string `json:"hostId"`
	OpponentID string `json:"opponentId"`
	Timestamp  int64  `json:"timestamp"`
}

// PKScore carries a non-negative delta for the sender's room.
type PKScore struct {
	UserID string `json:"userId"`
	Score  int64  `json:"score" validate:"gte=0"`
}

// PKEnded requests settlement. The scores are advisory; the server's are authoritative.
type PKEnded struct {
	HostID        string `json:"hostId"`
	OpponentID    string `json:"opponentId"`
	HostScore     int64  `json:"hostScore"`
	OpponentScore int64  `json:"opponentScore"`
	Timestamp     int64  `json:"timestamp"`
}

type RequestStats struct{}

type Heartbeat struct {
	Timestamp int64 `json:"timestamp"`
}

// Relay is a player-sync message forwarded verbatim to the room.
type Relay struct {
	Name    MessageType
	Payload json.RawMessage
}

func (*JoinLive) Kind() MessageType     { return MessageTypeJoinLive }
func (*Like) Kind() MessageType         { return MessageTypeLike }
func (*Gift) Kind() MessageType         { return MessageTypeGift }
func (*Comment) Kind() MessageType      { return MessageTypeComment }
func (*InvitePK) Kind() MessageType     { return MessageTypeInvitePK }
func (*PKResponse) Kind() MessageType   { return MessageTypePKResponse }
func (*PKStarted) Kind() MessageType    { return MessageTypePKStarted }
func (*PKScore) Kind() MessageType      { return MessageTypePKScore }
func (*PKEnded) Kind() MessageType      { return MessageTypePKEnded }
func (*RequestStats) Kind() MessageType { return MessageTypeRequestStats }
func (*Heartbeat) Kind() MessageType    { return MessageTypeHeartbeat }
func (r *Relay) Kind() MessageType      { return r.Name }

func (*JoinLive) clientMessage()     {}
func (*Like) clientMessage()         {}
func (*Gift) clientMessage()         {}
func (*Comment) clientMessage()      {}
func (*InvitePK) clientMessage()     {}
func (*PKResponse) clientMessage()   {}
func (*PKStarted) clientMessage()    {}
func (*PKScore) clientMessage()      {}
func (*PKEnded) clientMessage()      {}
func (*RequestStats) clientMessage() {}
func (*Heartbeat) clientMessage()    {}
func (*Relay) clientMessage()        {}

var validate = validator.New()

// Validate runs the struct tags of v through the shared validator.
func Validate(v any) error {
	return validate.Struct(v)
}

// DecodeClientMessage parses one inbound frame. Unknown or missing type tags,
// malformed JSON and failed field validation all yield ErrInvalidMessage.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, apperrors.Invalid("malformed json: %v", err)
	}

	var msg ClientMessage
	switch envelope.Type {
	case MessageTypeJoinLive:
		msg = &JoinLive{}
	case MessageTypeLike:
		msg = &Like{}
	case MessageTypeGift:
		msg = &Gift{}
	case MessageTypeComment:
		msg = &Comment{}
	case MessageTypeInvitePK:
		msg = &InvitePK{}
	case MessageTypePKResponse:
		msg = &PKResponse{}
	case MessageTypePKStarted:
		msg = &PKStarted{}
	case MessageTypePKScore:
		msg = &PKScore{}
	case MessageTypePKEnded:
		msg = &PKEnded{}
	case MessageTypeRequestStats:
		return &RequestStats{}, nil
	case MessageTypeHeartbeat:
		msg = &Heartbeat{}
	case MessageTypePlayState, MessageTypeChangeSong, MessageTypeProgressUpdate,
		MessageTypeChangeChapter, MessageTypePlayRecommendation:
		return &Relay{Name: envelope.Type, Payload: bytes.Clone(data)}, nil
	case "":
		return nil, apperrors.Invalid("missing type")
	default:
		return nil, apperrors.Invalid("unknown type %q", envelope.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, apperrors.Invalid("%s: %v", envelope.Type, err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, apperrors.Invalid("%s: %v", envelope.Type, err)
	}
	return msg, nil
}

// FlexInt accepts both JSON numbers and numeric strings ("10").
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = FlexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != float64(int64(v)) {
		return apperrors.Invalid("not an integer: %s", string(data))
	}
	*f = FlexInt(int64(v))
	return nil
}

// Server to client events.

type StatsUpdate struct {
	Type   MessageType `json:"type"`
	RoomID string      `json:"roomId"`
	Stats  Stats       `json:"stats"`
}

type UserPresence struct {
	Type    MessageType `json:"type"`
	RoomID  string      `json:"roomId"`
	UserID  string      `json:"userId"`
	Viewers int64       `json:"viewers"`
}

type LikeEvent struct {
	Type      MessageType `json:"type"`
	RoomID    string      `json:"roomId"`
	UserID    string      `json:"userId"`
	Likes     int64       `json:"likes"`
	Timestamp int64       `json:"timestamp"`
}

type GiftEvent struct {
	Type      MessageType `json:"type"`
	RoomID    string      `json:"roomId"`
	UserID    string      `json:"userId"`
	GiftID    string      `json:"giftId"`
	GiftName  string      `json:"giftName,omitempty"`
	GiftPrice int64       `json:"giftPrice"`
	Gifts     int64       `json:"gifts"`
	Revenue   int64       `json:"revenue"`
	Timestamp int64       `json:"timestamp"`
}

type CommentEvent struct {
	Type      MessageType `json:"type"`
	RoomID    string      `json:"roomId"`
	UserID    string      `json:"userId"`
	Content   string      `json:"content"`
	Comments  int64       `json:"comments"`
	Timestamp int64       `json:"timestamp"`
}

type PKInviteEvent struct {
	Type       MessageType `json:"type"`
	SessionID  string      `json:"sessionId"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	FromHostID string      `json:"fromHostId"`
	ExpiresAt  int64       `json:"expiresAt"`
}

type PKResponseEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Accepted  bool        `json:"accepted"`
	Reason    string      `json:"reason,omitempty"`
}

type PKStartedEvent struct {
	Type           MessageType      `json:"type"`
	SessionID      string           `json:"sessionId"`
	HostRoomID     string           `json:"hostRoomId"`
	OpponentRoomID string           `json:"opponentRoomId"`
	HostID         string           `json:"hostId"`
	OpponentID     string           `json:"opponentId"`
	StartedAt      int64            `json:"startedAt"`
	EndsAt         int64            `json:"endsAt"`
	Scores         map[string]int64 `json:"scores"`
}

type PKScoreEvent struct {
	Type      MessageType      `json:"type"`
	SessionID string           `json:"sessionId"`
	RoomID    string           `json:"roomId"`
	UserID    string           `json:"userId"`
	Score     int64            `json:"score"`
	Scores    map[string]int64 `json:"scores"`
}

type PKEndedEvent struct {
	Type           MessageType `json:"type"`
	SessionID      string      `json:"sessionId"`
	HostRoomID     string      `json:"hostRoomId"`
	OpponentRoomID string      `json:"opponentRoomId"`
	HostID         string      `json:"hostId"`
	OpponentID     string      `json:"opponentId"`
	HostScore      int64       `json:"hostScore"`
	OpponentScore  int64       `json:"opponentScore"`
	Winner         string      `json:"winner,omitempty"`
	Tie            bool        `json:"tie"`
	Reason         string      `json:"reason"`
	Timestamp      int64       `json:"timestamp"`
}

type PKInviteExpiredEvent struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId"`
	From      string      `json:"from"`
	To        string      `json:"to"`
}

type ErrorEvent struct {
	Type        MessageType `json:"type"`
	Code        string      `json:"code"`
	Message     string      `json:"message"`
	RequestType MessageType `json:"requestType,omitempty"`
}
