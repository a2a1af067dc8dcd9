package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"chat-hub/internal/models"
)

var (
	ErrMalformedEvent = errors.New("malformed event")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrNotRegistered  = errors.New("user is not joined")
	ErrEmptyMessage   = errors.New("message needs a body or an attachment")
	ErrInvalidKind    = errors.New("invalid message kind")
)

// Event is anything the hub goroutine processes: client events, connection
// lifecycle changes, scheduler ticks and internal queries.
type Event interface {
	eventName() string
}

// JoinEvent announces a user on a connection.
type JoinEvent struct {
	ConnID string
	models.JoinPayload
}

// SendMessageEvent submits a chat message.
type SendMessageEvent struct {
	ConnID string
	models.SendMessagePayload
}

// StartTypingEvent marks the user as typing.
type StartTypingEvent struct {
	ConnID string
	models.TypingPayload
}

// StopTypingEvent clears the user's typing state.
type StopTypingEvent struct {
	ConnID string
	models.TypingPayload
}

// LeaveEvent is an explicit sign-off.
type LeaveEvent struct {
	ConnID string
	models.LeavePayload
}

// UsersListQuery asks for a users_list reply.
type UsersListQuery struct {
	ConnID string
}

// ServerInfoQuery asks for a server_info reply.
type ServerInfoQuery struct {
	ConnID string
}

// RejectedEvent carries a frame that could not be decoded.
type RejectedEvent struct {
	ConnID string
	Err    error
}

// Connected registers a new transport with the hub.
type Connected struct {
	Conn Conn
	Info ConnInfo
}

// Disconnected reports that a transport has gone away.
type Disconnected struct {
	ConnID string
	Reason string
}

// TypingSweepTick triggers expiry of stale typing states.
type TypingSweepTick struct{}

// PurgeTick triggers removal of long-offline users.
type PurgeTick struct{}

// StatusTick triggers the periodic status report.
type StatusTick struct{}

// ArchiveResult feeds an archive write completion back to the hub.
type ArchiveResult struct {
	MessageID string
	Err       error
}

type infoRequest struct {
	reply chan models.ServerInfo
}

func (JoinEvent) eventName() string        { return models.EventJoin }
func (SendMessageEvent) eventName() string { return models.EventSendMessage }
func (StartTypingEvent) eventName() string { return models.EventStartTyping }
func (StopTypingEvent) eventName() string  { return models.EventStopTyping }
func (LeaveEvent) eventName() string       { return models.EventLeave }
func (UsersListQuery) eventName() string   { return models.EventGetUsersList }
func (ServerInfoQuery) eventName() string  { return models.EventGetServerInfo }
func (RejectedEvent) eventName() string    { return "rejected" }
func (Connected) eventName() string        { return "connect" }
func (Disconnected) eventName() string     { return "disconnect" }
func (TypingSweepTick) eventName() string  { return "typing_sweep" }
func (PurgeTick) eventName() string        { return "stale_purge" }
func (StatusTick) eventName() string       { return "status_report" }
func (ArchiveResult) eventName() string    { return "archive_result" }
func (infoRequest) eventName() string      { return "server_info_request" }

// connID returns the originating connection of client events.
func connID(ev Event) string {
	switch e := ev.(type) {
	case JoinEvent:
		return e.ConnID
	case SendMessageEvent:
		return e.ConnID
	case StartTypingEvent:
		return e.ConnID
	case StopTypingEvent:
		return e.ConnID
	case LeaveEvent:
		return e.ConnID
	case UsersListQuery:
		return e.ConnID
	case ServerInfoQuery:
		return e.ConnID
	case RejectedEvent:
		return e.ConnID
	case Disconnected:
		return e.ConnID
	}
	return ""
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// DecodeEvent parses one inbound frame from connID. Field presence and size
// limits are checked here; rules that depend on hub state are left to the hub.
func DecodeEvent(connID string, raw []byte) (Event, error) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch env.Type {
	case models.EventJoin:
		var p models.JoinPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		p.UserID = strings.TrimSpace(p.UserID)
		p.DisplayName = strings.TrimSpace(p.DisplayName)
		if err := validatePayload(env.Type, p); err != nil {
			return nil, err
		}
		return JoinEvent{ConnID: connID, JoinPayload: p}, nil
	case models.EventSendMessage:
		var p models.SendMessagePayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		p.UserID = strings.TrimSpace(p.UserID)
		if err := validatePayload(env.Type, p); err != nil {
			return nil, err
		}
		return SendMessageEvent{ConnID: connID, SendMessagePayload: p}, nil
	case models.EventStartTyping, models.EventStopTyping:
		var p models.TypingPayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		p.UserID = strings.TrimSpace(p.UserID)
		if err := validatePayload(env.Type, p); err != nil {
			return nil, err
		}
		if env.Type == models.EventStartTyping {
			return StartTypingEvent{ConnID: connID, TypingPayload: p}, nil
		}
		return StopTypingEvent{ConnID: connID, TypingPayload: p}, nil
	case models.EventLeave:
		var p models.LeavePayload
		if err := decodePayload(env, &p); err != nil {
			return nil, err
		}
		p.UserID = strings.TrimSpace(p.UserID)
		if err := validatePayload(env.Type, p); err != nil {
			return nil, err
		}
		return LeaveEvent{ConnID: connID, LeavePayload: p}, nil
	case models.EventGetUsersList:
		return UsersListQuery{ConnID: connID}, nil
	case models.EventGetServerInfo:
		return ServerInfoQuery{ConnID: connID}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func decodePayload(env models.Envelope, dst any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrMalformedEvent, env.Type)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, env.Type, err)
	}
	return nil
}

func validatePayload(eventType string, payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, eventType, err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			problems = append(problems, fe.Field()+" is required")
		} else {
			problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("%w: %s: %s", ErrMalformedEvent, eventType, strings.Join(problems, ", "))
}
