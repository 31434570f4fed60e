package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Tag identifies the kind of state change a DomainEvent carries.
type Tag string

const (
	TagNewNotification        Tag = "newNotification"
	TagNotificationRead       Tag = "notificationRead"
	TagNotificationDeleted    Tag = "notificationDeleted"
	TagOrderStatusUpdate      Tag = "orderStatusUpdate"
	TagPriceUpdate            Tag = "priceUpdate"
	TagNewQuestion            Tag = "newQuestion"
	TagNewAnswer              Tag = "newAnswer"
	TagVoteUpdate             Tag = "voteUpdate"
	TagHelpfulAnswer          Tag = "helpfulAnswer"
	TagNewModerationFlag      Tag = "newModerationFlag"
	TagModerationStatusUpdate Tag = "moderationStatusUpdate"
	TagUserActivityLog        Tag = "userActivityLog"
	TagLowStock               Tag = "lowStock"
	TagRestock                Tag = "restock"
	TagLowStockAcknowledged   Tag = "lowStockAcknowledged"
	TagNewOrder               Tag = "newOrder"
	TagNewReturn              Tag = "newReturn"
	TagReturnStatusUpdate     Tag = "returnStatusUpdate"
	TagNewSeller              Tag = "newSeller"
	TagSellerStatusUpdate     Tag = "sellerStatusUpdate"
	TagCouponApplied          Tag = "couponApplied"
	TagDeleted                Tag = "deleted"
)

// payloadFactories maps every known tag to a constructor for its payload.
var payloadFactories = map[Tag]func() any{
	TagNewNotification:        func() any { return &NewNotificationPayload{} },
	TagNotificationRead:       func() any { return &NotificationReadPayload{} },
	TagNotificationDeleted:    func() any { return &NotificationDeletedPayload{} },
	TagOrderStatusUpdate:      func() any { return &OrderStatusUpdatePayload{} },
	TagPriceUpdate:            func() any { return &PriceUpdatePayload{} },
	TagNewQuestion:            func() any { return &NewQuestionPayload{} },
	TagNewAnswer:              func() any { return &NewAnswerPayload{} },
	TagVoteUpdate:             func() any { return &VoteUpdatePayload{} },
	TagHelpfulAnswer:          func() any { return &HelpfulAnswerPayload{} },
	TagNewModerationFlag:      func() any { return &NewModerationFlagPayload{} },
	TagModerationStatusUpdate: func() any { return &ModerationStatusUpdatePayload{} },
	TagUserActivityLog:        func() any { return &UserActivityLogPayload{} },
	TagLowStock:               func() any { return &LowStockPayload{} },
	TagRestock:                func() any { return &RestockPayload{} },
	TagLowStockAcknowledged:   func() any { return &LowStockAcknowledgedPayload{} },
	TagNewOrder:               func() any { return &NewOrderPayload{} },
	TagNewReturn:              func() any { return &NewReturnPayload{} },
	TagReturnStatusUpdate:     func() any { return &ReturnStatusUpdatePayload{} },
	TagNewSeller:              func() any { return &NewSellerPayload{} },
	TagSellerStatusUpdate:     func() any { return &SellerStatusUpdatePayload{} },
	TagCouponApplied:          func() any { return &CouponAppliedPayload{} },
	TagDeleted:                func() any { return &DeletedPayload{} },
}

// Valid reports whether t is one of the enumerated tags.
func (t Tag) Valid() bool {
	_, ok := payloadFactories[t]
	return ok
}

// Tags returns every known tag.
func Tags() []Tag {
	out := make([]Tag, 0, len(payloadFactories))
	for t := range payloadFactories {
		out = append(out, t)
	}
	return out
}

// NewPayload returns a pointer to a zero payload for tag.
func NewPayload(tag Tag) (any, error) {
	f, ok := payloadFactories[tag]
	if !ok {
		return nil, ErrUnknownTag
	}
	return f(), nil
}

// Target is the addressing rule of an event:
// "all", "user:<id>", "role:user" or "role:admin".
type Target string

const (
	TargetAll    Target = "all"
	TargetAdmins Target = "role:admin"
	TargetUsers  Target = "role:user"

	userTargetPrefix = "user:"
)

// TargetUser addresses a single user.
func TargetUser(userID string) Target {
	return Target(userTargetPrefix + userID)
}

// ParseTarget validates s as a target descriptor.
func ParseTarget(s string) (Target, error) {
	t := Target(strings.TrimSpace(s))
	switch t {
	case TargetAll, TargetAdmins, TargetUsers:
		return t, nil
	}
	if id, ok := strings.CutPrefix(string(t), userTargetPrefix); ok && id != "" {
		return t, nil
	}
	return "", ErrInvalidTarget
}

// Matches reports whether an event with this target is addressed to id.
// Anonymous visitors (nil) only match "all".
func (t Target) Matches(id *Identity) bool {
	if t == TargetAll {
		return true
	}
	if id == nil {
		return false
	}
	switch t {
	case TargetAdmins:
		return id.Role == RoleAdmin
	case TargetUsers:
		return id.Role == RoleUser
	}
	uid, ok := strings.CutPrefix(string(t), userTargetPrefix)
	return ok && uid != "" && uid == id.UserID
}

// DomainEvent is an ephemeral notification of a committed state change.
// It is the wire envelope: one event per frame.
type DomainEvent struct {
	ID          string          `json:"id"`
	Seq         uint64          `json:"seq"`
	Tag         Tag             `json:"type"`
	Target      Target          `json:"target"`
	PublishedAt time.Time       `json:"published_at"`
	Data        json.RawMessage `json:"data"`
}

// NewEvent encodes payload into an event ready for publishing.
func NewEvent(tag Tag, target Target, payload any) (DomainEvent, error) {
	if !tag.Valid() {
		return DomainEvent{}, ErrUnknownTag
	}
	target, err := ParseTarget(string(target))
	if err != nil {
		return DomainEvent{}, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return DomainEvent{}, &MalformedEventError{Tag: tag, Reason: "encode payload", Err: err}
	}
	return DomainEvent{Tag: tag, Target: target, Data: data}, nil
}

// DecodeEvent parses a wire frame into an event. The payload is left raw.
func DecodeEvent(frame []byte) (DomainEvent, error) {
	var ev DomainEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return DomainEvent{}, &MalformedEventError{Reason: "decode envelope", Err: err}
	}
	if !ev.Tag.Valid() {
		return DomainEvent{}, &MalformedEventError{Tag: ev.Tag, Reason: "unknown tag", Err: ErrUnknownTag}
	}
	target, err := ParseTarget(string(ev.Target))
	if err != nil {
		return DomainEvent{}, &MalformedEventError{Tag: ev.Tag, Reason: "bad target", Err: err}
	}
	ev.Target = target
	if ev.ID == "" {
		return DomainEvent{}, &MalformedEventError{Tag: ev.Tag, Reason: "missing id"}
	}
	return ev, nil
}
