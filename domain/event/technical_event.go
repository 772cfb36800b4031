package event

import (
	"allchat/domain"
)

const (
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
	ProcessStatsType        Type = "PROCESS_STATS"

	MatchFormedType    Type = "MATCH_FORMED"
	MatchCancelledType Type = "MATCH_CANCELLED"
	MatchExpiredType   Type = "MATCH_EXPIRED"
	GroupDisbandedType Type = "GROUP_DISBANDED"
	SignalRelayedType  Type = "SIGNAL_RELAYED"
	SignalBlockedType  Type = "SIGNAL_BLOCKED"
	ChatRelayedType    Type = "CHAT_RELAYED"
	MessageDroppedType Type = "MESSAGE_DROPPED"
	SessionReplaced    Type = "SESSION_REPLACED"
	MessagePanicType   Type = "MESSAGE_PANIC"
)

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type ProcessStats struct {
	PID        domain.PID
	Status     domain.PidStatus
	Cpu        float64
	Ram        float32
	RSS        uint64
	Goroutines int
}

type MatchFormed struct {
	Group domain.Group
}

type MatchCancelled struct {
	UserID domain.UserID
}

type MatchExpired struct {
	UserID domain.UserID
}

type GroupDisbanded struct {
	Group     domain.GroupID
	Initiator domain.UserID
	Remaining []domain.UserID
}

type SignalRelayed struct {
	Kind domain.MessageType
	From domain.UserID
	To   domain.UserID
}

type SignalBlocked struct {
	Kind   domain.MessageType
	From   domain.UserID
	To     domain.UserID
	Reason string
}

type ChatRelayed struct {
	From       domain.UserID
	Recipients int
}

// MessageDropped is raised when a payload could not reach a recipient.
type MessageDropped struct {
	Kind domain.MessageType
	To   domain.UserID
}

type SessionReplacedPayload struct {
	UserID  domain.UserID
	Evicted bool
}

type MessagePanic struct {
	UserID domain.UserID
	Reason string
}
