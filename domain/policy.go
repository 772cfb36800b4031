package domain

import (
	"allchat/errors"
	"fmt"
	"strings"
)

// RequeuePolicy decides who goes back to the matching pool once a group is disbanded.
type RequeuePolicy string

const (
	RequeueNone RequeuePolicy = "none"
	RequeueAll  RequeuePolicy = "all"
)

// ReconnectPolicy decides the fate of a prior connection when the same user connects again.
type ReconnectPolicy string

const (
	// ReconnectEvict closes the prior connection.
	ReconnectEvict ReconnectPolicy = "evict"
	// ReconnectReplace only makes the prior connection unreachable, leaving it open.
	ReconnectReplace ReconnectPolicy = "replace"
)

func ParseRequeuePolicy(s string) (RequeuePolicy, error) {
	switch p := RequeuePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RequeueNone, RequeueAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: requeue %q", errors.ErrInvalidPolicy, s)
	}
}

func ParseReconnectPolicy(s string) (ReconnectPolicy, error) {
	switch p := ReconnectPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ReconnectEvict, ReconnectReplace:
		return p, nil
	default:
		return "", fmt.Errorf("%w: reconnect %q", errors.ErrInvalidPolicy, s)
	}
}
