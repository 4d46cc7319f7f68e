package domain

import (
	"fmt"
	"strings"
)

// Content limits for a push message (in characters).
const (
	MaxTitleContent = 255
	MaxBodyContent  = 1024
)

// PlatformHints carries optional per-platform presentation overrides. Zero
// values mean "provider default"; the gateway adapter translates them into
// each platform's conventions so callers never touch provider config types.
type PlatformHints struct {
	Sound        string
	BadgeCount   *int
	ClickAction  string
	Icon         string
	HighPriority bool
}

// NotificationIntent is an in-flight request to deliver one logical message.
// It is produced by an external event source, consumed exactly once by the
// dispatcher, and never persisted.
type NotificationIntent struct {
	Title string
	Body  string
	Data  map[string]string
	Hints *PlatformHints
}

func (n NotificationIntent) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(n.Body) == "" {
		return fmt.Errorf("%w: body is required", ErrValidation)
	}

	if titleLen := len([]rune(n.Title)); titleLen > MaxTitleContent {
		return fmt.Errorf("%w: title exceeds %d characters (got %d)", ErrValidation, MaxTitleContent, titleLen)
	}
	if bodyLen := len([]rune(n.Body)); bodyLen > MaxBodyContent {
		return fmt.Errorf("%w: body exceeds %d characters (got %d)", ErrValidation, MaxBodyContent, bodyLen)
	}

	for key := range n.Data {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: data keys must be non-empty", ErrValidation)
		}
	}

	return nil
}
