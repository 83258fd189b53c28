package model

import (
	"errors"
	"fmt"
	"time"
)

const DefaultSlotGranularityMinutes = 30

// BusinessSettings is per-tenant configuration read by the engine on every call.
type BusinessSettings struct {
	BusinessID             string
	Timezone               string
	MinLeadTimeMinutes     int
	MaxAdvanceDays         int
	SlotGranularityMinutes int
}

var ErrInvalidSettings = errors.New("invalid business settings")

func (s BusinessSettings) Validate() error {
	switch {
	case s.Timezone == "":
		return fmt.Errorf("%w: timezone missing", ErrInvalidSettings)
	case s.MinLeadTimeMinutes < 0:
		return fmt.Errorf("%w: negative lead time %d", ErrInvalidSettings, s.MinLeadTimeMinutes)
	case s.MaxAdvanceDays < 0:
		return fmt.Errorf("%w: negative advance horizon %d", ErrInvalidSettings, s.MaxAdvanceDays)
	case s.SlotGranularityMinutes < 0 || (s.SlotGranularityMinutes > 0 && 24*60%s.SlotGranularityMinutes != 0):
		return fmt.Errorf("%w: granularity %d must divide a day", ErrInvalidSettings, s.SlotGranularityMinutes)
	}
	return nil
}

func (s BusinessSettings) Granularity() time.Duration {
	if s.SlotGranularityMinutes <= 0 {
		return DefaultSlotGranularityMinutes * time.Minute
	}
	return time.Duration(s.SlotGranularityMinutes) * time.Minute
}

func (s BusinessSettings) MinLead() time.Duration {
	return time.Duration(s.MinLeadTimeMinutes) * time.Minute
}
