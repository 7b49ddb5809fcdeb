package scheduler

import "fmt"

// FieldError pairs an input field with a human readable failure message.
type FieldError struct {
	Field   string
	Message string
}

// BusinessHours bounds the meeting windows callers accept.
type BusinessHours struct {
	StartHourMin       int
	StartHourMax       int
	EndHourMin         int
	EndHourMax         int
	GranularityMinutes int
}

// DefaultBusinessHours returns the 08:00-17:00 day with quarter hour slots.
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		StartHourMin:       8,
		StartHourMax:       16,
		EndHourMin:         8,
		EndHourMax:         17,
		GranularityMinutes: 15,
	}
}

// Validate checks the bounds themselves.
func (b BusinessHours) Validate() error {
	if b.StartHourMin < 0 || b.StartHourMax > 23 || b.StartHourMin > b.StartHourMax {
		return fmt.Errorf("start hours %d-%d are invalid", b.StartHourMin, b.StartHourMax)
	}
	if b.EndHourMin < 0 || b.EndHourMax > 23 || b.EndHourMin > b.EndHourMax {
		return fmt.Errorf("end hours %d-%d are invalid", b.EndHourMin, b.EndHourMax)
	}
	if b.GranularityMinutes <= 0 || 60%b.GranularityMinutes != 0 {
		return fmt.Errorf("granularity %d must divide an hour", b.GranularityMinutes)
	}
	return nil
}

// CheckRange reports a failure when t is not a valid clock time.
func CheckRange(field string, t TimeOfDay) *FieldError {
	if t.Hour < 0 || t.Hour > 23 {
		return &FieldError{Field: field, Message: "hour must be between 0 and 23"}
	}
	if t.Minute < 0 || t.Minute > 59 {
		return &FieldError{Field: field, Message: "minute must be between 0 and 59"}
	}
	return nil
}

// CheckGranularity reports a failure when the minute is off the slot grid.
func (b BusinessHours) CheckGranularity(field string, t TimeOfDay) *FieldError {
	step := b.GranularityMinutes
	if step <= 0 {
		step = 1
	}
	if t.Minute%step != 0 {
		return &FieldError{Field: field, Message: fmt.Sprintf("minute must be a multiple of %d", step)}
	}
	return nil
}

// CheckStart validates a meeting start time against the business day.
func (b BusinessHours) CheckStart(field string, t TimeOfDay) *FieldError {
	if fe := CheckRange(field, t); fe != nil {
		return fe
	}
	if t.Hour < b.StartHourMin || t.Hour > b.StartHourMax {
		return &FieldError{Field: field, Message: fmt.Sprintf("start hour must be between %d and %d", b.StartHourMin, b.StartHourMax)}
	}
	return b.CheckGranularity(field, t)
}

// CheckEnd validates a meeting end time against the business day.
func (b BusinessHours) CheckEnd(field string, t TimeOfDay) *FieldError {
	if fe := CheckRange(field, t); fe != nil {
		return fe
	}
	if t.Hour < b.EndHourMin || t.Hour > b.EndHourMax {
		return &FieldError{Field: field, Message: fmt.Sprintf("end hour must be between %d and %d", b.EndHourMin, b.EndHourMax)}
	}
	return b.CheckGranularity(field, t)
}

// CheckOrder requires the end to fall strictly after the start.
func CheckOrder(field string, start, end TimeOfDay) *FieldError {
	if end.Minutes() <= start.Minutes() {
		return &FieldError{Field: field, Message: "end time must be after start time"}
	}
	return nil
}

// ValidateWindow collects every failure for a start/end pair.
func (b BusinessHours) ValidateWindow(start, end TimeOfDay) []FieldError {
	var failures []FieldError
	startErr := b.CheckStart("start_time", start)
	if startErr != nil {
		failures = append(failures, *startErr)
	}
	endErr := b.CheckEnd("end_time", end)
	if endErr != nil {
		failures = append(failures, *endErr)
	}
	if startErr == nil && endErr == nil {
		if fe := CheckOrder("end_time", start, end); fe != nil {
			failures = append(failures, *fe)
		}
	}
	return failures
}
