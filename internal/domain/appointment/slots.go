package appointment

import "time"

// Slot is one bookable interval in a doctor's day.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// Interval is a booked time range used to mark slots unavailable.
type Interval struct {
	Start time.Time
	End   time.Time
}

// overlaps reports whether two half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Intervals that merely touch do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// GenerateSlots builds the slot grid for one day. openMin and closeMin are
// minutes since midnight; slots of slotMin minutes are laid out from the
// opening time, and any slot that would run past closing is not emitted. A
// slot is available unless a booked interval overlaps it.
func GenerateSlots(day time.Time, openMin, closeMin, slotMin int, booked []Interval) []Slot {
	if slotMin <= 0 || closeMin <= openMin {
		return nil
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	var slots []Slot
	for m := openMin; m+slotMin <= closeMin; m += slotMin {
		start := midnight.Add(time.Duration(m) * time.Minute)
		end := start.Add(time.Duration(slotMin) * time.Minute)

		available := true
		for _, b := range booked {
			if overlaps(start, end, b.Start, b.End) {
				available = false
				break
			}
		}
		slots = append(slots, Slot{Start: start, End: end, Available: available})
	}
	return slots
}

// AlignsWithGrid reports whether start falls exactly on a slot boundary
// within the open hours, i.e. it could have been produced by GenerateSlots
// with the same parameters.
func AlignsWithGrid(start time.Time, openMin, closeMin, slotMin int) bool {
	if slotMin <= 0 {
		return false
	}
	startMin := start.Hour()*60 + start.Minute()
	if start.Second() != 0 || start.Nanosecond() != 0 {
		return false
	}
	if startMin < openMin || startMin+slotMin > closeMin {
		return false
	}
	return (startMin-openMin)%slotMin == 0
}
