package scheduler

// Booking is the slice of a stored meeting the availability evaluation reads.
type Booking struct {
	ID           int64
	Title        string
	Location     string
	Window       Interval
	Participants []string
}

// Query describes a candidate window on one date.
type Query struct {
	Window       Interval
	Participants []string
	ExcludeID    *int64
}

// Result reports per-room availability and per-participant conflicting titles.
type Result struct {
	RoomAvailability     map[string]bool
	ParticipantConflicts map[string][]string
}

// Evaluate computes availability for the query against the bookings of a
// single date. Bookings must already exclude cancelled meetings. Every room
// starts available and is only ever marked unavailable.
func Evaluate(rooms []string, bookings []Booking, query Query) Result {
	result := Result{
		RoomAvailability:     make(map[string]bool, len(rooms)),
		ParticipantConflicts: make(map[string][]string, len(query.Participants)),
	}
	for _, room := range rooms {
		result.RoomAvailability[room] = true
	}

	queried := make(map[string]struct{}, len(query.Participants))
	for _, participant := range query.Participants {
		if participant == "" {
			continue
		}
		queried[participant] = struct{}{}
		result.ParticipantConflicts[participant] = []string{}
	}

	for _, booking := range bookings {
		if query.ExcludeID != nil && booking.ID == *query.ExcludeID {
			continue
		}
		if !query.Window.Overlaps(booking.Window) {
			continue
		}

		result.RoomAvailability[booking.Location] = false

		if len(queried) == 0 {
			continue
		}
		for _, participant := range booking.Participants {
			if _, ok := queried[participant]; ok {
				result.ParticipantConflicts[participant] = append(result.ParticipantConflicts[participant], booking.Title)
			}
		}
	}

	return result
}

// RoomConflicts returns the titles of bookings in room that overlap the query
// window, honouring ExcludeID.
func RoomConflicts(room string, bookings []Booking, query Query) []string {
	var titles []string
	for _, booking := range bookings {
		if booking.Location != room {
			continue
		}
		if query.ExcludeID != nil && booking.ID == *query.ExcludeID {
			continue
		}
		if query.Window.Overlaps(booking.Window) {
			titles = append(titles, booking.Title)
		}
	}
	return titles
}
