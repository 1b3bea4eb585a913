package journey

import (
	"errors"
	"fmt"
	"time"
)

// Length is the number of day slots in a journey.
const Length = 30

var (
	ErrJourneyNotStarted = errors.New("journey has not started yet")
	ErrJourneyCompleted  = errors.New("journey is past its last day")
)

type SlotStatus string

const (
	StatusFilled SlotStatus = "filled"
	StatusMissed SlotStatus = "missed"
	StatusToday  SlotStatus = "today"
	StatusFuture SlotStatus = "future"
)

// Upload is one submitted photo as the calculator sees it.
type Upload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Date      string    `json:"uploadDate"`
	ImageURL  string    `json:"imageUrl"`
	MoodEmoji string    `json:"moodEmoji,omitempty"`
	MoodNote  string    `json:"moodNote,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Slot is a derived view of one journey day. It is never persisted.
type Slot struct {
	Number  int        `json:"dayNumber"`
	Date    Date       `json:"date"`
	Status  SlotStatus `json:"status"`
	Upload  *Upload    `json:"upload,omitempty"`
	Message string     `json:"message,omitempty"`
}

func (s Slot) Filled() bool {
	return s.Status == StatusFilled
}

// SlotDate returns the calendar date of slot n (1-based).
func SlotDate(start Date, n int) Date {
	return start.AddDays(n - 1)
}

// BuildSlots lays out all journey slots starting at start and classifies
// each one relative to today. A slot is filled when an upload's date string
// equals the slot date exactly. If uploads repeat a date, the first one wins.
func BuildSlots(start Date, uploads []Upload, today Date) []Slot {
	byDate := make(map[string]*Upload, len(uploads))
	for i := range uploads {
		if _, exists := byDate[uploads[i].Date]; !exists {
			byDate[uploads[i].Date] = &uploads[i]
		}
	}

	slots := make([]Slot, 0, Length)
	for n := 1; n <= Length; n++ {
		date := SlotDate(start, n)
		slot := Slot{Number: n, Date: date}

		if upload, ok := byDate[date.String()]; ok {
			found := *upload
			slot.Status = StatusFilled
			slot.Upload = &found
			slots = append(slots, slot)
			continue
		}

		switch {
		case date == today:
			slot.Status = StatusToday
			slot.Message = fmt.Sprintf("Today is Day %d - Upload your photo to continue your journey!", n)
		case date.Before(today):
			slot.Status = StatusMissed
			slot.Message = fmt.Sprintf("You forgot to upload your Day %d picture on %s", n, date.Display())
		default:
			slot.Status = StatusFuture
			slot.Message = fmt.Sprintf("Day %d - Coming up on %s", n, date.Display())
		}
		slots = append(slots, slot)
	}
	return slots
}

// CurrentSlot returns the number of the slot dated today. Outside the
// journey window it reports ErrJourneyNotStarted or ErrJourneyCompleted
// instead of guessing a slot.
func CurrentSlot(start Date, today Date) (int, error) {
	offset := today.DaysSince(start)
	if offset < 0 {
		return 0, ErrJourneyNotStarted
	}
	if offset >= Length {
		return 0, ErrJourneyCompleted
	}
	return offset + 1, nil
}
