package journey

import (
	"errors"
	"fmt"
	"math"
)

// Progress summarizes a built slot sequence for the dashboard.
type Progress struct {
	Uploaded   int    `json:"uploadedCount"`
	Missing    int    `json:"missingCount"`
	CurrentDay int    `json:"currentDay,omitempty"`
	NotStarted bool   `json:"notStarted"`
	Completed  bool   `json:"completed"`
	TodayOpen  bool   `json:"todayOpen"`
	Title      string `json:"title"`
	Message    string `json:"message"`
}

// Summarize counts filled slots and picks the encouragement message tier.
func Summarize(slots []Slot, start, today Date) Progress {
	var p Progress
	for _, slot := range slots {
		if slot.Filled() {
			p.Uploaded++
		}
		if slot.Status == StatusToday {
			p.TodayOpen = true
		}
	}
	p.Missing = len(slots) - p.Uploaded

	current, err := CurrentSlot(start, today)
	switch {
	case errors.Is(err, ErrJourneyNotStarted):
		p.NotStarted = true
	case errors.Is(err, ErrJourneyCompleted):
		p.Completed = true
	default:
		p.CurrentDay = current
	}
	if p.Uploaded >= Length {
		p.Completed = true
	}

	p.Title, p.Message = progressMessage(p)
	return p
}

func progressMessage(p Progress) (string, string) {
	if p.Uploaded >= Length {
		return "Journey Complete!", fmt.Sprintf(
			"Congratulations! You've completed your %d-day transformation journey with %d photos. What an amazing achievement!",
			Length, p.Uploaded)
	}
	if p.Uploaded == 0 {
		return "You're all set!", fmt.Sprintf(
			"Your account is approved. Start your %d-day photo journey by uploading your first picture.", Length)
	}

	var msg string
	switch {
	case p.Uploaded == 1:
		msg = "Your transformation journey has begun! You've captured your first moment."
		if p.Missing > 0 {
			msg += fmt.Sprintf(" %d more days to go - you've got this!", p.Missing)
		}
	case p.Uploaded <= 5:
		msg = fmt.Sprintf("Amazing start! You're building momentum with %d photos.", p.Uploaded)
		if p.Missing > 0 {
			msg += fmt.Sprintf(" Keep going - %d days left in your journey!", p.Missing)
		}
	case p.Uploaded <= 10:
		msg = fmt.Sprintf("You're on fire! %d photos captured and counting.", p.Uploaded)
		if p.Missing > 0 {
			percent := int(math.Round(float64(p.Uploaded) / Length * 100))
			msg += fmt.Sprintf(" You're %d%% there - %d days to complete your transformation!", percent, p.Missing)
		}
	case p.Uploaded <= 20:
		msg = fmt.Sprintf("Incredible progress! You've documented %d days of your journey.", p.Uploaded)
		if p.Missing > 0 {
			msg += fmt.Sprintf(" You're more than halfway there - just %d more days to go!", p.Missing)
		}
	default:
		msg = fmt.Sprintf("Almost there! You've captured %d amazing moments.", p.Uploaded)
		if p.Missing > 0 {
			msg += fmt.Sprintf(" Only %d more days until you complete your %d-day transformation!", p.Missing, Length)
		}
	}
	if p.TodayOpen {
		msg += " Don't forget to capture today's moment!"
	}
	return "Journey in Progress!", msg
}
