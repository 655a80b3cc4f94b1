package email

import (
	"fmt"
	"strings"
	"time"
)

type Message struct {
	Subject string
	Body    string
}

type BookingDetails struct {
	FacilityName string
	LeagueName   string
	Date         string
	TimeRange    string
	CheckInCode  string
}

func FormatDateTimeRange(start, end time.Time) (string, string) {
	date := start.Format("Monday, Jan 2, 2006")
	timeRange := fmt.Sprintf("%s - %s %s", start.Format("3:04 PM"), end.Format("3:04 PM"), start.Format("MST"))
	return date, timeRange
}

func BuildBookingConfirmation(details BookingDetails) Message {
	facilityName := strings.TrimSpace(details.FacilityName)
	if facilityName == "" {
		facilityName = "your facility"
	}

	subject := fmt.Sprintf("Booking Confirmed - %s", facilityName)

	lines := []string{
		"Your facility booking is confirmed.",
		"",
		fmt.Sprintf("Facility: %s", facilityName),
		fmt.Sprintf("Date: %s", details.Date),
		fmt.Sprintf("Time: %s", details.TimeRange),
	}
	if details.LeagueName != "" {
		lines = append(lines, fmt.Sprintf("League: %s", details.LeagueName))
	}
	if details.CheckInCode != "" {
		lines = append(lines, "", fmt.Sprintf("Present this code at check-in: %s", details.CheckInCode))
	}

	return Message{Subject: subject, Body: strings.Join(lines, "\n")}
}

func BuildBookingCancellation(details BookingDetails) Message {
	facilityName := strings.TrimSpace(details.FacilityName)
	if facilityName == "" {
		facilityName = "your facility"
	}

	subject := fmt.Sprintf("Booking Cancelled - %s", facilityName)

	lines := []string{
		"Your facility booking has been cancelled.",
		"",
		fmt.Sprintf("Facility: %s", facilityName),
		fmt.Sprintf("Date: %s", details.Date),
		fmt.Sprintf("Time: %s", details.TimeRange),
		"",
		"The time slot is available again for other members.",
	}

	return Message{Subject: subject, Body: strings.Join(lines, "\n")}
}
